package listing

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketplace_backend/internal/common"
	"marketplace_backend/internal/draft"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// franchiseDetailsDDL stands in for the Postgres text[] column, which SQLite
// has no type for; pq.StringArray round-trips through plain text.
const franchiseDetailsDDL = `CREATE TABLE franchise_details (
	listing_id TEXT PRIMARY KEY,
	brand_name TEXT NOT NULL,
	year_founded INTEGER NOT NULL,
	total_units INTEGER NOT NULL,
	franchise_fee NUMERIC NOT NULL,
	initial_investment NUMERIC NOT NULL,
	royalty_percentage NUMERIC NOT NULL,
	marketing_fee_percentage NUMERIC,
	average_unit_revenue NUMERIC,
	concept TEXT NOT NULL,
	target_customer TEXT NOT NULL,
	support_provided TEXT
)`

type schemaVersion int

const (
	modernSchema schemaVersion = iota
	legacySchema
	noDocumentSchema
)

func newTestDB(t *testing.T, docs schemaVersion) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&Listing{}, &BusinessDetails{}, &InvestmentDetails{}))
	require.NoError(t, db.Exec(franchiseDetailsDDL).Error)
	switch docs {
	case modernSchema:
		require.NoError(t, db.AutoMigrate(&ListingDocument{}))
	case legacySchema:
		require.NoError(t, db.AutoMigrate(&LegacyDocument{}))
	}
	return db
}

func newListing(userID string, status ListingStatus) *Listing {
	return &Listing{
		UserID:      userID,
		ListingType: draft.ListingTypeBusinessSale,
		Title:       "Harbor View Coffee",
		Status:      status,
		Plan:        draft.PlanBasic,
		Industry:    "food_beverage",
		Country:     "US",
		City:        "Seattle",
	}
}

func businessDetails(id uuid.UUID) *BusinessDetails {
	return &BusinessDetails{
		ListingID:        id,
		BusinessName:     "Harbor View Coffee LLC",
		YearEstablished:  2012,
		AnnualRevenue:    850000,
		AnnualProfit:     120000,
		AskingPrice:      400000,
		Description:      "A neighborhood cafe with a loyal base of regulars.",
		ReasonForSale:    "Retiring",
		OwnerInvolvement: "full_time",
	}
}

func strPtr(s string) *string { return &s }

func TestRepository_CreateBaseAndAssignSlugOnce(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t, modernSchema))
	ctx := context.Background()

	l := newListing("uid-1", "")
	require.NoError(t, repo.CreateBase(ctx, l))
	require.NotEqual(t, uuid.Nil, l.ID)
	assert.Equal(t, StatusPending, l.Status)

	slug := GenerateSlug(l.Title, l.ID)
	require.NoError(t, repo.AssignSlug(ctx, l.ID, slug))
	assert.ErrorIs(t, repo.AssignSlug(ctx, l.ID, "other-slug"), ErrSlugAlreadyAssigned)

	found, err := repo.FindBySlug(ctx, slug)
	require.NoError(t, err)
	assert.Equal(t, l.ID, found.ID)
	require.NotNil(t, found.Slug)
	assert.Equal(t, slug, *found.Slug)
}

func TestRepository_CreateBaseDuplicateIsConflict(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t, modernSchema))
	ctx := context.Background()

	first := newListing("uid-1", StatusPending)
	require.NoError(t, repo.CreateBase(ctx, first))

	dup := newListing("uid-2", StatusPending)
	dup.ID = first.ID
	err := repo.CreateBase(ctx, dup)
	assert.True(t, common.HasCode(err, common.ErrConflict), "got %v", err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "idx_listings_slug" (SQLSTATE 23505)`)))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: listings.slug")))
	assert.False(t, isUniqueViolation(errors.New("connection reset by peer")))
}

func TestRepository_CreateDetailsPerType(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t, modernSchema))
	ctx := context.Background()

	business := newListing("uid-1", StatusPending)
	require.NoError(t, repo.CreateBase(ctx, business))
	require.NoError(t, repo.CreateDetails(ctx, businessDetails(business.ID)))

	franchise := newListing("uid-1", StatusPending)
	franchise.ListingType = draft.ListingTypeFranchiseSale
	require.NoError(t, repo.CreateBase(ctx, franchise))
	require.NoError(t, repo.CreateDetails(ctx, &FranchiseDetails{
		ListingID:         franchise.ID,
		BrandName:         "Bagel Bros",
		YearFounded:       1999,
		TotalUnits:        40,
		FranchiseFee:      35000,
		InitialInvestment: 250000,
		RoyaltyPercentage: 6,
		Concept:           "Fast casual bagels",
		TargetCustomer:    "Commuters",
		SupportProvided:   []string{"training", "marketing"},
	}))

	got, err := repo.FindByID(ctx, business.ID, false)
	require.NoError(t, err)
	require.NotNil(t, got.BusinessDetails)
	assert.Equal(t, draft.ListingTypeBusinessSale, got.Details().Kind())
	assert.Nil(t, got.FranchiseDetails)

	got, err = repo.FindByID(ctx, franchise.ID, false)
	require.NoError(t, err)
	require.NotNil(t, got.FranchiseDetails)
	assert.Equal(t, []string{"training", "marketing"}, []string(got.FranchiseDetails.SupportProvided))

	assert.Error(t, repo.CreateDetails(ctx, &BusinessDetails{}), "details need a listing id")
}

func docsFor(id uuid.UUID) []Document {
	return []Document{
		{ListingID: id, Key: draft.DocTaxReturns, Type: DocumentTypeForKey(draft.DocTaxReturns), OriginalName: "tax-2024.pdf", URL: "http://media/tax.pdf", StoragePath: "uid-1/documents/a-tax-2024.pdf", Size: 2048, ContentType: "application/pdf", UploadedBy: "uid-1"},
		{ListingID: id, Key: "mystery", Type: DocumentTypeForKey("mystery"), OriginalName: "notes.txt", URL: "http://media/notes.txt", UploadedBy: "uid-1"},
	}
}

func TestRepository_RegisterDocumentsModernSchema(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t, modernSchema))
	ctx := context.Background()
	l := newListing("uid-1", StatusPending)
	require.NoError(t, repo.CreateBase(ctx, l))

	schema, err := repo.RegisterDocuments(ctx, docsFor(l.ID))
	require.NoError(t, err)
	assert.Equal(t, SchemaListingDocuments, schema)

	got, err := repo.FindByID(ctx, l.ID, true)
	require.NoError(t, err)
	require.Len(t, got.Documents, 2)
	assert.Equal(t, "tax_return", got.Documents[0].Type)
	assert.EqualValues(t, 2048, got.Documents[0].Size)
	assert.Equal(t, "other", got.Documents[1].Type)
}

func TestRepository_RegisterDocumentsFallsBackToLegacySchema(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t, legacySchema))
	ctx := context.Background()
	l := newListing("uid-1", StatusPending)
	require.NoError(t, repo.CreateBase(ctx, l))

	schema, err := repo.RegisterDocuments(ctx, docsFor(l.ID))
	require.NoError(t, err)
	assert.Equal(t, SchemaLegacyDocuments, schema)

	docs, err := repo.FindDocuments(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "tax-2024.pdf", docs[0].OriginalName)
	assert.Equal(t, "http://media/tax.pdf", docs[0].URL)
}

func TestRepository_RegisterDocumentsWithoutAnySchema(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t, noDocumentSchema))
	ctx := context.Background()
	l := newListing("uid-1", StatusPending)
	require.NoError(t, repo.CreateBase(ctx, l))

	_, err := repo.RegisterDocuments(ctx, docsFor(l.ID))
	assert.ErrorIs(t, err, ErrNoDocumentSchema)

	docs, err := repo.FindDocuments(ctx, l.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRepository_TransactionFallsBackAndRollsBack(t *testing.T) {
	db := newTestDB(t, legacySchema)
	repo := NewGORMRepository(db)
	ctx := context.Background()

	var id uuid.UUID
	err := repo.WithinTransaction(ctx, func(tx Repository) error {
		l := newListing("uid-1", StatusPending)
		require.NoError(t, tx.CreateBase(ctx, l))
		id = l.ID
		require.NoError(t, tx.AssignSlug(ctx, l.ID, GenerateSlug(l.Title, l.ID)))
		schema, err := tx.RegisterDocuments(ctx, docsFor(l.ID))
		require.NoError(t, err, "legacy fallback works inside a transaction")
		assert.Equal(t, SchemaLegacyDocuments, schema)
		return tx.CreateDetails(ctx, businessDetails(l.ID))
	})
	require.NoError(t, err)
	_, err = repo.FindByID(ctx, id, false)
	require.NoError(t, err)

	err = repo.WithinTransaction(ctx, func(tx Repository) error {
		l := newListing("uid-2", StatusPending)
		require.NoError(t, tx.CreateBase(ctx, l))
		id = l.ID
		_, err := tx.RegisterDocuments(ctx, docsFor(l.ID))
		require.NoError(t, err)
		return tx.CreateDetails(ctx, nil)
	})
	require.Error(t, err)

	_, err = repo.FindByID(ctx, id, false)
	assert.True(t, common.HasCode(err, common.ErrNotFound), "a failed transaction leaves no listing row")
	var count int64
	require.NoError(t, db.Model(&LegacyDocument{}).Where("listing_id = ?", id).Count(&count).Error)
	assert.Zero(t, count, "a failed transaction leaves no document rows")
}

func TestRepository_FindByOwnerActiveFilter(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t, modernSchema))
	ctx := context.Background()
	for _, status := range []ListingStatus{StatusPending, StatusApproved, StatusSold} {
		require.NoError(t, repo.CreateBase(ctx, newListing("uid-1", status)))
	}
	require.NoError(t, repo.CreateBase(ctx, newListing("uid-2", StatusApproved)))

	all, pagination, err := repo.FindByOwner(ctx, "uid-1", false, 1, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.EqualValues(t, 3, pagination.TotalItems)

	active, _, err := repo.FindByOwner(ctx, "uid-1", true, 1, 10)
	require.NoError(t, err)
	assert.Len(t, active, 2)
	for _, l := range active {
		assert.NotEqual(t, StatusSold, l.Status)
	}
}

func TestRepository_StatusUpdatesAreConditional(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t, modernSchema))
	ctx := context.Background()
	l := newListing("uid-1", StatusPending)
	require.NoError(t, repo.CreateBase(ctx, l))

	require.NoError(t, repo.UpdateStatus(ctx, l.ID, StatusPending, StatusRejected, strPtr("Missing financials")))
	err := repo.UpdateStatus(ctx, l.ID, StatusPending, StatusApproved, nil)
	assert.True(t, common.HasCode(err, common.ErrConflict))

	got, err := repo.FindByID(ctx, l.ID, false)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
	require.NotNil(t, got.RejectionReason)
	assert.Equal(t, "Missing financials", *got.RejectionReason)

	err = repo.MarkSold(ctx, l.ID, "uid-1", nil, time.Now())
	assert.True(t, common.HasCode(err, common.ErrConflict), "rejected listings cannot be sold")
}

func TestRepository_FindIncompleteAndFlag(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t, modernSchema))
	ctx := context.Background()
	old := time.Now().Add(-2 * time.Hour)

	orphan := newListing("uid-1", StatusPending)
	orphan.CreatedAt = old
	require.NoError(t, repo.CreateBase(ctx, orphan))

	complete := newListing("uid-1", StatusPending)
	complete.CreatedAt = old
	require.NoError(t, repo.CreateBase(ctx, complete))
	require.NoError(t, repo.AssignSlug(ctx, complete.ID, GenerateSlug(complete.Title, complete.ID)))
	require.NoError(t, repo.CreateDetails(ctx, businessDetails(complete.ID)))

	noSlug := newListing("uid-1", StatusPending)
	noSlug.CreatedAt = old
	require.NoError(t, repo.CreateBase(ctx, noSlug))
	require.NoError(t, repo.CreateDetails(ctx, businessDetails(noSlug.ID)))

	fresh := newListing("uid-1", StatusPending)
	require.NoError(t, repo.CreateBase(ctx, fresh))

	found, err := repo.FindIncomplete(ctx, time.Now().Add(-30*time.Minute))
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(found))
	for _, l := range found {
		ids = append(ids, l.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{orphan.ID, noSlug.ID}, ids)

	flagged, err := repo.FlagNeedsAttention(ctx, ids)
	require.NoError(t, err)
	assert.EqualValues(t, 2, flagged)

	found, err = repo.FindIncomplete(ctx, time.Now().Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, found, "flagged listings are not reported again")
}

func TestRepository_FindAllForSyncOnlyApproved(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t, modernSchema))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateBase(ctx, newListing("uid-1", StatusApproved)))
	}
	require.NoError(t, repo.CreateBase(ctx, newListing("uid-1", StatusPending)))

	first, err := repo.FindAllForSync(ctx, 0, 2)
	require.NoError(t, err)
	assert.Len(t, first, 2)
	rest, err := repo.FindAllForSync(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
