package notification

import (
	"context"
	"testing"

	"marketplace_backend/internal/common"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&Notification{}))
	return NewGORMRepository(db)
}

func TestGORMRepository_FeedAndReadState(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	listingID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &Notification{UserID: "uid-1", Type: ListingSubmitted, Message: "submitted", RelatedListingID: &listingID}))
	}
	require.NoError(t, repo.Create(ctx, &Notification{UserID: "uid-2", Type: ListingApproved, Message: "approved"}))

	items, pagination, err := repo.ListForUser(ctx, "uid-1", ListFilter{}, 1, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.EqualValues(t, 3, pagination.TotalItems)
	assert.True(t, pagination.HasNext)

	require.NoError(t, repo.MarkAsRead(ctx, items[0].ID, "uid-1"))
	require.NoError(t, repo.MarkAsRead(ctx, items[0].ID, "uid-1"), "marking twice is fine")
	err = repo.MarkAsRead(ctx, items[0].ID, "uid-2")
	assert.True(t, common.HasCode(err, common.ErrNotFound), "other users cannot read it")
	err = repo.MarkAsRead(ctx, uuid.New(), "uid-1")
	assert.True(t, common.HasCode(err, common.ErrNotFound))

	unread, _, err := repo.ListForUser(ctx, "uid-1", ListFilter{UnreadOnly: true}, 1, 10)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	updated, err := repo.MarkAllAsRead(ctx, "uid-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	count, err := repo.CountUnread(ctx, "uid-1")
	require.NoError(t, err)
	assert.Zero(t, count)
	count, err = repo.CountUnread(ctx, "uid-2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestGORMRepository_ListForListing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	bakery, laundry := uuid.New(), uuid.New()

	require.NoError(t, repo.Create(ctx, &Notification{UserID: "uid-1", Type: ListingSubmitted, Message: "a", RelatedListingID: &bakery}))
	require.NoError(t, repo.Create(ctx, &Notification{UserID: "uid-1", Type: ListingApproved, Message: "b", RelatedListingID: &bakery}))
	require.NoError(t, repo.Create(ctx, &Notification{UserID: "uid-1", Type: ListingSubmitted, Message: "c", RelatedListingID: &laundry}))

	items, pagination, err := repo.ListForUser(ctx, "uid-1", ListFilter{ListingID: &bakery}, 1, 10)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.EqualValues(t, 2, pagination.TotalItems)
	for _, n := range items {
		assert.Equal(t, bakery, *n.RelatedListingID)
	}

	none, _, err := repo.ListForUser(ctx, "uid-2", ListFilter{ListingID: &bakery}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
