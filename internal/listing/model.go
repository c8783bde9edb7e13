// File: internal/listing/model.go
package listing

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"marketplace_backend/internal/common"
	"marketplace_backend/internal/draft"

	"github.com/google/uuid"
	"github.com/lib/pq" // For pq.StringArray
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// --- Main Listing Model ---
type ListingStatus string

const (
	StatusPending  ListingStatus = "pending"
	StatusApproved ListingStatus = "approved"
	StatusRejected ListingStatus = "rejected"
	StatusSold     ListingStatus = "sold"
)

// CanTransitionTo reports whether moderation or the seller may move a
// listing from s to next.
func (s ListingStatus) CanTransitionTo(next ListingStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusSold
	}
	return false
}

// Public reports whether anonymous visitors may see a listing in status s.
func (s ListingStatus) Public() bool {
	return s == StatusApproved || s == StatusSold
}

type Listing struct {
	common.BaseModel
	UserID          string            `gorm:"type:varchar(128);not null;index"`
	ListingType     draft.ListingType `gorm:"type:varchar(50);not null"`
	Title           string            `gorm:"type:varchar(255);not null"`
	Slug            *string           `gorm:"type:varchar(100);uniqueIndex"` // set once, never overwritten
	Status          ListingStatus     `gorm:"type:varchar(20);not null;default:'pending';index"`
	Plan            draft.Plan        `gorm:"type:varchar(20);not null;default:'basic'"`
	Industry        string            `gorm:"type:varchar(100)"`
	Country         string            `gorm:"type:varchar(100)"`
	City            string            `gorm:"type:varchar(100)"`
	ImageURL        *string           `gorm:"type:text"`
	ImagePath       *string           `gorm:"type:text"`
	RejectionReason *string           `gorm:"type:text"`
	SoldPrice       *float64          `gorm:"type:decimal(15,2)"`
	ClosedAt        *time.Time
	NeedsAttention  bool           `gorm:"not null;default:false"`
	DraftSnapshot   datatypes.JSON `gorm:"type:jsonb"`

	BusinessDetails   *BusinessDetails   `gorm:"foreignKey:ListingID;references:ID;constraint:OnDelete:CASCADE;"`
	FranchiseDetails  *FranchiseDetails  `gorm:"foreignKey:ListingID;references:ID;constraint:OnDelete:CASCADE;"`
	InvestmentDetails *InvestmentDetails `gorm:"foreignKey:ListingID;references:ID;constraint:OnDelete:CASCADE;"`
	Documents         []Document         `gorm:"-"`
}

func (Listing) TableName() string {
	return "listings"
}

// Details returns whichever detail record is loaded.
func (l *Listing) Details() Details {
	switch {
	case l.BusinessDetails != nil:
		return l.BusinessDetails
	case l.FranchiseDetails != nil:
		return l.FranchiseDetails
	case l.InvestmentDetails != nil:
		return l.InvestmentDetails
	}
	return nil
}

// --- Listing Detail Models ---

// Details is one of *BusinessDetails, *FranchiseDetails or *InvestmentDetails.
type Details interface {
	Kind() draft.ListingType
	detailListingID() uuid.UUID
}

type BusinessDetails struct {
	ListingID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	BusinessName     string    `gorm:"type:varchar(150);not null" json:"business_name"`
	YearEstablished  int       `gorm:"not null" json:"year_established"`
	EmployeeCount    *int      `json:"employee_count,omitempty"`
	AnnualRevenue    float64   `gorm:"type:decimal(15,2);not null" json:"annual_revenue"`
	AnnualProfit     float64   `gorm:"type:decimal(15,2);not null" json:"annual_profit"`
	AskingPrice      float64   `gorm:"type:decimal(15,2);not null" json:"asking_price"`
	InventoryValue   *float64  `gorm:"type:decimal(15,2)" json:"inventory_value,omitempty"`
	Description      string    `gorm:"type:text;not null" json:"description"`
	ReasonForSale    string    `gorm:"type:text;not null" json:"reason_for_sale"`
	OwnerInvolvement string    `gorm:"type:varchar(20);not null" json:"owner_involvement"`
}

func (BusinessDetails) TableName() string { return "business_details" }

func (*BusinessDetails) Kind() draft.ListingType { return draft.ListingTypeBusinessSale }

func (d *BusinessDetails) detailListingID() uuid.UUID { return d.ListingID }

type FranchiseDetails struct {
	ListingID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"-"`
	BrandName              string         `gorm:"type:varchar(150);not null" json:"brand_name"`
	YearFounded            int            `gorm:"not null" json:"year_founded"`
	TotalUnits             int            `gorm:"not null" json:"total_units"`
	FranchiseFee           float64        `gorm:"type:decimal(15,2);not null" json:"franchise_fee"`
	InitialInvestment      float64        `gorm:"type:decimal(15,2);not null" json:"initial_investment"`
	RoyaltyPercentage      float64        `gorm:"type:decimal(5,2);not null" json:"royalty_percentage"`
	MarketingFeePercentage *float64       `gorm:"type:decimal(5,2)" json:"marketing_fee_percentage,omitempty"`
	AverageUnitRevenue     *float64       `gorm:"type:decimal(15,2)" json:"average_unit_revenue,omitempty"`
	Concept                string         `gorm:"type:text;not null" json:"concept"`
	TargetCustomer         string         `gorm:"type:text;not null" json:"target_customer"`
	SupportProvided        pq.StringArray `gorm:"type:text[]" json:"support_provided"`
}

func (FranchiseDetails) TableName() string { return "franchise_details" }

func (*FranchiseDetails) Kind() draft.ListingType { return draft.ListingTypeFranchiseSale }

func (d *FranchiseDetails) detailListingID() uuid.UUID { return d.ListingID }

type InvestmentDetails struct {
	ListingID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	CompanyName             string    `gorm:"type:varchar(150);not null" json:"company_name"`
	YearFounded             int       `gorm:"not null" json:"year_founded"`
	EmployeeCount           *int      `json:"employee_count,omitempty"`
	InvestmentType          string    `gorm:"type:varchar(30);not null" json:"investment_type"`
	FundingAmount           float64   `gorm:"type:decimal(15,2);not null" json:"funding_amount"`
	MinimumInvestment       float64   `gorm:"type:decimal(15,2);not null" json:"minimum_investment"`
	EquityOfferedPercentage *float64  `gorm:"type:decimal(5,2)" json:"equity_offered_percentage,omitempty"`
	PreMoneyValuation       *float64  `gorm:"type:decimal(15,2)" json:"pre_money_valuation,omitempty"`
	AnnualRevenue           *float64  `gorm:"type:decimal(15,2)" json:"annual_revenue,omitempty"`
	Overview                string    `gorm:"type:text;not null" json:"overview"`
	ScalabilityReason       string    `gorm:"type:text;not null" json:"scalability_reason"`
	UseOfFunds              *string   `gorm:"type:text" json:"use_of_funds,omitempty"`
}

func (InvestmentDetails) TableName() string { return "investment_details" }

func (*InvestmentDetails) Kind() draft.ListingType { return draft.ListingTypeInvestmentOpportunity }

func (d *InvestmentDetails) detailListingID() uuid.UUID { return d.ListingID }

// ErrUnknownListingType is returned when a draft carries no valid listing type.
var ErrUnknownListingType = errors.New("unknown listing type")

// DetailsFromDraft builds the detail record for the draft's listing type.
func DetailsFromDraft(listingID uuid.UUID, d *draft.Draft) (Details, error) {
	switch d.ListingType {
	case draft.ListingTypeBusinessSale:
		return &BusinessDetails{
			ListingID:        listingID,
			BusinessName:     strings.TrimSpace(d.BusinessName),
			YearEstablished:  intValue(d.YearEstablished),
			EmployeeCount:    intPtr(d.EmployeeCount),
			AnnualRevenue:    floatValue(d.AnnualRevenue),
			AnnualProfit:     floatValue(d.AnnualProfit),
			AskingPrice:      floatValue(d.AskingPrice),
			InventoryValue:   d.InventoryValue,
			Description:      strings.TrimSpace(d.Description),
			ReasonForSale:    strings.TrimSpace(d.ReasonForSale),
			OwnerInvolvement: d.OwnerInvolvement,
		}, nil
	case draft.ListingTypeFranchiseSale:
		return &FranchiseDetails{
			ListingID:              listingID,
			BrandName:              strings.TrimSpace(d.BrandName),
			YearFounded:            intValue(d.YearFounded),
			TotalUnits:             intValue(d.TotalUnits),
			FranchiseFee:           floatValue(d.FranchiseFee),
			InitialInvestment:      floatValue(d.InitialInvestment),
			RoyaltyPercentage:      floatValue(d.RoyaltyPercentage),
			MarketingFeePercentage: d.MarketingFeePercentage,
			AverageUnitRevenue:     d.AverageUnitRevenue,
			Concept:                strings.TrimSpace(d.Concept),
			TargetCustomer:         strings.TrimSpace(d.TargetCustomer),
			SupportProvided:        pq.StringArray(append([]string(nil), d.SupportProvided...)),
		}, nil
	case draft.ListingTypeInvestmentOpportunity:
		var useOfFunds *string
		if v := strings.TrimSpace(d.UseOfFunds); v != "" {
			useOfFunds = &v
		}
		return &InvestmentDetails{
			ListingID:               listingID,
			CompanyName:             strings.TrimSpace(d.CompanyName),
			YearFounded:             intValue(d.YearFounded),
			EmployeeCount:           intPtr(d.EmployeeCount),
			InvestmentType:          d.InvestmentType,
			FundingAmount:           floatValue(d.FundingAmount),
			MinimumInvestment:       floatValue(d.MinimumInvestment),
			EquityOfferedPercentage: d.EquityOfferedPercentage,
			PreMoneyValuation:       d.PreMoneyValuation,
			AnnualRevenue:           d.AnnualRevenue,
			Overview:                strings.TrimSpace(d.Overview),
			ScalabilityReason:       strings.TrimSpace(d.ScalabilityReason),
			UseOfFunds:              useOfFunds,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownListingType, d.ListingType)
}

func floatValue(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func intValue(v *float64) int {
	return int(math.Round(floatValue(v)))
}

func intPtr(v *float64) *int {
	if v == nil {
		return nil
	}
	n := int(math.Round(*v))
	return &n
}

// --- Document Models ---

// Document is the canonical record of a verification document, independent
// of the table shape it is stored in.
type Document struct {
	ListingID    uuid.UUID `json:"listing_id"`
	Key          string    `json:"key,omitempty"`
	Type         string    `json:"type"`
	OriginalName string    `json:"original_name"`
	URL          string    `json:"url"`
	StoragePath  string    `json:"storage_path,omitempty"`
	Size         int64     `json:"size,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	UploadedBy   string    `json:"uploaded_by,omitempty"`
}

// ListingDocument is the current documents table.
type ListingDocument struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ListingID    uuid.UUID `gorm:"type:uuid;not null;index"`
	DocumentType string    `gorm:"type:varchar(50);not null"`
	OriginalName string    `gorm:"type:varchar(255);not null"`
	StorageURL   string    `gorm:"type:text;not null"`
	StoragePath  string    `gorm:"type:text"`
	SizeBytes    int64
	MimeType     string    `gorm:"type:varchar(100)"`
	UploadedBy   string    `gorm:"type:varchar(128)"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (ListingDocument) TableName() string { return "listing_documents" }

func (d *ListingDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// LegacyDocument is the older documents table still present on some databases.
type LegacyDocument struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ListingID uuid.UUID `gorm:"type:uuid;not null;index"`
	DocType   string    `gorm:"type:varchar(50)"`
	Name      string    `gorm:"type:varchar(255)"`
	URL       string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (LegacyDocument) TableName() string { return "documents" }

func (d *LegacyDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

var documentTypes = map[string]string{
	draft.DocFinancialStatements: "financial_statement",
	draft.DocTaxReturns:          "tax_return",
	draft.DocBusinessLicense:     "business_license",
	draft.DocLeaseAgreement:      "lease_agreement",
	draft.DocFranchiseDisclosure: "franchise_disclosure",
	draft.DocFranchiseAgreement:  "franchise_agreement",
	draft.DocPitchDeck:           "pitch_deck",
	draft.DocBusinessPlan:        "business_plan",
	draft.DocCapTable:            "cap_table",
}

// DocumentTypeForKey maps an upload-step key to a stored type tag; unknown
// keys become "other".
func DocumentTypeForKey(key string) string {
	if t, ok := documentTypes[key]; ok {
		return t
	}
	return "other"
}

// --- DTOs ---

type ListingResponse struct {
	ID              uuid.UUID         `json:"id"`
	UserID          string            `json:"user_id"`
	ListingType     draft.ListingType `json:"listing_type"`
	Title           string            `json:"title"`
	Slug            *string           `json:"slug"`
	Status          ListingStatus     `json:"status"`
	Plan            draft.Plan        `json:"plan"`
	Industry        string            `json:"industry"`
	Country         string            `json:"country"`
	City            string            `json:"city"`
	ImageURL        *string           `json:"image_url"`
	RejectionReason *string           `json:"rejection_reason,omitempty"`
	SoldPrice       *float64          `json:"sold_price,omitempty"`
	ClosedAt        *time.Time        `json:"closed_at,omitempty"`
	NeedsAttention  bool              `json:"needs_attention,omitempty"`
	Details         Details           `json:"details,omitempty"`
	Documents       []Document        `json:"documents,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ToListingResponse converts a Listing to its API shape. Documents are only
// included for the owner and moderators.
func ToListingResponse(l *Listing, includeDocuments bool) ListingResponse {
	resp := ListingResponse{
		ID:              l.ID,
		UserID:          l.UserID,
		ListingType:     l.ListingType,
		Title:           l.Title,
		Slug:            l.Slug,
		Status:          l.Status,
		Plan:            l.Plan,
		Industry:        l.Industry,
		Country:         l.Country,
		City:            l.City,
		ImageURL:        l.ImageURL,
		RejectionReason: l.RejectionReason,
		SoldPrice:       l.SoldPrice,
		ClosedAt:        l.ClosedAt,
		NeedsAttention:  l.NeedsAttention,
		Details:         l.Details(),
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
	if includeDocuments {
		resp.Documents = l.Documents
	}
	return resp
}

func ToListingResponses(listings []Listing, includeDocuments bool) []ListingResponse {
	out := make([]ListingResponse, 0, len(listings))
	for i := range listings {
		out = append(out, ToListingResponse(&listings[i], includeDocuments))
	}
	return out
}

// RejectRequest is the moderation body for a rejection.
type RejectRequest struct {
	Reason string `json:"reason" binding:"required,min=5,max=1000"`
}

// MarkSoldRequest is the seller's body when closing a listing.
type MarkSoldRequest struct {
	SoldPrice *float64   `json:"sold_price,omitempty" binding:"omitempty,gt=0"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}
