// File: internal/draft/model.go
package draft

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ListingType selects which type-specific fields a draft uses.
type ListingType string

const (
	ListingTypeBusinessSale          ListingType = "business_sale"
	ListingTypeFranchiseSale         ListingType = "franchise_sale"
	ListingTypeInvestmentOpportunity ListingType = "investment_opportunity"
)

// Valid reports whether t is one of the three listing types.
func (t ListingType) Valid() bool {
	switch t {
	case ListingTypeBusinessSale, ListingTypeFranchiseSale, ListingTypeInvestmentOpportunity:
		return true
	}
	return false
}

// Plan is the listing's visibility tier.
type Plan string

const (
	PlanBasic    Plan = "basic"
	PlanStandard Plan = "standard"
	PlanPremium  Plan = "premium"
)

func (p Plan) Valid() bool {
	switch p {
	case PlanBasic, PlanStandard, PlanPremium:
		return true
	}
	return false
}

// Seller relationship to the business being listed.
const (
	RelationshipOwner           = "owner"
	RelationshipCofounder       = "cofounder"
	RelationshipShareholder     = "shareholder"
	RelationshipBroker          = "broker"
	RelationshipAuthorizedAgent = "authorized_agent"
	RelationshipEmployee        = "employee"
	RelationshipOther           = "other"
)

var relationships = []string{
	RelationshipOwner, RelationshipCofounder, RelationshipShareholder,
	RelationshipBroker, RelationshipAuthorizedAgent, RelationshipEmployee, RelationshipOther,
}

// HoldsEquity reports whether the relationship implies an ownership stake.
func HoldsEquity(relationship string) bool {
	switch relationship {
	case RelationshipOwner, RelationshipCofounder, RelationshipShareholder:
		return true
	}
	return false
}

var ownerInvolvements = []string{"full_time", "part_time", "absentee"}

var supportOptions = []string{"training", "marketing", "site_selection", "operations", "supply_chain", "technology"}

const InvestmentTypeEquity = "equity"

var investmentTypes = []string{InvestmentTypeEquity, "debt", "convertible_note", "revenue_share"}

// FileRef describes a file the seller attached. The bytes themselves only
// travel with the final submission.
type FileRef struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
}

// Draft is the in-progress listing form. Every step's fields live here so
// that moving between steps never loses input, and changing listing_type
// clears nothing.
type Draft struct {
	ListingType ListingType `json:"listing_type,omitempty"`
	Plan        Plan        `json:"plan,omitempty"`

	// Step 1: seller
	SellerFullName            string   `json:"seller_full_name,omitempty"`
	SellerEmail               string   `json:"seller_email,omitempty"`
	SellerPhone               string   `json:"seller_phone,omitempty"`
	SellerPhoneCountryCode    string   `json:"seller_phone_country_code,omitempty"`
	SellerCountry             string   `json:"seller_country,omitempty"`
	SellerRelationship        string   `json:"seller_relationship,omitempty"`
	SellerOwnershipPercentage *float64 `json:"seller_ownership_percentage,omitempty"`
	SellerAuthorityToSell     bool     `json:"seller_authority_to_sell"`

	// Step 2: basic info
	Industry        string   `json:"industry,omitempty"`
	Country         string   `json:"country,omitempty"`
	City            string   `json:"city,omitempty"`
	BusinessName    string   `json:"business_name,omitempty"`
	BrandName       string   `json:"brand_name,omitempty"`
	CompanyName     string   `json:"company_name,omitempty"`
	YearEstablished *float64 `json:"year_established,omitempty"`
	YearFounded     *float64 `json:"year_founded,omitempty"`
	EmployeeCount   *float64 `json:"employee_count,omitempty"`
	TotalUnits      *float64 `json:"total_units,omitempty"`
	InvestmentType  string   `json:"investment_type,omitempty"`

	// Step 3: financials
	AnnualRevenue           *float64 `json:"annual_revenue,omitempty"`
	AnnualProfit            *float64 `json:"annual_profit,omitempty"`
	AskingPrice             *float64 `json:"asking_price,omitempty"`
	InventoryValue          *float64 `json:"inventory_value,omitempty"`
	FranchiseFee            *float64 `json:"franchise_fee,omitempty"`
	InitialInvestment       *float64 `json:"initial_investment,omitempty"`
	RoyaltyPercentage       *float64 `json:"royalty_percentage,omitempty"`
	MarketingFeePercentage  *float64 `json:"marketing_fee_percentage,omitempty"`
	AverageUnitRevenue      *float64 `json:"average_unit_revenue,omitempty"`
	FundingAmount           *float64 `json:"funding_amount,omitempty"`
	MinimumInvestment       *float64 `json:"minimum_investment,omitempty"`
	EquityOfferedPercentage *float64 `json:"equity_offered_percentage,omitempty"`
	PreMoneyValuation       *float64 `json:"pre_money_valuation,omitempty"`

	// Step 4: story
	Description       string   `json:"description,omitempty"`
	ReasonForSale     string   `json:"reason_for_sale,omitempty"`
	OwnerInvolvement  string   `json:"owner_involvement,omitempty"`
	Concept           string   `json:"concept,omitempty"`
	TargetCustomer    string   `json:"target_customer,omitempty"`
	SupportProvided   []string `json:"support_provided,omitempty"`
	Overview          string   `json:"overview,omitempty"`
	ScalabilityReason string   `json:"scalability_reason,omitempty"`
	UseOfFunds        string   `json:"use_of_funds,omitempty"`

	// Step 5: media
	Image              *FileRef           `json:"image,omitempty"`
	Documents          map[string]FileRef `json:"documents,omitempty"`
	DocumentsCertified bool               `json:"documents_certified"`
}

// Apply merges a partial JSON object into the draft. Fields missing from the
// patch keep their value. An explicit null clears number, list and file
// fields; text fields are cleared with an empty string and ignore null.
func (d *Draft) Apply(patch []byte) error {
	trimmed := bytes.TrimSpace(patch)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("draft patch must be a JSON object")
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(d); err != nil {
		return fmt.Errorf("invalid draft patch: %w", err)
	}
	return nil
}

// Title is the identity field that belongs to the current listing type.
func (d *Draft) Title() string {
	switch d.ListingType {
	case ListingTypeBusinessSale:
		return strings.TrimSpace(d.BusinessName)
	case ListingTypeFranchiseSale:
		return strings.TrimSpace(d.BrandName)
	case ListingTypeInvestmentOpportunity:
		return strings.TrimSpace(d.CompanyName)
	}
	return ""
}

// EffectivePlan falls back to the basic plan.
func (d *Draft) EffectivePlan() Plan {
	if d.Plan.Valid() {
		return d.Plan
	}
	return PlanBasic
}

// Document keys offered by the media step.
const (
	DocFinancialStatements = "financial_statements"
	DocTaxReturns          = "tax_returns"
	DocBusinessLicense     = "business_license"
	DocLeaseAgreement      = "lease_agreement"
	DocFranchiseDisclosure = "franchise_disclosure"
	DocFranchiseAgreement  = "franchise_agreement"
	DocPitchDeck           = "pitch_deck"
	DocBusinessPlan        = "business_plan"
	DocCapTable            = "cap_table"
	DocOther               = "other"
)

var documentKeys = map[ListingType][]string{
	ListingTypeBusinessSale:          {DocFinancialStatements, DocTaxReturns, DocBusinessLicense, DocLeaseAgreement, DocOther},
	ListingTypeFranchiseSale:         {DocFranchiseDisclosure, DocFranchiseAgreement, DocFinancialStatements, DocOther},
	ListingTypeInvestmentOpportunity: {DocPitchDeck, DocFinancialStatements, DocBusinessPlan, DocCapTable, DocOther},
}

// DocumentKeys lists the document slots the media step shows for t.
func DocumentKeys(t ListingType) []string {
	keys := documentKeys[t]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}
