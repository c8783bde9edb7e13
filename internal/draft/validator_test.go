package draft

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func f(v float64) *float64 { return &v }

func validSeller(d *Draft) {
	d.SellerFullName = "Jane Seller"
	d.SellerEmail = "jane@example.com"
	d.SellerPhone = "(555) 123-4567"
	d.SellerPhoneCountryCode = "+1"
	d.SellerCountry = "United States"
	d.SellerRelationship = RelationshipOwner
	d.SellerOwnershipPercentage = f(100)
	d.SellerAuthorityToSell = true
}

func validDraft(t ListingType) *Draft {
	d := &Draft{ListingType: t, Plan: PlanStandard}
	validSeller(d)
	d.Industry = "Food & Beverage"
	d.Country = "United States"
	d.City = "Seattle"
	d.DocumentsCertified = true

	switch t {
	case ListingTypeBusinessSale:
		d.BusinessName = "Corner Bakery"
		d.YearEstablished = f(2010)
		d.EmployeeCount = f(12)
		d.AnnualRevenue = f(850000)
		d.AnnualProfit = f(0)
		d.AskingPrice = f(1200000)
		d.Description = strings.Repeat("Family bakery with loyal customers. ", 3)
		d.ReasonForSale = "Owner is retiring after twenty years."
		d.OwnerInvolvement = "full_time"
		d.Documents = map[string]FileRef{DocFinancialStatements: {Name: "fs-2024.pdf", Size: 2048}}
	case ListingTypeFranchiseSale:
		d.BrandName = "Quick Wash"
		d.YearFounded = f(2001)
		d.TotalUnits = f(42)
		d.FranchiseFee = f(35000)
		d.InitialInvestment = f(250000)
		d.RoyaltyPercentage = f(6)
		d.Concept = strings.Repeat("Express car wash with subscription plans. ", 2)
		d.TargetCustomer = "Commuters in suburban areas."
		d.SupportProvided = []string{"training", "site_selection"}
	case ListingTypeInvestmentOpportunity:
		d.CompanyName = "Grid Labs"
		d.YearFounded = f(2021)
		d.EmployeeCount = f(8)
		d.InvestmentType = InvestmentTypeEquity
		d.FundingAmount = f(500000)
		d.MinimumInvestment = f(25000)
		d.EquityOfferedPercentage = f(10)
		d.Overview = strings.Repeat("Battery analytics for utility operators. ", 2)
		d.ScalabilityReason = "Software margins with recurring contracts."
	}
	return d
}

var allTypes = []ListingType{ListingTypeBusinessSale, ListingTypeFranchiseSale, ListingTypeInvestmentOpportunity}

func TestValidate_ValidDraftsPassEveryStep(t *testing.T) {
	for _, lt := range allTypes {
		t.Run(string(lt), func(t *testing.T) {
			d := validDraft(lt)
			for s := StepSellerInfo; s <= StepReview; s++ {
				assert.Empty(t, Validate(s, d, testNow), "step %d", s)
				assert.True(t, CanContinue(s, d, testNow), "step %d", s)
			}
		})
	}
}

func TestValidate_AuthorityToSellBlocksSellerStep(t *testing.T) {
	d := validDraft(ListingTypeBusinessSale)
	d.SellerAuthorityToSell = false

	errs := Validate(StepSellerInfo, d, testNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "seller_authority_to_sell", errs[0].Field)

	w := NewWizard()
	assert.NotEmpty(t, w.Next(d, testNow))
	assert.Equal(t, StepSellerInfo, w.Step)
}

func TestValidate_AnnualRevenueMustBePositive(t *testing.T) {
	for _, revenue := range []float64{-5, 0} {
		d := validDraft(ListingTypeBusinessSale)
		d.AnnualRevenue = f(revenue)

		errs := Validate(StepFinancials, d, testNow)
		require.Len(t, errs, 1, "revenue %v", revenue)
		assert.Equal(t, "annual_revenue", errs[0].Field)
		assert.Equal(t, msgPositive, errs[0].Message)
	}
}

func TestValidate_OwnershipPercentageOnlyForEquityHolders(t *testing.T) {
	d := validDraft(ListingTypeBusinessSale)
	d.SellerOwnershipPercentage = nil
	assert.True(t, Validate(StepSellerInfo, d, testNow).Has("seller_ownership_percentage"))

	d.SellerOwnershipPercentage = f(120)
	assert.True(t, Validate(StepSellerInfo, d, testNow).Has("seller_ownership_percentage"))

	d.SellerRelationship = RelationshipBroker
	d.SellerOwnershipPercentage = nil
	assert.Empty(t, Validate(StepSellerInfo, d, testNow))
}

func TestValidate_SellerContactFields(t *testing.T) {
	tests := []struct {
		name  string
		apply func(d *Draft)
		field string
	}{
		{"bad email", func(d *Draft) { d.SellerEmail = "not-an-email" }, "seller_email"},
		{"short phone", func(d *Draft) { d.SellerPhone = "12345" }, "seller_phone"},
		{"long phone", func(d *Draft) { d.SellerPhone = "1234567890123456" }, "seller_phone"},
		{"letters in phone", func(d *Draft) { d.SellerPhone = "555-CALL-NOW" }, "seller_phone"},
		{"bad country code", func(d *Draft) { d.SellerPhoneCountryCode = "+12345" }, "seller_phone_country_code"},
		{"unknown relationship", func(d *Draft) { d.SellerRelationship = "landlord" }, "seller_relationship"},
		{"short name", func(d *Draft) { d.SellerFullName = "J" }, "seller_full_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft(ListingTypeBusinessSale)
			tt.apply(d)
			errs := Validate(StepSellerInfo, d, testNow)
			assert.Equal(t, []string{tt.field}, errs.Fields())
		})
	}
}

func TestValidate_BasicInfo(t *testing.T) {
	d := validDraft(ListingTypeBusinessSale)
	d.YearEstablished = f(float64(testNow.Year() + 1))
	assert.True(t, Validate(StepBasicInfo, d, testNow).Has("year_established"))

	d.YearEstablished = f(float64(testNow.Year()))
	assert.Empty(t, Validate(StepBasicInfo, d, testNow))

	d.EmployeeCount = f(3.5)
	assert.True(t, Validate(StepBasicInfo, d, testNow).Has("employee_count"))

	fr := validDraft(ListingTypeFranchiseSale)
	fr.TotalUnits = f(0)
	assert.True(t, Validate(StepBasicInfo, fr, testNow).Has("total_units"))

	inv := validDraft(ListingTypeInvestmentOpportunity)
	inv.InvestmentType = ""
	assert.True(t, Validate(StepBasicInfo, inv, testNow).Has("investment_type"))

	none := validDraft(ListingTypeBusinessSale)
	none.ListingType = ""
	assert.True(t, Validate(StepBasicInfo, none, testNow).Has("listing_type"))
}

func TestValidate_InvestmentFinancials(t *testing.T) {
	d := validDraft(ListingTypeInvestmentOpportunity)
	d.MinimumInvestment = f(600000)
	assert.Equal(t, []string{"minimum_investment"}, Validate(StepFinancials, d, testNow).Fields())

	d = validDraft(ListingTypeInvestmentOpportunity)
	d.EquityOfferedPercentage = nil
	assert.True(t, Validate(StepFinancials, d, testNow).Has("equity_offered_percentage"))

	d.InvestmentType = "debt"
	assert.Empty(t, Validate(StepFinancials, d, testNow))
}

func TestValidate_StoryLengthsCountRunes(t *testing.T) {
	d := validDraft(ListingTypeBusinessSale)
	d.Description = strings.Repeat("é", LongTextMin)
	assert.Empty(t, Validate(StepStory, d, testNow))

	d.Description = "  " + strings.Repeat("é", LongTextMin-1) + "  "
	assert.True(t, Validate(StepStory, d, testNow).Has("description"))

	fr := validDraft(ListingTypeFranchiseSale)
	fr.SupportProvided = []string{"training", "catering"}
	assert.True(t, Validate(StepStory, fr, testNow).Has("support_provided"))
	fr.SupportProvided = nil
	assert.True(t, Validate(StepStory, fr, testNow).Has("support_provided"))
}

func TestValidate_Media(t *testing.T) {
	d := validDraft(ListingTypeBusinessSale)
	d.DocumentsCertified = false
	d.Documents[DocTaxReturns] = FileRef{Name: "undefined", Size: 10}
	d.Documents[DocLeaseAgreement] = FileRef{Name: "lease.pdf", Size: 0}

	errs := Validate(StepMedia, d, testNow)
	assert.Equal(t, []string{"documents_certified", "documents.lease_agreement", "documents.tax_returns"}, errs.Fields())
}

func TestValidate_ReviewIsUnionOfSteps(t *testing.T) {
	d := validDraft(ListingTypeBusinessSale)
	d.SellerAuthorityToSell = false
	d.AskingPrice = nil
	d.DocumentsCertified = false

	errs := Validate(StepReview, d, testNow)
	assert.Equal(t, []string{"seller_authority_to_sell", "asking_price", "documents_certified"}, errs.Fields())
}

// mutateRandomly breaks or clears a random subset of fields.
func mutateRandomly(r *rand.Rand, d *Draft) {
	mutations := []func(){
		func() { d.SellerFullName = "" },
		func() { d.SellerEmail = "broken" },
		func() { d.SellerPhone = "12" },
		func() { d.SellerAuthorityToSell = false },
		func() { d.SellerRelationship = relationships[r.Intn(len(relationships))] },
		func() { d.SellerOwnershipPercentage = nil },
		func() { d.ListingType = allTypes[r.Intn(len(allTypes))] },
		func() { d.City = "" },
		func() { d.YearEstablished = f(float64(1800 + r.Intn(300))) },
		func() { d.YearFounded = nil },
		func() { d.EmployeeCount = f(float64(r.Intn(20)) - 5) },
		func() { d.TotalUnits = f(float64(r.Intn(3))) },
		func() { d.InvestmentType = investmentTypes[r.Intn(len(investmentTypes))] },
		func() { d.AnnualRevenue = f(float64(r.Intn(3) - 1)) },
		func() { d.AskingPrice = nil },
		func() { d.RoyaltyPercentage = f(float64(r.Intn(200))) },
		func() { d.MinimumInvestment = f(float64(r.Intn(1000000))) },
		func() { d.EquityOfferedPercentage = nil },
		func() { d.Description = strings.Repeat("x", r.Intn(80)) },
		func() { d.ReasonForSale = "" },
		func() { d.SupportProvided = nil },
		func() { d.Overview = "short" },
		func() { d.DocumentsCertified = r.Intn(2) == 0 },
		func() { d.Documents = map[string]FileRef{DocCapTable: {Name: "blob", Size: int64(r.Intn(2))}} },
	}
	for _, m := range mutations {
		if r.Intn(4) == 0 {
			m()
		}
	}
}

func TestCanContinueAgreesWithValidate(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		d := validDraft(allTypes[i%len(allTypes)])
		mutateRandomly(r, d)
		for s := StepSellerInfo; s <= StepReview; s++ {
			errs := Validate(s, d, testNow)
			if CanContinue(s, d, testNow) {
				require.Empty(t, errs, "iteration %d step %d", i, s)
			} else {
				require.NotEmpty(t, errs, "iteration %d step %d", i, s)
			}
		}
	}
}

func TestValidate_ListingTypeSwitchKeepsOtherFields(t *testing.T) {
	d := &Draft{}
	require.NoError(t, d.Apply([]byte(`{"listing_type":"business_sale","business_name":"Corner Bakery","year_established":2010}`)))
	require.NoError(t, d.Apply([]byte(`{"listing_type":"franchise_sale","brand_name":"Quick Wash"}`)))

	assert.Equal(t, "Quick Wash", d.Title())
	assert.True(t, Validate(StepBasicInfo, d, testNow).Has("year_founded"))
	assert.False(t, Validate(StepBasicInfo, d, testNow).Has("year_established"))

	require.NoError(t, d.Apply([]byte(`{"listing_type":"business_sale"}`)))
	assert.Equal(t, "Corner Bakery", d.Title())
	require.NotNil(t, d.YearEstablished)
	assert.Equal(t, 2010.0, *d.YearEstablished)
}

func TestDraftApply(t *testing.T) {
	d := validDraft(ListingTypeBusinessSale)
	require.NoError(t, d.Apply([]byte(`{"inventory_value":5000}`)))
	require.NotNil(t, d.InventoryValue)
	assert.Equal(t, "Corner Bakery", d.BusinessName)

	require.NoError(t, d.Apply([]byte(`{"inventory_value":null}`)))
	assert.Nil(t, d.InventoryValue)

	d.UseOfFunds = "Expansion"
	require.NoError(t, d.Apply([]byte(`{"use_of_funds":null}`)))
	assert.Equal(t, "Expansion", d.UseOfFunds, "null leaves text unchanged")
	require.NoError(t, d.Apply([]byte(`{"use_of_funds":""}`)))
	assert.Empty(t, d.UseOfFunds)

	d.SupportProvided = []string{"training"}
	require.NoError(t, d.Apply([]byte(`{"support_provided":null}`)))
	assert.Nil(t, d.SupportProvided)

	assert.Error(t, d.Apply([]byte(`{"unknown_field":1}`)))
	assert.Error(t, d.Apply([]byte(`[1,2]`)))
	assert.Error(t, d.Apply(nil))
}

func TestDocumentKeysReturnsCopy(t *testing.T) {
	keys := DocumentKeys(ListingTypeInvestmentOpportunity)
	require.Contains(t, keys, DocPitchDeck)
	keys[0] = "mutated"
	assert.Equal(t, DocPitchDeck, DocumentKeys(ListingTypeInvestmentOpportunity)[0])
	assert.Empty(t, DocumentKeys("bogus"))
}
