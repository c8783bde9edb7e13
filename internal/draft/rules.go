// File: internal/draft/rules.go
package draft

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"marketplace_backend/internal/upload"

	"github.com/go-playground/validator/v10"
)

const (
	MinYear = 1900

	LongTextMin  = 50
	LongTextMax  = 5000
	ShortTextMin = 20
	ShortTextMax = 1000

	PhoneMinDigits = 7
	PhoneMaxDigits = 15
)

const (
	msgRequired    = "This field is required."
	msgEmail       = "Enter a valid email address."
	msgPositive    = "Must be a positive number greater than 0."
	msgNonNegative = "Cannot be negative."
	msgPercentage  = "Must be a percentage between 0 and 100."
	msgWholeNumber = "Must be a whole number."
	msgOption      = "Select one of the available options."
)

var fieldValidator = validator.New()

var (
	phoneAllowed     = regexp.MustCompile(`^[0-9 ()+.\-]+$`)
	countryCodeRegex = regexp.MustCompile(`^\+?[0-9]{1,4}$`)
)

var sellerRules = []rule{
	{"seller_full_name", text(func(d *Draft) string { return d.SellerFullName }, true, 2, 100)},
	{"seller_email", func(d *Draft, _ time.Time) string {
		email := strings.TrimSpace(d.SellerEmail)
		if email == "" {
			return msgRequired
		}
		if fieldValidator.Var(email, "email") != nil {
			return msgEmail
		}
		return ""
	}},
	{"seller_phone", func(d *Draft, _ time.Time) string {
		phone := strings.TrimSpace(d.SellerPhone)
		if phone == "" {
			return msgRequired
		}
		if !phoneAllowed.MatchString(phone) {
			return "Phone number may only contain digits, spaces and + ( ) - ."
		}
		n := countDigits(phone)
		if n < PhoneMinDigits || n > PhoneMaxDigits {
			return fmt.Sprintf("Phone number must contain %d to %d digits.", PhoneMinDigits, PhoneMaxDigits)
		}
		return ""
	}},
	{"seller_phone_country_code", func(d *Draft, _ time.Time) string {
		code := strings.TrimSpace(d.SellerPhoneCountryCode)
		if code == "" {
			return msgRequired
		}
		if !countryCodeRegex.MatchString(code) {
			return "Enter a valid country calling code, for example +1."
		}
		return ""
	}},
	{"seller_country", text(func(d *Draft) string { return d.SellerCountry }, true, 2, 100)},
	{"seller_relationship", oneOf(func(d *Draft) string { return d.SellerRelationship }, relationships, true)},
	{"seller_ownership_percentage", func(d *Draft, now time.Time) string {
		if !HoldsEquity(d.SellerRelationship) {
			return ""
		}
		return percentage(func(d *Draft) *float64 { return d.SellerOwnershipPercentage }, true)(d, now)
	}},
	{"seller_authority_to_sell", func(d *Draft, _ time.Time) string {
		if !d.SellerAuthorityToSell {
			return "You must confirm that you are authorized to sell or represent this business."
		}
		return ""
	}},
}

var basicCommonRules = []rule{
	{"listing_type", func(d *Draft, _ time.Time) string {
		if d.ListingType == "" {
			return msgRequired
		}
		if !d.ListingType.Valid() {
			return msgOption
		}
		return ""
	}},
	{"plan", func(d *Draft, _ time.Time) string {
		if d.Plan != "" && !d.Plan.Valid() {
			return msgOption
		}
		return ""
	}},
	{"industry", text(func(d *Draft) string { return d.Industry }, true, 2, 100)},
	{"country", text(func(d *Draft) string { return d.Country }, true, 2, 100)},
	{"city", text(func(d *Draft) string { return d.City }, true, 2, 100)},
}

var basicRules = map[ListingType][]rule{
	ListingTypeBusinessSale: {
		{"business_name", text(func(d *Draft) string { return d.BusinessName }, true, 2, 150)},
		{"year_established", year(func(d *Draft) *float64 { return d.YearEstablished }, true)},
		{"employee_count", count(func(d *Draft) *float64 { return d.EmployeeCount }, 0, false)},
	},
	ListingTypeFranchiseSale: {
		{"brand_name", text(func(d *Draft) string { return d.BrandName }, true, 2, 150)},
		{"year_founded", year(func(d *Draft) *float64 { return d.YearFounded }, true)},
		{"total_units", count(func(d *Draft) *float64 { return d.TotalUnits }, 1, true)},
	},
	ListingTypeInvestmentOpportunity: {
		{"company_name", text(func(d *Draft) string { return d.CompanyName }, true, 2, 150)},
		{"year_founded", year(func(d *Draft) *float64 { return d.YearFounded }, true)},
		{"employee_count", count(func(d *Draft) *float64 { return d.EmployeeCount }, 0, false)},
		{"investment_type", oneOf(func(d *Draft) string { return d.InvestmentType }, investmentTypes, true)},
	},
}

var financialRules = map[ListingType][]rule{
	ListingTypeBusinessSale: {
		{"annual_revenue", positive(func(d *Draft) *float64 { return d.AnnualRevenue }, true)},
		{"annual_profit", nonNegative(func(d *Draft) *float64 { return d.AnnualProfit }, true)},
		{"asking_price", positive(func(d *Draft) *float64 { return d.AskingPrice }, true)},
		{"inventory_value", nonNegative(func(d *Draft) *float64 { return d.InventoryValue }, false)},
	},
	ListingTypeFranchiseSale: {
		{"franchise_fee", positive(func(d *Draft) *float64 { return d.FranchiseFee }, true)},
		{"initial_investment", positive(func(d *Draft) *float64 { return d.InitialInvestment }, true)},
		{"royalty_percentage", percentage(func(d *Draft) *float64 { return d.RoyaltyPercentage }, true)},
		{"marketing_fee_percentage", percentage(func(d *Draft) *float64 { return d.MarketingFeePercentage }, false)},
		{"average_unit_revenue", nonNegative(func(d *Draft) *float64 { return d.AverageUnitRevenue }, false)},
	},
	ListingTypeInvestmentOpportunity: {
		{"funding_amount", positive(func(d *Draft) *float64 { return d.FundingAmount }, true)},
		{"minimum_investment", func(d *Draft, now time.Time) string {
			if msg := positive(func(d *Draft) *float64 { return d.MinimumInvestment }, true)(d, now); msg != "" {
				return msg
			}
			if d.FundingAmount != nil && *d.MinimumInvestment > *d.FundingAmount {
				return "Minimum investment cannot exceed the funding amount."
			}
			return ""
		}},
		{"equity_offered_percentage", func(d *Draft, now time.Time) string {
			required := d.InvestmentType == InvestmentTypeEquity
			return percentage(func(d *Draft) *float64 { return d.EquityOfferedPercentage }, required)(d, now)
		}},
		{"pre_money_valuation", positive(func(d *Draft) *float64 { return d.PreMoneyValuation }, false)},
		{"annual_revenue", nonNegative(func(d *Draft) *float64 { return d.AnnualRevenue }, false)},
	},
}

var storyRules = map[ListingType][]rule{
	ListingTypeBusinessSale: {
		{"description", text(func(d *Draft) string { return d.Description }, true, LongTextMin, LongTextMax)},
		{"reason_for_sale", text(func(d *Draft) string { return d.ReasonForSale }, true, ShortTextMin, ShortTextMax)},
		{"owner_involvement", oneOf(func(d *Draft) string { return d.OwnerInvolvement }, ownerInvolvements, true)},
	},
	ListingTypeFranchiseSale: {
		{"concept", text(func(d *Draft) string { return d.Concept }, true, LongTextMin, LongTextMax)},
		{"target_customer", text(func(d *Draft) string { return d.TargetCustomer }, true, ShortTextMin, ShortTextMax)},
		{"support_provided", func(d *Draft, _ time.Time) string {
			if len(d.SupportProvided) == 0 {
				return "Select at least one kind of support provided."
			}
			for _, s := range d.SupportProvided {
				if !contains(supportOptions, s) {
					return msgOption
				}
			}
			return ""
		}},
	},
	ListingTypeInvestmentOpportunity: {
		{"overview", text(func(d *Draft) string { return d.Overview }, true, LongTextMin, LongTextMax)},
		{"scalability_reason", text(func(d *Draft) string { return d.ScalabilityReason }, true, ShortTextMin, ShortTextMax)},
		{"use_of_funds", text(func(d *Draft) string { return d.UseOfFunds }, false, ShortTextMin, ShortTextMax)},
	},
}

func text(get func(*Draft) string, required bool, min, max int) check {
	return func(d *Draft, _ time.Time) string {
		v := strings.TrimSpace(get(d))
		if v == "" {
			if required {
				return msgRequired
			}
			return ""
		}
		n := utf8.RuneCountInString(v)
		if n < min {
			return fmt.Sprintf("Must be at least %d characters.", min)
		}
		if n > max {
			return fmt.Sprintf("Must be at most %d characters.", max)
		}
		return ""
	}
}

func oneOf(get func(*Draft) string, options []string, required bool) check {
	return func(d *Draft, _ time.Time) string {
		v := get(d)
		if v == "" {
			if required {
				return msgRequired
			}
			return ""
		}
		if !contains(options, v) {
			return msgOption
		}
		return ""
	}
}

func number(get func(*Draft) *float64, required bool, valid func(float64) string) check {
	return func(d *Draft, _ time.Time) string {
		v := get(d)
		if v == nil {
			if required {
				return msgRequired
			}
			return ""
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return "Must be a number."
		}
		return valid(*v)
	}
}

func positive(get func(*Draft) *float64, required bool) check {
	return number(get, required, func(v float64) string {
		if v <= 0 {
			return msgPositive
		}
		return ""
	})
}

func nonNegative(get func(*Draft) *float64, required bool) check {
	return number(get, required, func(v float64) string {
		if v < 0 {
			return msgNonNegative
		}
		return ""
	})
}

func percentage(get func(*Draft) *float64, required bool) check {
	return number(get, required, func(v float64) string {
		if v < 0 || v > 100 {
			return msgPercentage
		}
		return ""
	})
}

func count(get func(*Draft) *float64, min float64, required bool) check {
	return number(get, required, func(v float64) string {
		if v != math.Trunc(v) {
			return msgWholeNumber
		}
		if v < min {
			return fmt.Sprintf("Must be at least %d.", int64(min))
		}
		return ""
	})
}

func year(get func(*Draft) *float64, required bool) check {
	return func(d *Draft, now time.Time) string {
		return number(get, required, func(v float64) string {
			if v != math.Trunc(v) {
				return msgWholeNumber
			}
			if v < MinYear || v > float64(now.Year()) {
				return fmt.Sprintf("Year must be between %d and %d.", MinYear, now.Year())
			}
			return ""
		})(d, now)
	}
}

func fileRefMessage(f FileRef) string {
	if upload.IsPlaceholderName(f.Name) {
		return "The selected file has no name. Please choose it again."
	}
	if f.Size <= 0 {
		return fmt.Sprintf("The file %q is empty.", f.Name)
	}
	return ""
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]FileRef) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
