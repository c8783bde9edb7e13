// File: internal/draft/validator.go
package draft

import (
	"fmt"
	"time"
)

// FieldError is one user-facing validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the result of validating a step; empty means valid.
type ValidationErrors []FieldError

// Fields returns the failing field names in order.
func (v ValidationErrors) Fields() []string {
	out := make([]string, 0, len(v))
	for _, e := range v {
		out = append(out, e.Field)
	}
	return out
}

// Has reports whether field failed.
func (v ValidationErrors) Has(field string) bool {
	for _, e := range v {
		if e.Field == field {
			return true
		}
	}
	return false
}

// check returns "" when the draft satisfies it, otherwise the message.
type check func(d *Draft, now time.Time) string

type rule struct {
	field string
	check check
}

// Validate runs every rule of step against d and returns all failures.
func Validate(step Step, d *Draft, now time.Time) ValidationErrors {
	var errs ValidationErrors
	forEachRule(step, d, func(r rule) bool {
		if msg := r.check(d, now); msg != "" {
			errs = append(errs, FieldError{Field: r.field, Message: msg})
		}
		return true
	})
	return errs
}

// CanContinue reports whether step is passable. It walks the same rules as
// Validate and stops at the first failure, so it can never return true for a
// step Validate would reject.
func CanContinue(step Step, d *Draft, now time.Time) bool {
	ok := true
	forEachRule(step, d, func(r rule) bool {
		if r.check(d, now) != "" {
			ok = false
			return false
		}
		return true
	})
	return ok
}

func forEachRule(step Step, d *Draft, visit func(rule) bool) {
	if d == nil {
		d = &Draft{}
	}
	steps := []Step{step}
	if step == StepReview {
		steps = []Step{StepSellerInfo, StepBasicInfo, StepFinancials, StepStory, StepMedia}
	}
	for _, s := range steps {
		for _, r := range rulesFor(s, d) {
			if !visit(r) {
				return
			}
		}
	}
}

// rulesFor selects the rule set for step under the draft's current listing
// type; requiredness therefore follows listing_type at call time.
func rulesFor(step Step, d *Draft) []rule {
	switch step {
	case StepSellerInfo:
		return sellerRules
	case StepBasicInfo:
		rules := append([]rule{}, basicCommonRules...)
		return append(rules, basicRules[d.ListingType]...)
	case StepFinancials:
		return financialRules[d.ListingType]
	case StepStory:
		return storyRules[d.ListingType]
	case StepMedia:
		return mediaRules(d)
	}
	return nil
}

func mediaRules(d *Draft) []rule {
	rules := []rule{{"documents_certified", func(d *Draft, _ time.Time) string {
		if !d.DocumentsCertified {
			return "You must certify that the uploaded documents are accurate."
		}
		return ""
	}}}
	for _, key := range sortedKeys(d.Documents) {
		key := key
		rules = append(rules, rule{"documents." + key, func(d *Draft, _ time.Time) string {
			return fileRefMessage(d.Documents[key])
		}})
	}
	return rules
}

// Error lets a non-empty ValidationErrors travel as an error value.
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "no validation errors"
	}
	if len(v) == 1 {
		return fmt.Sprintf("%s: %s", v[0].Field, v[0].Message)
	}
	return fmt.Sprintf("%s: %s (and %d more)", v[0].Field, v[0].Message, len(v)-1)
}
