// File: internal/draft/wizard.go
package draft

import (
	"errors"
	"time"
)

// Step is a wizard position, 1-based.
type Step int

const (
	StepSellerInfo Step = iota + 1
	StepBasicInfo
	StepFinancials
	StepStory
	StepMedia
	StepReview
)

var stepLabels = map[Step]string{
	StepSellerInfo: "Seller Information",
	StepBasicInfo:  "Basic Information",
	StepFinancials: "Financials",
	StepStory:      "Story",
	StepMedia:      "Media & Documents",
	StepReview:     "Review",
}

// Label returns the display label of the step.
func (s Step) Label() string {
	return stepLabels[s]
}

func (s Step) Valid() bool {
	return s >= StepSellerInfo && s <= StepReview
}

var (
	ErrNotOnReview = errors.New("edit is only allowed from the review step")
	ErrInvalidStep = errors.New("step must be between 1 and 5")
)

// Wizard tracks the seller's position in the six step flow.
type Wizard struct {
	Step Step `json:"step"`
}

// NewWizard starts at the seller step.
func NewWizard() Wizard {
	return Wizard{Step: StepSellerInfo}
}

func (w *Wizard) normalize() {
	if !w.Step.Valid() {
		w.Step = StepSellerInfo
	}
}

// Next advances one step when the current step validates. The returned
// errors are non-empty exactly when the step did not change. Next on Review
// is a no-op.
func (w *Wizard) Next(d *Draft, now time.Time) ValidationErrors {
	w.normalize()
	if w.Step == StepReview {
		return nil
	}
	if errs := Validate(w.Step, d, now); len(errs) > 0 {
		return errs
	}
	w.Step++
	return nil
}

// Back moves one step back without validating.
func (w *Wizard) Back() {
	w.normalize()
	if w.Step > StepSellerInfo {
		w.Step--
	}
}

// EditFromReview jumps from Review straight to an earlier step.
func (w *Wizard) EditFromReview(target Step) error {
	w.normalize()
	if w.Step != StepReview {
		return ErrNotOnReview
	}
	if target < StepSellerInfo || target >= StepReview {
		return ErrInvalidStep
	}
	w.Step = target
	return nil
}

func (w *Wizard) Reset() {
	w.Step = StepSellerInfo
}

// CanContinue reports whether Next would currently advance.
func (w *Wizard) CanContinue(d *Draft, now time.Time) bool {
	w.normalize()
	return CanContinue(w.Step, d, now)
}

// Session is the unit the autosave cache stores for a seller.
type Session struct {
	Draft     Draft     `json:"draft"`
	Wizard    Wizard    `json:"wizard"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession returns an empty session on step 1.
func NewSession(now time.Time) *Session {
	return &Session{Wizard: NewWizard(), UpdatedAt: now}
}
