package suggest

import (
	"curator/internal/boards"
)

// Confidence thresholds. Both lower bounds are inclusive.
const (
	AutoApplyThreshold = 0.85
	ConfirmThreshold   = 0.70
)

// Mode is the routing decision for a suggestion.
type Mode int

const (
	ModeIgnore Mode = iota
	ModeConfirm
	ModeAutoApply
)

func (m Mode) String() string {
	switch m {
	case ModeAutoApply:
		return "auto-apply"
	case ModeConfirm:
		return "confirm"
	default:
		return "ignore"
	}
}

// ModeFor maps a confidence score onto a Mode.
func ModeFor(confidence float64) Mode {
	switch {
	case confidence >= AutoApplyThreshold:
		return ModeAutoApply
	case confidence >= ConfirmThreshold:
		return ModeConfirm
	default:
		return ModeIgnore
	}
}

// Plan is the set of storage writes derived from one suggestion.
type Plan struct {
	BoardToCreate   *boards.Draft
	BoardIDsToAddTo []int64
	TargetImageID   int64
}

// Decision carries the mode and, unless the mode is ignore, the plan.
// Invalid holds the validation error when a malformed suggestion was
// downgraded to ignore.
type Decision struct {
	Mode       Mode
	Plan       *Plan
	Suggestion Suggestion
	Invalid    error
}

// Decide validates s and turns it into a Decision for imageID. Board ids
// are forwarded verbatim without checking they exist.
func Decide(s Suggestion, imageID int64) Decision {
	if err := s.Validate(); err != nil {
		return Decision{Mode: ModeIgnore, Suggestion: s, Invalid: err}
	}
	mode := ModeFor(s.Confidence)
	d := Decision{Mode: mode, Suggestion: s}
	if mode == ModeIgnore {
		return d
	}
	plan := &Plan{TargetImageID: imageID}
	switch s.Action {
	case ActionAddToExisting:
		plan.BoardIDsToAddTo = append([]int64(nil), s.SuggestedBoards...)
	case ActionCreateNew:
		draft := *s.NewBoard
		plan.BoardToCreate = &draft
	}
	d.Plan = plan
	return d
}
