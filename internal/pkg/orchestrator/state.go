package orchestrator

import (
	"github.com/fredbi/insightviz/internal/pkg/binding"
	"github.com/fredbi/insightviz/internal/pkg/insight"
)

// Phase is the phase of the query state machine.
//
// A new submission re-enters [PhaseLoading] from any other phase.
type Phase string

// Phases.
const (
	PhaseIdle     Phase = "idle"
	PhaseLoading  Phase = "loading"
	PhaseSuccess  Phase = "success"
	PhaseRejected Phase = "rejected"
	PhaseError    Phase = "error"
)

func (p Phase) String() string {
	return string(p)
}

// Settled reports whether a submission has completed.
func (p Phase) Settled() bool {
	switch p {
	case PhaseSuccess, PhaseRejected, PhaseError:
		return true
	default:
		return false
	}
}

func phaseOf(k insight.Kind) Phase {
	switch k {
	case insight.KindSuccess:
		return PhaseSuccess
	case insight.KindRejected:
		return PhaseRejected
	default:
		return PhaseError
	}
}

// State is a snapshot of the query state.
//
// Series and Binding survive a new submission: the last valid chart stays visible until a
// successful answer yields a new series.
type State struct {
	View       View             `json:"view"`
	Phase      Phase            `json:"phase"`
	Query      string           `json:"query,omitempty"`
	Generation uint64           `json:"generation"`
	Outcome    *insight.Outcome `json:"outcome,omitempty"`
	Error      string           `json:"error,omitempty"`
	Series     []binding.Point  `json:"series"`
	Binding    *binding.Binding `json:"binding,omitempty"`
}

// Loading reports whether a submission is in flight.
func (s State) Loading() bool {
	return s.Phase == PhaseLoading
}

// Insight returns the canonical insight of a successful submission, or nil.
func (s State) Insight() *insight.Canonical {
	if s.Outcome == nil || s.Outcome.Kind != insight.KindSuccess {
		return nil
	}

	return s.Outcome.Insight
}

// Confidence returns the confidence of a settled success or rejection.
func (s State) Confidence() (insight.Confidence, bool) {
	if s.Outcome == nil || s.Outcome.Kind == insight.KindError {
		return 0, false
	}

	return s.Outcome.Confidence, true
}

func (s State) clone() State {
	c := s
	if s.Series != nil {
		c.Series = append([]binding.Point(nil), s.Series...)
	}
	if s.Binding != nil {
		b := *s.Binding
		c.Binding = &b
	}

	return c
}
