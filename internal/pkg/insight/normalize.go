package insight

import (
	"fmt"
	"math"
)

// Kind is the kind of a normalized [Outcome].
type Kind string

// Outcome kinds.
const (
	KindSuccess  Kind = "success"
	KindRejected Kind = "rejected"
	KindError    Kind = "error"
)

// Canonical is the normalized insight.
//
// Summary and Data are always set (possibly empty). Rows is the number of rows in Data whenever
// the backend sent rows.
type Canonical struct {
	Summary string `json:"summary"`
	Rows    int    `json:"rows"`
	Data    []Row  `json:"data"`
}

// Outcome is the result of an analysis, as consumed by the dashboard.
//
// An [Outcome] is always complete for its kind:
//   - success: Insight and Confidence
//   - rejected: Reason, Suggestion and Confidence
//   - error: Message only
type Outcome struct {
	Kind       Kind       `json:"kind"`
	Confidence Confidence `json:"confidence,omitempty"`
	Insight    *Canonical `json:"insight,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	Suggestion string     `json:"suggestion,omitempty"`
	Message    string     `json:"message,omitempty"`
}

const defaultErrorMessage = "the analysis service reported an error"

// Normalize converts a raw [Response] into an [Outcome].
func Normalize(r Response) Outcome {
	switch r.Status {
	case StatusSuccess:
		canonical := Canonicalize(r.Insight)

		return Outcome{
			Kind:       KindSuccess,
			Confidence: Confidence(r.Confidence),
			Insight:    &canonical,
		}
	case StatusRejected:
		return Outcome{
			Kind:       KindRejected,
			Confidence: Confidence(r.Confidence),
			Reason:     r.Reason,
			Suggestion: r.Suggestion,
		}
	case StatusError:
		msg := r.Message
		if msg == "" {
			msg = defaultErrorMessage
		}

		return Outcome{Kind: KindError, Message: msg}
	default:
		return Outcome{Kind: KindError, Message: fmt.Sprintf("unexpected response status %q", r.Status)}
	}
}

// Failure converts a transport or decoding error into an error [Outcome].
func Failure(err error) Outcome {
	if err == nil {
		return Outcome{Kind: KindError, Message: "unexpected error"}
	}

	return Outcome{Kind: KindError, Message: err.Error()}
}

// Canonicalize builds a [Canonical] insight from a raw payload, which may be nil.
//
// The row count is taken, in order, from the length of the data when data is present,
// then from the raw row count, then defaults to 0. A row count sent by the backend never
// overrides the actual rows.
func Canonicalize(raw *RawInsight) Canonical {
	c := Canonical{Data: []Row{}}
	if raw == nil {
		return c
	}

	if raw.Summary != nil {
		c.Summary = *raw.Summary
	}

	switch {
	case raw.HasData:
		if raw.Data != nil {
			c.Data = raw.Data
		}
		c.Rows = len(c.Data)
	case raw.Rows != nil:
		c.Rows = *raw.Rows
	}

	return c
}

// Confidence is a score in [0, 1] reported by the backend.
type Confidence float64

// Level is a qualitative confidence tier.
type Level int

// Confidence tiers.
const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
)

const (
	highThreshold   = 0.8
	mediumThreshold = 0.5
)

// Level returns the tier of the confidence: high from 0.8, medium from 0.5, low below.
func (c Confidence) Level() Level {
	switch {
	case c >= highThreshold:
		return LevelHigh
	case c >= mediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Percent returns the confidence as a rounded percentage.
func (c Confidence) Percent() int {
	f := float64(c)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}

	return int(math.Round(f * 100))
}

// Label returns the display label of the confidence tier, e.g. "High Confidence".
func (c Confidence) Label() string {
	return c.Level().Label()
}

// String returns a short name for the tier.
func (l Level) String() string {
	switch l {
	case LevelHigh:
		return "high"
	case LevelMedium:
		return "medium"
	default:
		return "low"
	}
}

// Label returns the display label of the tier.
func (l Level) Label() string {
	switch l {
	case LevelHigh:
		return "High Confidence"
	case LevelMedium:
		return "Medium Confidence"
	default:
		return "Low Confidence"
	}
}
