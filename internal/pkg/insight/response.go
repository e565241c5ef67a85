// Package insight normalizes the responses of the analysis backend.
//
// The backend answers with a [Response] tagged by its status. Its insight payload is not stable:
// depending on the backend variant, it carries a row count, the rows themselves, both or neither.
// [Normalize] reconciles all these shapes into a single [Outcome].
package insight

import (
	"bytes"
	"encoding/json"
	"math"
)

// Status discriminates the shape of a [Response].
type Status string

// Known response statuses.
const (
	StatusSuccess  Status = "success"
	StatusRejected Status = "rejected"
	StatusError    Status = "error"
)

// Response is the raw answer of an analysis request.
type Response struct {
	Status     Status      `json:"status"`
	Confidence float64     `json:"confidence"`
	Insight    *RawInsight `json:"insight,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	Suggestion string      `json:"suggestion,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// Parse decodes a [Response] from a JSON body.
func Parse(body []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(body, &r); err != nil {
		return Response{}, err
	}

	return r, nil
}

// RawInsight is the insight payload as sent by the backend.
//
// Every field is optional. A field with an unexpected type is treated as absent.
type RawInsight struct {
	Summary *string
	Rows    *int
	Data    []Row
	HasData bool
}

// UnmarshalJSON decodes the payload field by field, so that one malformed field does not discard the others.
func (ri *RawInsight) UnmarshalJSON(data []byte) error {
	*ri = RawInsight{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil //nolint:nilerr // a malformed insight is absorbed by normalization
	}

	if raw, ok := fields["summary"]; ok {
		var summary string
		if err := json.Unmarshal(raw, &summary); err == nil {
			ri.Summary = &summary
		}
	}

	if raw, ok := fields["rows"]; ok {
		var rows float64
		if err := json.Unmarshal(raw, &rows); err == nil && isCount(rows) {
			n := int(rows)
			ri.Rows = &n
		}
	}

	if raw, ok := fields["data"]; ok && !isNull(raw) {
		var rows []Row
		if err := json.Unmarshal(raw, &rows); err == nil {
			ri.Data = rows
			ri.HasData = true
		}
	}

	return nil
}

// MarshalJSON encodes only the fields that are present.
func (ri RawInsight) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, 3)
	if ri.Summary != nil {
		fields["summary"] = *ri.Summary
	}

	if ri.Rows != nil {
		fields["rows"] = *ri.Rows
	}

	if ri.HasData {
		data := ri.Data
		if data == nil {
			data = []Row{}
		}
		fields["data"] = data
	}

	return json.Marshal(fields)
}

// isCount reports whether f is a whole, non-negative number that fits a row count.
func isCount(f float64) bool {
	return f >= 0 && f <= math.MaxInt32 && f == math.Trunc(f)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
