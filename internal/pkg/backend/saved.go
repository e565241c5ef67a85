package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// SavedInsight is an insight bookmarked on the backend.
type SavedInsight struct {
	ID         int64   `json:"id"`
	Query      string  `json:"query"`
	View       string  `json:"view"`
	Insight    string  `json:"insight"`
	Confidence float64 `json:"confidence"`
	CreatedAt  string  `json:"created_at"`
}

// UnmarshalJSON accepts an insight stored either as text or as a JSON document.
func (s *SavedInsight) UnmarshalJSON(data []byte) error {
	type alias SavedInsight
	var raw struct {
		alias

		Insight json.RawMessage `json:"insight"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = SavedInsight(raw.alias)
	s.Insight = rawText(raw.Insight)

	return nil
}

type savedInsightsEnvelope struct {
	Status string         `json:"status"`
	Data   []SavedInsight `json:"data"`
}

// SavedInsights lists the saved insights: GET /saved-insights.
//
// Both the {"status", "data"} envelope and a bare JSON array are accepted.
func (c *Client) SavedInsights(ctx context.Context) ([]SavedInsight, error) {
	const op = "fetch saved insights"

	body, err := c.do(ctx, op, http.MethodGet, c.base.JoinPath("saved-insights"), nil)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var list []SavedInsight
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformedBody, err)
		}

		return list, nil
	}

	var envelope savedInsightsEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformedBody, err)
	}

	if envelope.Data == nil {
		return []SavedInsight{}, nil
	}

	return envelope.Data, nil
}

func rawText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		return text
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}

	return buf.String()
}
