package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnexpectedShape is returned for list responses that are neither a bare list nor a
// data/results envelope.
var ErrUnexpectedShape = errors.New("unexpected list response shape")

// List is a normalized list response.
type List struct {
	Rows            []json.RawMessage
	Draw            int
	RecordsTotal    int
	RecordsFiltered int
	Enveloped       bool
}

type listEnvelope struct {
	Data            *[]json.RawMessage `json:"data"`
	Results         *[]json.RawMessage `json:"results"`
	Draw            *int               `json:"draw"`
	RecordsTotal    *int               `json:"recordsTotal"`
	RecordsFiltered *int               `json:"recordsFiltered"`
	Count           *int               `json:"count"`
}

// ParseList accepts a bare JSON list or an object carrying the list under data or results.
func ParseList(body []byte) (*List, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnexpectedShape)
	}
	switch trimmed[0] {
	case '[':
		var rows []json.RawMessage
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
		return &List{Rows: rows, RecordsTotal: len(rows), RecordsFiltered: len(rows)}, nil
	case '{':
		var env listEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
		var rows *[]json.RawMessage
		switch {
		case env.Data != nil:
			rows = env.Data
		case env.Results != nil:
			rows = env.Results
		default:
			return nil, fmt.Errorf("%w: no data or results key", ErrUnexpectedShape)
		}
		l := &List{Rows: *rows, Enveloped: true}
		l.RecordsTotal = firstInt(len(l.Rows), env.RecordsTotal, env.Count)
		l.RecordsFiltered = firstInt(l.RecordsTotal, env.RecordsFiltered, env.Count)
		if env.Draw != nil {
			l.Draw = *env.Draw
		}
		return l, nil
	default:
		return nil, fmt.Errorf("%w: %.20q", ErrUnexpectedShape, trimmed)
	}
}

func firstInt(def int, vals ...*int) int {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return def
}

// Records decodes every row into a generic map. Numbers keep their JSON text.
func (l *List) Records() ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(l.Rows))
	for i, raw := range l.Rows {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// DecodeRows decodes every row of l into T.
func DecodeRows[T any](l *List) ([]T, error) {
	out := make([]T, 0, len(l.Rows))
	for i, raw := range l.Rows {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
