package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInFlight is returned by Do when the trigger's previous request has not settled.
var ErrInFlight = errors.New("request already in flight")

type Kind int

const (
	KindUnclassified Kind = iota
	KindField
	KindList
	KindDetail
	KindForbidden
	KindUnauthenticated
	KindUnreachable
)

func (k Kind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindList:
		return "list"
	case KindDetail:
		return "detail"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindUnreachable:
		return "unreachable"
	default:
		return "unclassified"
	}
}

// Fixed user-facing messages.
const (
	MsgUnreachable     = "Cannot reach the server. Please check your connection."
	MsgUnauthenticated = "Please log in."
	MsgForbidden       = "You are not authorized to perform this action."
)

// nonFieldKey is rendered without a field-name prefix.
const nonFieldKey = "non_field_errors"

// FieldError is one key of a field-keyed error body, in response order.
type FieldError struct {
	Key      string
	Messages []string
}

// APIError is a classified failed request.
type APIError struct {
	Kind       Kind
	Status     int
	StatusText string
	Message    string
	// Body is the raw response body, kept for handlers that read structured payloads.
	Body   []byte
	Fields []FieldError
}

func (e *APIError) Error() string { return e.Message }

// JSON reports whether the body is valid JSON.
func (e *APIError) JSON() bool {
	return len(bytes.TrimSpace(e.Body)) > 0 && json.Valid(e.Body)
}

// Decode unmarshals the body into v.
func (e *APIError) Decode(v any) error {
	if !e.JSON() {
		return errors.New("error body is not JSON")
	}
	return json.Unmarshal(e.Body, v)
}

// Field returns the messages for key.
func (e *APIError) Field(key string) ([]string, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Messages, true
		}
	}
	return nil, false
}

// Classify turns a failed response into an APIError.
func Classify(status int, statusText string, body []byte) *APIError {
	e := &APIError{Status: status, StatusText: statusText, Body: body}

	switch status {
	case 0:
		e.Kind, e.Message = KindUnreachable, MsgUnreachable
		return e
	case 401:
		e.Kind, e.Message = KindUnauthenticated, MsgUnauthenticated
		return e
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		classifyJSON(e, trimmed)
		return e
	}

	switch {
	case status == 403:
		e.Kind, e.Message = KindForbidden, MsgForbidden
	case statusText != "" && statusText != "error":
		e.Message = fmt.Sprintf("Error %d: %s", status, statusText)
	default:
		e.Message = fmt.Sprintf("Request failed (%d).", status)
	}
	return e
}

func classifyJSON(e *APIError, body []byte) {
	switch body[0] {
	case '{':
		fields := orderedFields(body)
		e.Fields = fields
		for _, f := range fields {
			if f.Key == "detail" && len(f.Messages) == 1 && f.Messages[0] != "" {
				e.Kind, e.Message = KindDetail, f.Messages[0]
				if e.Status == 403 {
					e.Kind = KindForbidden
				}
				return
			}
		}
		if len(fields) == 0 && e.Status == 403 {
			e.Kind, e.Message = KindForbidden, MsgForbidden
			return
		}
		e.Kind, e.Message = KindField, FormatFields(fields, "\n")
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err == nil {
			parts := make([]string, 0, len(items))
			for _, it := range items {
				parts = append(parts, scalarText(it))
			}
			e.Kind, e.Message = KindList, strings.Join(parts, " ")
			return
		}
		e.Message = string(body)
	default:
		e.Message = string(body)
		if e.Status == 403 {
			e.Kind = KindForbidden
		}
	}
}

// FormatFields renders "<Friendly>: a, b" per field joined by sep; non_field_errors
// has no prefix.
func FormatFields(fields []FieldError, sep string) string {
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		msg := strings.Join(f.Messages, ", ")
		if f.Key == nonFieldKey {
			lines = append(lines, msg)
			continue
		}
		lines = append(lines, FriendlyName(f.Key)+": "+msg)
	}
	return strings.Join(lines, sep)
}

var friendlyNames = map[string]string{
	"username":                     "Username",
	"email":                        "Email",
	"password":                     "Password",
	"password2":                    "Password (again)",
	"aircraft_model":               "Aircraft model",
	"aircraft_model_id":            "Aircraft model",
	"aircraft_model_compatibility": "Compatible model",
	"assigned_to_assembly_team":    "Assigned team",
	"target_completion_date":       "Target date",
	"work_order_id":                "Work order",
	"part_type":                    "Part type",
	"team_type":                    "Team type",
	"quantity":                     "Quantity",
	"notes":                        "Notes",
	"team":                         "Team",
	"name":                         "Name",
}

// FriendlyName maps an API field key to a label.
func FriendlyName(key string) string {
	if n, ok := friendlyNames[key]; ok {
		return n
	}
	// Casers keep state, so one per call.
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

func orderedFields(body []byte) []FieldError {
	dec := json.NewDecoder(bytes.NewReader(body))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	var out []FieldError
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return out
		}
		key, _ := kt.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return out
		}
		out = append(out, FieldError{Key: key, Messages: messagesOf(raw)})
	}
	return out
}

func messagesOf(raw json.RawMessage) []string {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, it := range list {
			out = append(out, scalarText(it))
		}
		return out
	}
	return []string{scalarText(raw)}
}

// scalarText is a JSON string's value, or the compact JSON text of anything else.
func scalarText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err == nil {
		return buf.String()
	}
	return string(raw)
}
