package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"catatan/internal/editor"
)

// maxBodyBytes bounds draft posts; a draft is five short fields.
const maxBodyBytes = 16 << 10

// draftFields are the names accepted from clients, in application order.
var draftFields = []string{
	editor.FieldDate,
	editor.FieldDescription,
	editor.FieldAmount,
	editor.FieldAccount,
	editor.FieldCategory,
}

// FieldChange is one field-change event carried by a request.
type FieldChange struct {
	Field string
	Value string
}

// RequestBodyParser reads a form-encoded or JSON body once. htmx sends forms;
// JSON is accepted for scripted clients.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]interface{}
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errors.New("request body too large")
	}
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}
	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		p.err = json.Unmarshal(p.body, &p.jsonData)
		return p.err
	}
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Lookup returns the sanitized value for key and whether it was present.
// Descriptions keep inner whitespace; surrounding whitespace is the editor's concern.
func (p *RequestBodyParser) Lookup(key string) (string, bool) {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val)), true
		}
		return "", false
	}
	if p.formData != nil {
		if vals, ok := p.formData[key]; ok && len(vals) > 0 {
			return sanitizeInput(vals[0]), true
		}
	}
	return "", false
}

// DraftChanges returns the draft fields present in the body.
func (p *RequestBodyParser) DraftChanges() []FieldChange {
	var out []FieldChange
	for _, f := range draftFields {
		if v, ok := p.Lookup(f); ok {
			out = append(out, FieldChange{Field: f, Value: v})
		}
	}
	return out
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab, newline and carriage return.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
