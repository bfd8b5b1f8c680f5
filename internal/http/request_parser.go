// Package http serves the ledger as a JSON API.
//
// This file turns request bodies and query strings into domain values.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"anwarfarm/internal/core"
	"anwarfarm/internal/ledger"
)

const maxBodyBytes = 64 << 10

// errBadBody marks a body that could not be read or decoded at all.
var errBadBody = errors.New("malformed request body")

// RequestBodyParser reads a JSON object or a urlencoded form. Values are
// returned as strings either way so form fields like "1.500" and JSON
// numbers go through the same amount parser.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads the body once, up to maxBodyBytes.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as JSON when it looks like an object, as a form otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errBadBody, p.err)
		return p.err
	}
	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}
	if trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", errBadBody, err)
		}
		return p.err
	}
	p.formData, p.err = url.ParseQuery(trimmed)
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errBadBody, p.err)
	}
	return p.err
}

// Get returns a sanitized string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseTransactionInput builds a TransactionInput from the body. Amount and
// date syntax errors are returned as core sentinel errors; the remaining rules
// are checked by TransactionInput.Validate.
func ParseTransactionInput(p *RequestBodyParser) (core.TransactionInput, error) {
	if err := p.Parse(); err != nil {
		return core.TransactionInput{}, err
	}

	var in core.TransactionInput
	in.Description = p.Get("description")

	if raw := p.Get("date"); raw != "" {
		d, err := core.ParseDate(raw)
		if err != nil {
			return core.TransactionInput{}, err
		}
		in.Date = d
	}

	var err error
	if in.Income, err = core.ParseAmount(p.Get("income")); err != nil {
		return core.TransactionInput{}, fmt.Errorf("income: %w", err)
	}
	if in.Outcome, err = core.ParseAmount(p.Get("outcome")); err != nil {
		return core.TransactionInput{}, fmt.Errorf("outcome: %w", err)
	}
	return in, nil
}

// ParseFilter reads search, type, start and end from the query string.
// Unparsable dates leave that side of the range open.
func ParseFilter(query url.Values) ledger.Filter {
	f := ledger.Filter{
		Search: sanitizeInput(query.Get("search")),
		Type:   core.ParseTxType(query.Get("type")),
	}
	if v := strings.TrimSpace(query.Get("start")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			f.Start = d
		}
	}
	if v := strings.TrimSpace(query.Get("end")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			f.End = d
		}
	}
	return f
}
