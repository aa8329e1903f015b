package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValidationError reports malformed or incomplete client input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func missingField(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ParseSubmitRequest validates an untyped payload, as produced by decoding
// JSON into a map, and builds a SubmitScrapeJobRequest from it. The first
// problem found aborts parsing.
func ParseSubmitRequest(raw map[string]any) (*SubmitScrapeJobRequest, error) {
	rawURL, ok := raw["url"]
	if !ok || rawURL == nil {
		return nil, missingField("url", "The 'url' field is required.")
	}

	req := &SubmitScrapeJobRequest{
		URL:      toText(rawURL),
		Elements: []ScrapeElement{},
	}

	if rawElements := raw["elements"]; rawElements != nil {
		items, ok := rawElements.([]any)
		if !ok {
			return nil, &ValidationError{Field: "elements", Message: "The 'elements' field must be a list."}
		}
		for _, item := range items {
			el, err := parseElement(item)
			if err != nil {
				return nil, err
			}
			req.Elements = append(req.Elements, el)
		}
	}

	req.JobOptions = parseJobOptions(raw["job_options"])
	return req, nil
}

// ParseSubmitRequestJSON decodes and validates a JSON request document.
func ParseSubmitRequestJSON(data []byte) (*SubmitScrapeJobRequest, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return ParseSubmitRequest(raw)
}

func parseElement(item any) (ScrapeElement, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return ScrapeElement{}, &ValidationError{Field: "elements", Message: "Each element must be an object."}
	}
	for _, field := range []string{"name", "xpath"} {
		if v, ok := m[field]; !ok || v == nil {
			return ScrapeElement{}, missingField(field, "Missing required element field: "+field)
		}
	}

	el := ScrapeElement{
		Name:  toText(m["name"]),
		XPath: toText(m["xpath"]),
	}
	if v := m["url"]; v != nil {
		u := toText(v)
		el.URL = &u
	}
	return el, nil
}

// parseJobOptions is permissive: anything unusable falls back to defaults.
func parseJobOptions(v any) JobOptions {
	opts := JobOptions{CustomHeaders: map[string]string{}}
	m, ok := v.(map[string]any)
	if !ok {
		return opts
	}
	opts.MultiPageScrape = truthy(m["multi_page_scrape"])
	if headers, ok := m["custom_headers"].(map[string]any); ok {
		for k, hv := range headers {
			opts.CustomHeaders[k] = toText(hv)
		}
	}
	return opts
}

// toText renders a decoded JSON value as text.
func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
