// Package request turns a tool and a resolved parameter map into a concrete
// HTTP request description, and executes such descriptions.
package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/apibridge/apibridge/catalog"
)

// Description is an executable request. It is plain data: building it has
// no side effects.
type Description struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Body    []byte            `json:"body,omitempty"`
}

// Command renders the description as a human-readable one-liner for
// conversation replies.
func (d *Description) Command() string {
	if len(d.Body) == 0 {
		return fmt.Sprintf("%s %s", d.Method, d.URL)
	}
	return fmt.Sprintf("%s %s %s", d.Method, d.URL, string(d.Body))
}

// Synthesize maps (tool, parameters) to a request description. It is pure
// and deterministic: the same input always produces byte-identical output.
// Query and body keys are therefore emitted in sorted order.
func Synthesize(tool *catalog.Tool, params map[string]any) (*Description, error) {
	method := strings.ToUpper(tool.Endpoint.Method)

	// Work on a copy: path substitution consumes keys.
	remaining := make(map[string]any, len(params))
	for k, v := range params {
		remaining[k] = v
	}

	path := tool.Endpoint.Path
	for _, name := range tool.PathParams() {
		value, ok := remaining[name]
		if !ok {
			return nil, fmt.Errorf("missing path parameter %q", name)
		}
		path = strings.Replace(path, "{"+name+"}", url.PathEscape(stringify(value)), 1)
		delete(remaining, name)
	}

	fullURL := strings.TrimRight(tool.Endpoint.BaseURL, "/") + path
	headers := map[string]string{"Accept": "application/json"}

	desc := &Description{Method: method, Headers: headers}

	switch method {
	case http.MethodGet, http.MethodDelete, http.MethodHead, http.MethodOptions:
		if qs := encodeQuery(remaining); qs != "" {
			fullURL += "?" + qs
		}
	default:
		body, err := encodeBody(remaining)
		if err != nil {
			return nil, err
		}
		if body != nil {
			desc.Body = body
			headers["Content-Type"] = "application/json"
		}
	}

	desc.URL = fullURL
	return desc, nil
}

// encodeQuery renders remaining parameters as URL-encoded key=value pairs
// in sorted key order.
func encodeQuery(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(stringify(params[k])))
	}
	return strings.Join(pairs, "&")
}

// encodeBody renders remaining parameters as a JSON body. A single wrapper
// key named "body" is unwrapped and used directly.
func encodeBody(params map[string]any) ([]byte, error) {
	if len(params) == 0 {
		return nil, nil
	}
	var payload any = params
	if len(params) == 1 {
		if wrapped, ok := params["body"]; ok {
			payload = wrapped
		}
	}
	body, err := marshalSorted(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode body: %w", err)
	}
	return body, nil
}

// marshalSorted is encoding/json marshalling; map keys are already emitted
// in sorted order by the standard library, which is what keeps output
// byte-identical for identical input.
func marshalSorted(v any) ([]byte, error) {
	return json.Marshal(v)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; render integers without ".0".
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
