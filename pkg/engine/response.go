package engine

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Header names and values stamped onto every synthesized response.
const (
	// PoweredByHeader is the reserved marker header. It is always present
	// on synthesized responses; rule headers cannot remove it.
	PoweredByHeader = "X-Powered-By"

	// PoweredByValue marks a response as synthesized by this engine.
	PoweredByValue = "stubwire"
)

// Response is the synthesized reply handed back to the interception
// collaborator in place of a real network response.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// Header holds the merged response headers, marker included.
	Header map[string]string

	// Body is the rendered payload, nil for HEAD responses.
	Body []byte
}

// StatusText returns the standard reason phrase for the status code.
func (r *Response) StatusText() string {
	return http.StatusText(r.Status)
}

// renderBody turns a rule's body template into bytes. Strings and byte
// slices pass through verbatim; any other value is rendered as JSON.
// The second result reports whether the bytes are known to be JSON.
func renderBody(body any) ([]byte, bool, error) {
	switch b := body.(type) {
	case nil:
		return nil, false, nil
	case string:
		return []byte(b), false, nil
	case []byte:
		out := make([]byte, len(b))
		copy(out, b)
		return out, false, nil
	case json.RawMessage:
		out := make([]byte, len(b))
		copy(out, b)
		return out, true, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, false, fmt.Errorf("render body: %w", err)
		}
		return data, true, nil
	}
}

// looksLikeJSON reports whether the payload appears to be JSON content.
func looksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	return (strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")) ||
		(strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"))
}

// looksLikeXML reports whether the payload appears to be XML content.
func looksLikeXML(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "<?xml") || strings.HasPrefix(s, "<")
}
