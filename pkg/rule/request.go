package rule

import "strings"

// Request is the descriptor of one intercepted outbound call, handed to the
// engine by the interception collaborator.
type Request struct {
	// URL is the full request URL (or path) as issued by the caller.
	URL string

	// Method is the request method. Empty defaults to GET during matching.
	Method string

	// Header holds request headers, single-valued.
	Header map[string]string

	// Body is the raw request payload, nil when absent.
	Body []byte
}

// EffectiveMethod returns the upper-cased method, defaulting to GET.
func (r *Request) EffectiveMethod() string {
	if r == nil || r.Method == "" {
		return "GET"
	}
	return strings.ToUpper(r.Method)
}

// HeaderGet returns the value for a header name, case-insensitively.
func (r *Request) HeaderGet(name string) string {
	if r == nil {
		return ""
	}
	if v, ok := r.Header[name]; ok {
		return v
	}
	for k, v := range r.Header {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
