package models

import "net/http"

// Response carries the metadata of an HTTP response without its body.
type Response struct {
	Status int
	Header http.Header
}

// ResponseBody wraps a single decoded JSON document with its response.
type ResponseBody struct {
	Response
	Body any
}

// Map returns the body as a JSON object, if it is one.
func (r *ResponseBody) Map() (map[string]any, bool) {
	m, ok := r.Body.(map[string]any)
	return m, ok
}

// ResponseBodyList wraps a decoded JSON array with its response.
type ResponseBodyList struct {
	Response
	Body []any
}

// Len returns the number of decoded items.
func (r *ResponseBodyList) Len() int {
	return len(r.Body)
}

// Items returns the elements that decoded to JSON objects.
func (r *ResponseBodyList) Items() []map[string]any {
	items := make([]map[string]any, 0, len(r.Body))
	for _, v := range r.Body {
		if m, ok := v.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}
