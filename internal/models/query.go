package models

// Query is a single field/operator/value filter. The client never checks
// that the field or operator is known to the service.
type Query struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value string `json:"value"`
}

// NewQuery builds a Query.
func NewQuery(field, op, value string) *Query {
	return &Query{Field: field, Op: op, Value: value}
}
