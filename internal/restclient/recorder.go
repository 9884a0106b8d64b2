package restclient

import (
	"context"
	"time"
)

// CallRecord describes one completed request.
type CallRecord struct {
	Operation string
	Method    string
	URL       string
	Status    int
	Duration  time.Duration
	Time      time.Time
	Err       error
}

// CallRecorder receives a CallRecord for each request a RestClient makes.
// Errors are logged by the caller and never fail the request.
type CallRecorder interface {
	RecordCall(ctx context.Context, rec CallRecord) error
}

type operationKey struct{}

// WithOperation names the API operation a request belongs to, for tracing and recording.
func WithOperation(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operationKey{}, name)
}

// OperationFromContext returns the operation name set by WithOperation.
func OperationFromContext(ctx context.Context) string {
	name, _ := ctx.Value(operationKey{}).(string)
	return name
}
