// Package jobtype provides job type classification for observability.
//
// Job types separate single playground runs started by an editor from
// batch tests and scheduled maintenance in metrics and logs.
//
// Usage:
//
//	// In batch tests:
//	ctx = jobtype.WithJobType(ctx, jobtype.Batch)
//
//	// In metrics/logging code:
//	jt := jobtype.FromContext(ctx) // Returns Interactive if not set
package jobtype

import "context"

// JobType classifies the type of operation for observability purposes.
type JobType string

const (
	// Interactive represents editor-facing operations: a playground run, an API call.
	// This is the default when no job type is explicitly set.
	Interactive JobType = "interactive"

	// Batch represents a batch test over many trends.
	Batch JobType = "batch"

	// Maintenance represents scheduled cleanup and metric refresh.
	Maintenance JobType = "maintenance"
)

// String returns the string representation of the job type.
func (jt JobType) String() string {
	return string(jt)
}

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey struct{}

// WithJobType returns a new context with the specified job type.
func WithJobType(ctx context.Context, jt JobType) context.Context {
	return context.WithValue(ctx, contextKey{}, jt)
}

// FromContext extracts the job type from context.
// Returns Interactive if no job type is set.
func FromContext(ctx context.Context) JobType {
	if jt, ok := ctx.Value(contextKey{}).(JobType); ok {
		return jt
	}
	return Interactive
}
