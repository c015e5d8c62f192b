package queue

import (
	"context"
	"time"
)

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher adapts a Client to the analysis dispatcher contract: one
// message per request id, enqueued before the HTTP response returns.
type Dispatcher struct {
	Client Client
}

// Dispatch enqueues the processing step for a request.
func (d *Dispatcher) Dispatch(ctx context.Context, requestID string) error {
	return d.Client.Send(ctx, Message{
		AnalysisRequestID: requestID,
		EnqueuedAt:        time.Now().UTC().Format(time.RFC3339),
		Version:           1,
	})
}
