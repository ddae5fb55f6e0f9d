package queue

import "context"

// Client is the producer side of the pipeline job queue. Implementations
// must be safe for concurrent use.
type Client interface {
	// Send enqueues a pipeline trigger for a worker to pick up.
	Send(ctx context.Context, msg Message) error
}
