package port

import "context"

// Tool is the single callable handed to the agent layer.
// Invoke never fails; problems are reported in the returned text.
type Tool interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, query string) string
	Close() error
}
