package chat

import "context"

type contextKey int

const (
	keyChatID contextKey = iota
)

// ContextWithID returns a new context carrying the conversation ID.
func ContextWithID(ctx context.Context, chatID string) context.Context {
	return context.WithValue(ctx, keyChatID, chatID)
}

// IDFromContext returns the conversation ID of a Run,
// or an empty string outside of one.
func IDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(keyChatID).(string); ok {
		return v
	}
	return ""
}
