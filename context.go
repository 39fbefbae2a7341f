package jwxt

import "context"

type clientTagContextKey struct{}

// WithClientTag attaches a caller identifier to ctx. The Engine copies it
// into audit events so that concurrent page repositories can be told apart
// in logs.
func WithClientTag(ctx context.Context, tag string) context.Context {
	return context.WithValue(ctx, clientTagContextKey{}, tag)
}

func clientTagFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	tag, _ := ctx.Value(clientTagContextKey{}).(string)
	return tag
}
