package tracing

import (
	"context"

	"github.com/GriffinCanCode/termdock/internal/shared/id"
)

// Header carries the request ID on requests and responses.
const Header = "X-Request-ID"

// maxInboundLen bounds client supplied IDs before they reach the logs.
const maxInboundLen = 64

type ctxKey struct{}

// WithRequestID returns a context carrying rid.
func WithRequestID(ctx context.Context, rid id.RequestID) context.Context {
	return context.WithValue(ctx, ctxKey{}, rid)
}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) id.RequestID {
	rid, _ := ctx.Value(ctxKey{}).(id.RequestID)
	return rid
}

// inbound accepts a caller's ID only when it is short and printable.
func inbound(v string) (id.RequestID, bool) {
	if v == "" || len(v) > maxInboundLen {
		return "", false
	}
	for i := 0; i < len(v); i++ {
		if c := v[i]; c < 0x21 || c > 0x7e {
			return "", false
		}
	}
	return id.RequestID(v), true
}
