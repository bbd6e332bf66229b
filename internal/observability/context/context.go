package context

import (
	stdcontext "context"
	"strings"

	"github.com/AdrianPopi/acont/internal/merchantcontext"
)

type requestIDKey struct{}

// WithRequestID stores the request correlation ID.
func WithRequestID(ctx stdcontext.Context, requestID string) stdcontext.Context {
	return stdcontext.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

// RequestIDFromContext returns the request correlation ID, or an empty string.
func RequestIDFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// MerchantIDFromContext returns the merchant ID as a string for log fields.
func MerchantIDFromContext(ctx stdcontext.Context) string {
	id, ok := merchantcontext.MerchantIDFromContext(ctx)
	if !ok {
		return ""
	}
	return id.String()
}
