package middleware

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type contextKey string

const ctxCaller contextKey = "caller"

// CallerFromContext returns the signed-in account a request acts as. ok is
// false when the Auth middleware did not run.
func CallerFromContext(ctx context.Context) (common.Address, bool) {
	if ctx == nil {
		return common.Address{}, false
	}
	addr, ok := ctx.Value(ctxCaller).(common.Address)
	return addr, ok
}

// WithCaller injects the acting account into the context.
func WithCaller(ctx context.Context, addr common.Address) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCaller, addr)
}
