package router

import "context"

// fallbackContext keeps the request context's deadline and cancelation
// while resolving values through the router's base context when the
// request chain has no answer.
type fallbackContext struct {
	context.Context

	base context.Context
}

func (c fallbackContext) Value(key any) any {
	if v := c.Context.Value(key); v != nil {
		return v
	}

	return c.base.Value(key)
}

func requestContext(base, request context.Context) context.Context {
	return fallbackContext{Context: request, base: base}
}
