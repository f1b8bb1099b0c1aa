package diohttp

import (
	"github.com/tkaspar/dio"
)

// ScopeMiddlewareOption is an option used to configure the scope middleware
// when calling [RequestScopeMiddleware].
type ScopeMiddlewareOption interface {
	applyScopeMiddleware(*scopeMiddleware)
}

type scopeMiddlewareOption func(*scopeMiddleware)

func (o scopeMiddlewareOption) applyScopeMiddleware(m *scopeMiddleware) {
	o(m)
}

// WithScopeLabel sets the scope label request injectors are created under.
func WithScopeLabel(label string) ScopeMiddlewareOption {
	return scopeMiddlewareOption(func(m *scopeMiddleware) {
		m.label = label
	})
}

// WithInjectorOptions sets the options to use when calling
// [dio.Injector.Scoped] for each request.
func WithInjectorOptions(opts ...dio.InjectorOption) ScopeMiddlewareOption {
	return scopeMiddlewareOption(func(m *scopeMiddleware) {
		m.opts = append(m.opts, opts...)
	})
}

// WithNewScopeErrorHandler sets the error handler for when there is an error
// creating a new scope.
func WithNewScopeErrorHandler(fn NewScopeErrorHandler) ScopeMiddlewareOption {
	return scopeMiddlewareOption(func(m *scopeMiddleware) {
		m.newScopeHandler = fn
	})
}

// WithScopeCloseErrorHandler sets the error handler for when there is an
// error closing the scope.
func WithScopeCloseErrorHandler(fn ScopeCloseErrorHandler) ScopeMiddlewareOption {
	return scopeMiddlewareOption(func(m *scopeMiddleware) {
		m.closeHandler = fn
	})
}
