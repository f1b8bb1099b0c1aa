package diohttp

import (
	"log/slog"
	"net/http"

	"github.com/tkaspar/dio"
	"github.com/tkaspar/dio/dioctx"
)

// DefaultScopeLabel is the scope label request injectors are created under
// unless overridden with [WithScopeLabel].
const DefaultScopeLabel = "request"

// RequestScopeMiddleware creates a new child injector scope for each
// request. The scope is closed after the request has been processed.
//
// The current [*http.Request] is seeded into the scope under the key
// dio.TypeKey[*http.Request](), so request-scoped factories can depend on it.
//
// The injector is stored on the request context and can be accessed using
// [dioctx.Injector], [dioctx.Inject], or [dioctx.MustInject].
//
// Available options:
//   - [WithScopeLabel] sets the scope label for request injectors.
//   - [WithInjectorOptions] sets [dio.InjectorOption]s to use when creating each request scope.
//   - [WithNewScopeErrorHandler] sets the error handler for when there is an error creating a new scope.
//   - [WithScopeCloseErrorHandler] sets the error handler for when there is an error closing the scope.
func RequestScopeMiddleware(root *dio.Injector, opts ...ScopeMiddlewareOption) func(http.Handler) http.Handler {
	mw := &scopeMiddleware{
		root:            root,
		label:           DefaultScopeLabel,
		newScopeHandler: defaultNewScopeErrorHandler,
		closeHandler:    defaultScopeCloseErrorHandler,
	}
	for _, opt := range opts {
		opt.applyScopeMiddleware(mw)
	}

	return func(next http.Handler) http.Handler {
		mw.next = next
		return mw
	}
}

// NewScopeErrorHandler is a function that writes an error response to the
// client. This is called by the scope middleware when there is an error
// creating the request injector.
//
// The default handler logs the error to [slog.Default] and writes a
// 500 Internal Server Error response.
type NewScopeErrorHandler = func(w http.ResponseWriter, r *http.Request, err error)

func defaultNewScopeErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "error creating new HTTP request scope", "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// ScopeCloseErrorHandler is a function that handles errors when closing the
// request injector after the request has completed.
//
// The default handler logs the error to [slog.Default].
type ScopeCloseErrorHandler = func(r *http.Request, err error)

func defaultScopeCloseErrorHandler(r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "error closing HTTP request scope", "error", err)
}

type scopeMiddleware struct {
	root            *dio.Injector
	label           string
	opts            []dio.InjectorOption
	newScopeHandler NewScopeErrorHandler
	closeHandler    ScopeCloseErrorHandler
	next            http.Handler
}

func (m *scopeMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	opts := append(m.opts,
		// Seed the current *http.Request into the new scope
		dio.WithValue(dio.TypeKey[*http.Request](), r),
	)

	scope, err := m.root.Scoped(m.label, opts...)
	if err != nil {
		if m.newScopeHandler != nil {
			m.newScopeHandler(w, r, err)
		}
		return
	}

	ctx := dioctx.WithInjector(r.Context(), scope)
	m.next.ServeHTTP(w, r.WithContext(ctx))

	err = scope.Close(ctx)
	if err != nil && m.closeHandler != nil {
		m.closeHandler(r, err)
	}
}
