/*
Package diohttp provides HTTP middleware that opens a [dio.Injector] scope
for each request.

Example:

	package main

	import (
		"net/http"

		"github.com/tkaspar/dio"
		"github.com/tkaspar/dio/dioctx"
		"github.com/tkaspar/dio/diohttp"
	)

	func main() {
		p := dio.NewProvider()
		p.Register("sessions", NewSessionStore)
		p.Register("handler-deps", NewHandlerDeps, dio.InScope("request"))

		root := dio.New(p)

		// Create the request scope middleware
		middleware := diohttp.RequestScopeMiddleware(root)

		handler := func(w http.ResponseWriter, r *http.Request) {
			deps := dioctx.MustInject[*HandlerDeps](r.Context(), "handler-deps")

			deps.Handle(w, r)
		}

		http.Handle("/", middleware(http.HandlerFunc(handler)))
		http.ListenAndServe(":8080", nil)
	}
*/
package diohttp
