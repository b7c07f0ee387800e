package routes

import "net/http"

// Route binds an HTTP method and pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Wrapper decorates a handler given its fully qualified mux pattern
// (for example "GET /mentions/{id}").
type Wrapper func(pattern string, h http.HandlerFunc) http.HandlerFunc
