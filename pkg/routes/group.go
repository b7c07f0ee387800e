// Package routes declares handler groups and registers them on a ServeMux.
package routes

import "net/http"

// Group organizes routes under a common prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Patterns lists the fully qualified mux patterns of the group and its children.
func (g Group) Patterns() []string {
	var out []string
	walk("", g, func(pattern string, _ Route) {
		out = append(out, pattern)
	})
	return out
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	RegisterWith(mux, nil, groups...)
}

// RegisterWith adds all routes to the mux, passing each handler through wrap
// when it is non-nil.
func RegisterWith(mux *http.ServeMux, wrap Wrapper, groups ...Group) {
	for _, group := range groups {
		walk("", group, func(pattern string, route Route) {
			handler := route.Handler
			if wrap != nil {
				handler = wrap(pattern, handler)
			}
			mux.HandleFunc(pattern, handler)
		})
	}
}

func walk(parentPrefix string, group Group, fn func(pattern string, route Route)) {
	fullPrefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		path := fullPrefix + route.Pattern
		if path == "" {
			path = "/"
		}
		fn(route.Method+" "+path, route)
	}
	for _, child := range group.Children {
		walk(fullPrefix, child, fn)
	}
}
