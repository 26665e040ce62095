// Package routes declares HTTP routes as data so handlers can expose
// their surface without touching a mux directly.
package routes

import "net/http"

// Route binds one HTTP method and pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}
