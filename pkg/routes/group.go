package routes

import "net/http"

// Group collects routes under a shared prefix; nested groups compose
// their prefixes.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register installs every route in the given groups on the mux using
// "METHOD /pattern" patterns.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, g := range groups {
		g.register(mux, "")
	}
}

func (g Group) register(mux *http.ServeMux, parent string) {
	prefix := parent + g.Prefix
	for _, r := range g.Routes {
		mux.HandleFunc(r.Method+" "+prefix+r.Pattern, r.Handler)
	}
	for _, child := range g.Children {
		child.register(mux, prefix)
	}
}
