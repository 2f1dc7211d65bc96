// Package resources embeds the dashboard's static assets.
package resources

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*
var staticFS embed.FS

// Index returns the dashboard page.
func Index() []byte {
	b, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		panic(err)
	}
	return b
}

// Handler returns an HTTP handler serving the embedded static files.
func Handler() http.Handler {
	fsys, _ := fs.Sub(staticFS, "static")
	fileServer := http.FileServer(http.FS(fsys))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		http.StripPrefix("/static/", fileServer).ServeHTTP(w, r)
	})
}
