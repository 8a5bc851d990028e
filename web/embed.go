// Package web embeds and serves the browser client.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed index.html app.js style.css
var assets embed.FS

// Handler serves the embedded client. Paths that are not assets are
// client-side routes (dashboard, reset-password) and get index.html.
func Handler() http.Handler {
	fileServer := http.FileServer(http.FS(assets))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" {
			name = "index.html"
		}
		if _, err := fs.Stat(assets, name); err != nil {
			http.ServeFileFS(w, r, assets, "index.html")
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
