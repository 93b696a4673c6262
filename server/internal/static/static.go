package static

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
)

//go:embed assets
var embedded embed.FS

// asset is one servable file.
type asset struct {
	name        string
	contentType string
}

var routes = map[string]asset{
	"/":          {name: "index.html", contentType: "text/html; charset=utf-8"},
	"/index.css": {name: "index.css", contentType: "text/css"},
	"/index.mjs": {name: "index.mjs", contentType: "text/javascript"},
}

// Embedded returns the front-end files compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "assets")
	if err != nil {
		// Only reachable if the embed directive and the path disagree.
		panic(err)
	}
	return sub
}

// FS returns the directory dir on disk, or the embedded files if dir is empty.
func FS(dir string) fs.FS {
	if dir == "" {
		return Embedded()
	}
	return os.DirFS(dir)
}

// Handler serves the front-end routes from an fs.FS.
type Handler struct {
	fsys fs.FS
}

// New creates a Handler reading from fsys.
func New(fsys fs.FS) *Handler {
	return &Handler{fsys: fsys}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a, ok := routes[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := fs.ReadFile(h.fsys, a.name)
	if err != nil {
		slog.Error("static: read asset failed", "file", a.name, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", a.contentType)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	w.Write(data) //nolint:errcheck
}
