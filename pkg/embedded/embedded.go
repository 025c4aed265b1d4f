// Package embedded serves the dashboard frontend baked into the binary.
package embedded

import (
	"embed"
	"net/http"
)

//go:embed frontend/index.html
var frontend embed.FS

// ServeDashboard serves the single-page dashboard.
func ServeDashboard(w http.ResponseWriter, r *http.Request) {
	data, err := frontend.ReadFile("frontend/index.html")
	if err != nil {
		http.Error(w, "dashboard not available", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
