// ABOUTME: Handlers that report the caller's own visibility inside an org.
// ABOUTME: Probes mirror the RequireSection/RequireChild guards and count the same decisions.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scarson/congregate/internal/access"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON: encode failed", "error", err)
	}
}

type probeResponse struct {
	Allowed bool `json:"allowed"`
}

// getAccessHandler handles GET /api/v1/orgs/{org_id}/access. Clients that
// send the previous ETag in If-None-Match get 304 until the member's role or
// overrides change.
func (srv *Server) getAccessHandler(w http.ResponseWriter, r *http.Request) {
	res := resolverFrom(r.Context())
	etag := res.ETag()
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, res.Snapshot())
}

// probeSectionHandler handles GET /api/v1/orgs/{org_id}/access/{section}.
func (srv *Server) probeSectionHandler(w http.ResponseWriter, r *http.Request) {
	section, ok := access.ParseSection(chi.URLParam(r, "section"))
	if !ok {
		http.Error(w, "unknown section", http.StatusNotFound)
		return
	}
	allowed := resolverFrom(r.Context()).CanAccess(section)
	recordDecision(section, "", allowed)
	writeJSON(w, http.StatusOK, probeResponse{Allowed: allowed})
}

// probeChildHandler handles GET /api/v1/orgs/{org_id}/access/{section}/{child}.
// Only children that belong to section are probeable.
func (srv *Server) probeChildHandler(w http.ResponseWriter, r *http.Request) {
	section, ok := access.ParseSection(chi.URLParam(r, "section"))
	if !ok {
		http.Error(w, "unknown section", http.StatusNotFound)
		return
	}
	child := access.Child(chi.URLParam(r, "child"))
	if !section.HasChild(child) {
		http.Error(w, "unknown child", http.StatusNotFound)
		return
	}
	allowed := resolverFrom(r.Context()).CanAccessChild(section, child)
	recordDecision(section, child, allowed)
	writeJSON(w, http.StatusOK, probeResponse{Allowed: allowed})
}
