package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/outletmesh/outletmesh/internal/auth"
	"github.com/outletmesh/outletmesh/internal/outlets"
)

func handleListOutlets(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Outlets == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "OUTLETS_NOT_CONFIGURED", "outlet repository is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleQueryReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	items, err := deps.Outlets.ListOutlets(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "OUTLETS_FETCH_FAILED", "failed to list outlets", true, map[string]any{"details": err.Error()})
		return
	}
	if len(items) == 0 {
		writeError(r.Context(), w, http.StatusNotFound, "OUTLETS_NOT_FOUND", "No outlets found.", false, nil)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func handleGetOutlet(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Outlets == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "OUTLETS_NOT_CONFIGURED", "outlet repository is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleQueryReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_OUTLET_ID", "outlet id must be an integer", false, nil)
		return
	}

	item, err := deps.Outlets.GetOutlet(r.Context(), id)
	if err != nil {
		if errors.Is(err, outlets.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "OUTLET_NOT_FOUND", "Outlet not found.", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "OUTLETS_FETCH_FAILED", "failed to load outlet", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, item)
}
