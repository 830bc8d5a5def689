package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/osterwood/lutron-caseta/internal/device"
)

// handleListDevices returns every wired device and button.
//
// Query parameters:
//   - kind: filter by kind (dimmer, switch, fan, shade, button, generic)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.bridge.Snapshots(r.Context())
	if err != nil {
		s.logger.Warn("listing devices", "error", err)
		writeUnavailable(w, "bridge not available")
		return
	}

	if kindStr := r.URL.Query().Get("kind"); kindStr != "" {
		kind, err := device.ParseKind(kindStr)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		filtered := make([]device.Snapshot, 0, len(snapshots))
		for _, snap := range snapshots {
			if snap.Kind == kind {
				filtered = append(filtered, snap)
			}
		}
		snapshots = filtered
	}

	if snapshots == nil {
		snapshots = []device.Snapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": snapshots, "count": len(snapshots)})
}

// handleGetDevice returns one device, or every button of a remote.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	snapshots, found, err := s.bridge.Snapshot(r.Context(), name)
	if err != nil {
		s.logger.Warn("reading device", "name", name, "error", err)
		writeUnavailable(w, "bridge not available")
		return
	}
	if !found {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": device.NormalizeName(name), "devices": snapshots})
}
