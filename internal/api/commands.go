package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/osterwood/lutron-caseta/internal/bridges/caseta"
	"github.com/osterwood/lutron-caseta/internal/command"
)

// handleListCommands returns the accepted command names.
func (s *Server) handleListCommands(w http.ResponseWriter, _ *http.Request) {
	names := s.bridge.Commands()
	writeJSON(w, http.StatusOK, map[string]any{"commands": names, "count": len(names)})
}

// handleCommand queues a command. The request body is the payload, exactly
// as it would be published on MQTT. Results are published on the feedback
// topic, not returned here.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "command")
	target := chi.URLParam(r, "name")

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "payload too large")
			return
		}
		writeBadRequest(w, "reading request body")
		return
	}

	switch err := s.bridge.Submit(name, target, payload); {
	case errors.Is(err, command.ErrUnknownCommand):
		writeNotFound(w, "unknown command")
		return
	case errors.Is(err, caseta.ErrClosed):
		writeUnavailable(w, "bridge is shutting down")
		return
	case err != nil:
		s.logger.Error("submitting command", "command", name, "target", target, "error", err)
		writeInternalError(w, "failed to queue command")
		return
	}

	s.logger.Info("command queued via API",
		"command", name,
		"target", target,
		"request_id", r.Context().Value(ctxKeyRequestID),
	)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "accepted",
		"command": name,
		"target":  target,
	})
}
