package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/thiagokokada/gitlanes/internal/commitstore"
	"github.com/thiagokokada/gitlanes/internal/reach"
	"github.com/thiagokokada/gitlanes/internal/refs"
	"github.com/thiagokokada/gitlanes/internal/render"
)

type lostResponse struct {
	Ref      string             `json:"ref"`
	MovingTo string             `json:"moving_to,omitempty"`
	Strategy string             `json:"strategy"`
	Commits  []render.CommitDoc `json:"commits"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleLayout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, render.NewLayoutDocument(s.session.Layout(), s.opts.Palette))
}

func (s *Server) handleLost(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref := q.Get("ref")
	if ref == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing ref parameter"})
		return
	}
	strategy := s.opts.Strategy
	if raw := q.Get("strategy"); raw != "" {
		parsed, err := reach.ParseStrategy(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		strategy = parsed
	}
	analyzer := s.session.Analyzer(strategy)
	movingTo, err := analyzer.ResolveTarget(q.Get("to"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	lost, err := analyzer.LostCommits(ref, movingTo)
	switch {
	case errors.Is(err, refs.ErrUnknownReference):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, commitstore.ErrNotFound):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, lostResponse{
		Ref:      ref,
		MovingTo: movingTo,
		Strategy: strategy.String(),
		Commits:  render.CommitDocs(lost),
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Reload(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade", slog.Any("error", err))
		return
	}
	s.hub.attach(conn, s.layoutMessage(s.session.Layout()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := render.WriteJSON(w, v); err != nil {
		slog.Debug("write response", slog.Any("error", err))
	}
}
