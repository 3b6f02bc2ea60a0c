package api

import (
	"context"
	"net/http"

	"github.com/okian/rankset/pkg/logger"
)

// PlayerDependencies defines the write operations on a single player.
type PlayerDependencies interface {
	SetScore(ctx context.Context, playerID string, score int) (Entry, error)
	AddPoints(ctx context.Context, playerID string, points int) (Entry, error)
	Remove(ctx context.Context, playerID string) (bool, error)
}

type scoreRequest struct {
	Score *int `json:"score" validate:"required"`
}

type pointsRequest struct {
	Points *int `json:"points" validate:"required"`
}

// PlayersHandler handles synchronous player writes.
type PlayersHandler struct {
	deps   PlayerDependencies
	logger logger.Logger
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps PlayerDependencies, l logger.Logger) *PlayersHandler {
	return &PlayersHandler{deps: deps, logger: l}
}

// HandleSetScore handles PUT /players/{id}/score.
func (h *PlayersHandler) HandleSetScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_score"
	var req scoreRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	entry, err := h.deps.SetScore(r.Context(), r.PathValue("id"), *req.Score)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleAddPoints handles POST /players/{id}/points. A player whose score
// returns to zero is unranked and reported with position 0.
func (h *PlayersHandler) HandleAddPoints(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_points"
	var req pointsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	entry, err := h.deps.AddPoints(r.Context(), r.PathValue("id"), *req.Points)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleRemove handles DELETE /players/{id}.
func (h *PlayersHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	const op = "api.remove_player"
	removed, err := h.deps.Remove(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
