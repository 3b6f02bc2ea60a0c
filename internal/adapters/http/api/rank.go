package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/rankset/internal/domain/ranking"
	"github.com/okian/rankset/pkg/logger"
)

// RankDependencies defines the single-row lookups.
type RankDependencies interface {
	// FindOne resolves by position, by player or by both. Zero/empty means unused.
	FindOne(ctx context.Context, position int, playerID string) (Entry, error)
}

// RankHandler handles rank and position requests.
type RankHandler struct {
	deps   RankDependencies
	logger logger.Logger
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies, l logger.Logger) *RankHandler {
	return &RankHandler{deps: deps, logger: l}
}

// HandleGetRank handles GET /rank/{id}.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	entry, err := h.deps.FindOne(r.Context(), 0, r.PathValue("id"))
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleGetPosition handles GET /position/{n}[?player_id=id]. With player_id
// the row is cross-checked and a different holder yields 409.
func (h *RankHandler) HandleGetPosition(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_position"
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if n < 1 {
		writeError(w, http.StatusNotFound, "position_out_of_range", NewKind(op, ranking.ErrPositionOutOfRange))
		return
	}
	entry, err := h.deps.FindOne(r.Context(), n, r.URL.Query().Get("player_id"))
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
