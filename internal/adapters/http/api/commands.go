package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/rankset/internal/domain/dedupe"
	"github.com/okian/rankset/internal/domain/model"
	"github.com/okian/rankset/internal/domain/ranking"
	"github.com/okian/rankset/pkg/logger"
	"github.com/okian/rankset/pkg/metrics"
)

// CommandDependencies defines the async intake.
type CommandDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, c model.Command) error
}

// commandRequest mirrors the OpenAPI schema for POST /commands.
type commandRequest struct {
	RequestID string `json:"request_id" validate:"required,max=128"`
	Kind      string `json:"kind" validate:"required,oneof=set add remove"`
	PlayerID  string `json:"player_id" validate:"required"`
	Value     int    `json:"value"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// CommandsHandler handles async command submissions.
type CommandsHandler struct {
	deps   CommandDependencies
	logger logger.Logger
}

// NewCommandsHandler creates a new commands handler.
func NewCommandsHandler(deps CommandDependencies, l logger.Logger) *CommandsHandler {
	return &CommandsHandler{deps: deps, logger: l}
}

// HandlePostCommand handles POST /commands.
func (h *CommandsHandler) HandlePostCommand(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_command"
	var req commandRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	kind, err := model.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	// Ids are checked here since the writer's verdict never reaches the client.
	if _, err := ranking.ParsePlayerID(req.PlayerID); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", Wrap(op, err))
		return
	}

	if h.deps.SeenAndRecord(r.Context(), req.RequestID) {
		metrics.RecordDuplicate()
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	c := model.Command{
		RequestID: req.RequestID,
		Kind:      kind,
		PlayerID:  req.PlayerID,
		Value:     req.Value,
		Received:  time.Now(),
	}
	if err := h.deps.Enqueue(r.Context(), c); err != nil {
		// Rollback so the client may retry the same request id.
		h.deps.Unrecord(r.Context(), req.RequestID)
		h.logger.Warn(r.Context(), "enqueue refused",
			logger.String("request_id", req.RequestID), logger.Error(err))
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
