package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/faeln1/clan-notifier/internal/app/services"
	"github.com/faeln1/clan-notifier/internal/domain/clan"
	"github.com/faeln1/clan-notifier/internal/platform/feed"
	"github.com/faeln1/clan-notifier/internal/platform/session"
)

const maxBatchBytes = 4 << 20

type SessionController struct {
	service services.SessionService
}

func NewSessionController(s services.SessionService) *SessionController {
	return &SessionController{service: s}
}

type ingestResponse struct {
	Actions []clan.Action `json:"actions"`
}

type processedResponse struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}

type pruneResponse struct {
	Removed int `json:"removed"`
}

func (c *SessionController) Open(w http.ResponseWriter, r *http.Request) {
	var in clan.OpenSessionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	info, err := c.service.Open(r.Context(), in)
	if err != nil {
		writeError(w, mapSessionStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (c *SessionController) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.service.List(r.Context()))
}

func (c *SessionController) Close(w http.ResponseWriter, r *http.Request, clanID, viewerID string) {
	if err := c.service.Close(r.Context(), decodePathSegment(clanID), decodePathSegment(viewerID)); err != nil {
		writeError(w, mapSessionStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Ingest aceita a lista completa de notificações (array) ou uma única notificação.
func (c *SessionController) Ingest(w http.ResponseWriter, r *http.Request, clanID, viewerID string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBatchBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	batch, err := feed.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	actions, err := c.service.Ingest(r.Context(), decodePathSegment(clanID), decodePathSegment(viewerID), batch)
	if err != nil {
		writeError(w, mapSessionStatus(err), err)
		return
	}
	if actions == nil {
		actions = []clan.Action{}
	}
	writeJSON(w, http.StatusOK, ingestResponse{Actions: actions})
}

func (c *SessionController) Processed(w http.ResponseWriter, r *http.Request, clanID, viewerID string) {
	ids, err := c.service.ProcessedIDs(r.Context(), decodePathSegment(clanID), decodePathSegment(viewerID))
	if err != nil {
		writeError(w, mapSessionStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, processedResponse{IDs: ids, Count: len(ids)})
}

func (c *SessionController) Prune(w http.ResponseWriter, r *http.Request, clanID, viewerID string) {
	removed, err := c.service.Prune(r.Context(), decodePathSegment(clanID), decodePathSegment(viewerID))
	if err != nil {
		writeError(w, mapSessionStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, pruneResponse{Removed: removed})
}

func mapSessionStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidSessionInput):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound), errors.Is(err, services.ErrClanNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, session.ErrPipelineUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
