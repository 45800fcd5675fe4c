package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/leadcapture/internal/infra/worker"
)

// PollHandler exposes manual triggers for the pollers, guarded by the
// admin token.
type PollHandler struct {
	Pollers    map[string]worker.Poller
	AdminToken string
}

func NewPollHandler(adminToken string, pollers ...worker.Poller) *PollHandler {
	h := &PollHandler{Pollers: make(map[string]worker.Poller, len(pollers)), AdminToken: adminToken}
	for _, p := range pollers {
		h.Pollers[p.Name()] = p
	}
	return h
}

// Trigger runs one iteration of the poller named in the path and returns
// the same result a scheduled run produces.
func (h *PollHandler) Trigger(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.authorized(r) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "admin token required")
			return
		}

		p, ok := h.Pollers[name]
		if !ok {
			writeError(w, http.StatusNotFound, "POLLER_DISABLED", name+" poller is not configured")
			return
		}

		result, err := p.RunOnce(context.WithoutCancel(r.Context()))
		switch {
		case errors.Is(err, worker.ErrPollInProgress):
			writeError(w, http.StatusConflict, "POLL_IN_PROGRESS", err.Error())
		case err != nil:
			zap.L().Error("manual poll failed", zap.String("poller", name), zap.Error(err))
			writeError(w, http.StatusBadGateway, "POLL_FAILED", err.Error())
		default:
			writeJSON(w, http.StatusOK, result)
		}
	}
}

func (h *PollHandler) authorized(r *http.Request) bool {
	if h.AdminToken == "" {
		return false
	}
	token := r.Header.Get("X-Admin-Token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.AdminToken)) == 1
}
