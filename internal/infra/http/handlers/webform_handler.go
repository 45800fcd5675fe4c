package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/leadcapture/internal/usecase"
)

var errNotObject = errors.New("payload is not an object")

type WebFormSubmitter interface {
	Execute(ctx context.Context, input usecase.WebFormInput) (*usecase.WebFormOutput, error)
}

// WebFormHandler is the synchronous form path: the caller waits for the
// stored lead id or the skip reason.
type WebFormHandler struct {
	UseCase     WebFormSubmitter
	Secret      string
	rateLimiter *RateLimiter
}

func NewWebFormHandler(uc WebFormSubmitter, secret string, limiter *RateLimiter) *WebFormHandler {
	return &WebFormHandler{
		UseCase:     uc,
		Secret:      secret,
		rateLimiter: limiter,
	}
}

func (h *WebFormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	log := zap.L().With(zap.String("channel", "webform"))

	if h.rateLimiter != nil && !h.rateLimiter.Allow(getClientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "could not read request body")
		return
	}

	if h.Secret != "" && !validHMAC(h.Secret, body, r.Header.Get("X-Webhook-Signature")) {
		log.Warn("web form signature mismatch", zap.String("ip", getClientIP(r)))
		writeError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "invalid signature")
		return
	}

	fields, err := decodeFormFields(r.Header.Get("Content-Type"), body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "body must be a JSON object or a url-encoded form")
		return
	}

	origin := r.URL.Query().Get("form")
	if origin == "" {
		origin = r.Header.Get("X-Form-Origin")
	}

	out, err := h.UseCase.Execute(r.Context(), usecase.WebFormInput{
		Fields: fields,
		Raw:    rawPayload(fields, body),
		Origin: origin,
	})
	if err != nil {
		var domainErr *usecase.DomainError
		if errors.As(err, &domainErr) {
			writeError(w, http.StatusBadRequest, domainErr.Code, domainErr.Message)
			return
		}
		log.Error("web form submission failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to capture lead")
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func decodeFormFields(contentType string, body []byte) (map[string]any, error) {
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, err
		}
		fields := make(map[string]any, len(values))
		for k, v := range values {
			if len(v) == 1 {
				fields[k] = v[0]
			} else {
				fields[k] = v
			}
		}
		return fields, nil
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errNotObject
	}
	return fields, nil
}

func rawPayload(fields map[string]any, body []byte) json.RawMessage {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return b
}
