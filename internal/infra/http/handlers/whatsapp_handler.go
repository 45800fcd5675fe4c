package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/leadcapture/internal/infra/integration/whatsapp"
	"github.com/xavierca1/leadcapture/internal/usecase"
)

type WhatsAppProcessor interface {
	Execute(ctx context.Context, in usecase.WhatsAppInput) (*usecase.Outcome, error)
}

// WhatsAppHandler implements the provider's webhook contract. Deliveries
// are acknowledged before any processing starts.
type WhatsAppHandler struct {
	UseCase        WhatsAppProcessor
	VerifyToken    string
	AppSecret      string
	ProcessTimeout time.Duration

	inflight sync.WaitGroup
}

func NewWhatsAppHandler(uc WhatsAppProcessor, verifyToken, appSecret string) *WhatsAppHandler {
	return &WhatsAppHandler{
		UseCase:        uc,
		VerifyToken:    verifyToken,
		AppSecret:      appSecret,
		ProcessTimeout: 2 * time.Minute,
	}
}

// Verify answers the subscription handshake.
func (h *WhatsAppHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || h.VerifyToken == "" || q.Get("hub.verify_token") != h.VerifyToken {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, q.Get("hub.challenge"))
}

// Receive acks with 200 and hands the messages to a detached goroutine.
func (h *WhatsAppHandler) Receive(w http.ResponseWriter, r *http.Request) {
	log := zap.L().With(zap.String("channel", "messaging"))

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	if h.AppSecret != "" && !whatsapp.ValidSignature(h.AppSecret, body, r.Header.Get("X-Hub-Signature-256")) {
		log.Warn("whatsapp signature mismatch, payload dropped")
		return
	}

	var envelope whatsapp.WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Warn("unreadable whatsapp payload", zap.Error(err))
		return
	}
	messages := envelope.InboundMessages()
	if len(messages) == 0 {
		return
	}

	ctx := context.WithoutCancel(r.Context())
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		h.process(ctx, messages)
	}()
}

func (h *WhatsAppHandler) process(ctx context.Context, messages []whatsapp.InboundMessage) {
	log := zap.L().With(zap.String("channel", "messaging"))
	defer func() {
		if r := recover(); r != nil {
			log.Error("whatsapp processing panicked", zap.Any("panic", r))
		}
	}()

	timeout := h.ProcessTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	for _, m := range messages {
		mctx, cancel := context.WithTimeout(ctx, timeout)
		out, err := h.UseCase.Execute(mctx, usecase.WhatsAppInput{
			MessageID:   m.ID,
			From:        m.From,
			ProfileName: m.ProfileName,
			Type:        m.Type,
			Text:        m.Text,
			Timestamp:   m.Timestamp,
			Raw:         m.Raw,
		})
		cancel()

		if err != nil {
			log.Error("whatsapp message failed", zap.String("entity_id", m.ID), zap.Error(err))
			continue
		}
		log.Debug("whatsapp message handled",
			zap.String("entity_id", m.ID),
			zap.String("outcome", string(out.Status)),
		)
	}
}

// Wait blocks until detached processing has drained.
func (h *WhatsAppHandler) Wait() {
	h.inflight.Wait()
}
