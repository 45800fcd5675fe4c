package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/leadcapture/internal/entity"
)

const sampleEnvelope = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "123",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"phone_number_id": "999"},
        "contacts": [{"wa_id": "41791234567", "profile": {"name": "Marie Dupont"}}],
        "messages": [
          {"id": "wamid.A", "from": "41791234567", "timestamp": "1767225600", "type": "text", "text": {"body": "Bonjour"}},
          {"id": "wamid.B", "from": "41791234567", "timestamp": "1767225601", "type": "image", "image": {"id": "img"}}
        ]
      }
    }]
  }]
}`

func TestWebhookEnvelope_InboundMessages(t *testing.T) {
	var env WebhookEnvelope
	require.NoError(t, json.Unmarshal([]byte(sampleEnvelope), &env))

	msgs := env.InboundMessages()
	require.Len(t, msgs, 2)

	assert.Equal(t, "wamid.A", msgs[0].ID)
	assert.Equal(t, "Marie Dupont", msgs[0].ProfileName)
	assert.Equal(t, "Bonjour", msgs[0].Text)
	assert.Equal(t, int64(1767225600), msgs[0].Timestamp.Unix())

	assert.Equal(t, "image", msgs[1].Type)
	assert.Empty(t, msgs[1].Text)
}

func TestClient_SendText(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/999/messages", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.out"}]}`))
	}))
	defer server.Close()

	c := NewClient("token", "999", WithBaseURL(server.URL))
	require.NoError(t, c.SendText(context.Background(), "+41791234567", "Merci"))
	assert.Equal(t, "41791234567", got["to"])
	assert.Equal(t, "text", got["type"])
}

func TestClient_SendText_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter","code":100}}`))
	}))
	defer server.Close()

	err := NewClient("token", "999", WithBaseURL(server.URL)).SendText(context.Background(), "+41", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid parameter")
}

func TestClient_NotConfigured(t *testing.T) {
	assert.ErrorIs(t, NewClient("", "").SendText(context.Background(), "+41", "x"), ErrNotConfigured)
}

func TestAckNotifier_OnlyNewMessagingLeads(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	n := NewAckNotifier(NewClient("token", "999", WithBaseURL(server.URL)), "")
	ctx := context.Background()

	require.NoError(t, n.NotifyLeadCaptured(ctx, entity.LeadCapturedEvent{Channel: entity.ChannelEmail, Created: true, Phone: "+41"}))
	require.NoError(t, n.NotifyLeadCaptured(ctx, entity.LeadCapturedEvent{Channel: entity.ChannelMessaging, Created: false, Phone: "+41"}))
	require.NoError(t, n.NotifyLeadCaptured(ctx, entity.LeadCapturedEvent{Channel: entity.ChannelMessaging, Created: true, Phone: "+41791234567"}))

	assert.Equal(t, 1, calls)
}

func TestValidSignature(t *testing.T) {
	body := []byte(`{"object":"whatsapp_business_account"}`)
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write(body)
	header := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	assert.True(t, ValidSignature("secret", body, header))
	assert.False(t, ValidSignature("other", body, header))
	assert.False(t, ValidSignature("secret", body, "sha1=abc"))
}
