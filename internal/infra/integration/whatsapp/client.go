package whatsapp

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/leadcapture/internal/entity"
)

const defaultBaseURL = "https://graph.facebook.com/v21.0"

var ErrNotConfigured = eris.New("whatsapp: access token or phone id missing")

type Client struct {
	accessToken string
	phoneID     string
	baseURL     string
	http        *http.Client
}

type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

func NewClient(accessToken, phoneID string, opts ...Option) *Client {
	c := &Client{
		accessToken: accessToken,
		phoneID:     phoneID,
		baseURL:     defaultBaseURL,
		http:        &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SendText sends a plain text message inside the 24h customer service window.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	if c.accessToken == "" || c.phoneID == "" {
		return ErrNotConfigured
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                strings.TrimPrefix(to, "+"),
		"type":              "text",
		"text":              map[string]any{"preview_url": false, "body": body},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "whatsapp: marshal payload")
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return eris.Wrap(err, "whatsapp: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "whatsapp: send message")
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var result SendMessageResponse
	_ = json.Unmarshal(respBody, &result)

	if result.Error != nil {
		return eris.Errorf("whatsapp: %s (code %d)", result.Error.Message, result.Error.Code)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return eris.Errorf("whatsapp: api returned status %d", resp.StatusCode)
	}

	return nil
}

// AckNotifier greets new messaging leads. Other events are ignored.
type AckNotifier struct {
	Client  *Client
	Message string
}

func NewAckNotifier(client *Client, message string) *AckNotifier {
	if message == "" {
		message = "Merci pour votre message ! Notre équipe revient vers vous très rapidement."
	}
	return &AckNotifier{Client: client, Message: message}
}

func (n *AckNotifier) NotifyLeadCaptured(ctx context.Context, event entity.LeadCapturedEvent) error {
	if event.Channel != entity.ChannelMessaging || !event.Created || event.Phone == "" {
		return nil
	}
	if err := n.Client.SendText(ctx, event.Phone, n.Message); err != nil {
		return err
	}
	zap.L().Info("whatsapp acknowledgment sent", zap.String("lead_id", event.LeadID))
	return nil
}

// ValidSignature checks the X-Hub-Signature-256 header against the app secret.
func ValidSignature(appSecret string, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
