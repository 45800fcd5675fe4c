package anthropic

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	DefaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 1024
)

// Client is the primary extraction provider.
type Client struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

type Option func(*clientOptions)

type clientOptions struct {
	model   string
	sdkOpts []option.RequestOption
}

func WithModel(model string) Option {
	return func(o *clientOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithBaseURL points the client at another endpoint, used by tests.
func WithBaseURL(url string) Option {
	return func(o *clientOptions) { o.sdkOpts = append(o.sdkOpts, option.WithBaseURL(url)) }
}

func NewClient(apiKey string, opts ...Option) *Client {
	o := &clientOptions{model: DefaultModel}
	for _, opt := range opts {
		opt(o)
	}

	// Retries belong to the provider chain, not the SDK.
	sdkOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, o.sdkOpts...)

	return &Client{
		client:    sdk.NewClient(sdkOpts...),
		model:     o.model,
		maxTokens: defaultMaxTokens,
	}
}

func (c *Client) Name() string {
	return "anthropic"
}

func (c *Client) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	params := sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: sdk.Float(0),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(userContent)),
		},
	}
	if systemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: systemPrompt}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", eris.Wrap(err, "anthropic: create message")
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", eris.New("anthropic: empty response")
	}

	zap.L().Debug("anthropic completion",
		zap.String("model", string(msg.Model)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)

	return b.String(), nil
}
