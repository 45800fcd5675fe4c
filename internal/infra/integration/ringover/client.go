package ringover

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://public-api.ringover.com/v2"
	pageSize       = 100
	maxPages       = 20
)

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 20 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ListCalls returns the calls started in [since, until], following pages.
func (c *Client) ListCalls(ctx context.Context, since, until time.Time) ([]Call, error) {
	var calls []Call

	for page := 0; page < maxPages; page++ {
		batch, total, err := c.listPage(ctx, since, until, page*pageSize)
		if err != nil {
			return nil, err
		}
		calls = append(calls, batch...)
		if len(batch) < pageSize || len(calls) >= total {
			break
		}
	}

	return calls, nil
}

func (c *Client) listPage(ctx context.Context, since, until time.Time, offset int) ([]Call, int, error) {
	q := url.Values{}
	q.Set("start_date", since.UTC().Format(time.RFC3339))
	q.Set("end_date", until.UTC().Format(time.RFC3339))
	q.Set("limit_count", strconv.Itoa(pageSize))
	q.Set("limit_offset", strconv.Itoa(offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/calls?"+q.Encode(), nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "ringover: create request")
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "ringover: list calls")
	}
	defer resp.Body.Close()

	// 204 means no calls in the window.
	if resp.StatusCode == http.StatusNoContent {
		return nil, 0, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, 0, eris.Wrap(err, "ringover: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, eris.Errorf("ringover: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var list callListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, 0, eris.Wrap(err, "ringover: decode calls")
	}

	calls := make([]Call, 0, len(list.CallList))
	for _, raw := range list.CallList {
		var call Call
		if err := json.Unmarshal(raw, &call); err != nil {
			return nil, 0, eris.Wrap(err, "ringover: decode call")
		}
		if call.CallID == "" && call.CDRID != 0 {
			call.CallID = strconv.FormatInt(call.CDRID, 10)
		}
		call.Raw = raw
		calls = append(calls, call)
	}

	return calls, list.TotalCallCount, nil
}
