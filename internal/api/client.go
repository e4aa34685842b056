package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voltclass/presenterd/pkg/errs"
	"github.com/voltclass/presenterd/pkg/httputil"
)

// Client talks to the presentation backend and its satellite services
// (content storage, transcription, AI generation). All payload shapes are
// dictated by the backend; this package only maps them onto domain types.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	orgID   string
	timeout time.Duration
}

type Options struct {
	BaseURL string
	Token   string
	OrgID   string
	Timeout time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("api client: empty base url")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		token:   opts.Token,
		orgID:   opts.OrgID,
		timeout: opts.Timeout,
	}, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// do runs one JSON round trip. in may be nil; out may be nil when the
// caller only cares about the status.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: new request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", errs.ErrUpstream, err)
	}
	return nil
}

func (c *Client) decorate(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.orgID != "" {
		req.Header.Set("X-Org-ID", c.orgID)
	}
	if rid, ok := httputil.FromContext(req.Context()); ok && rid != "" {
		req.Header.Set(httputil.HeaderRequestID, rid)
	}
}

// apiError surfaces the server-provided message when one is present.
func apiError(resp *http.Response) error {
	kind := errs.ErrUpstream
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = errs.ErrUnauthorized
	case http.StatusNotFound:
		kind = errs.ErrNotFound
	case http.StatusConflict:
		kind = errs.ErrConflict
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := ""
	if json.Unmarshal(raw, &payload) == nil {
		msg = payload.Message
		if msg == "" {
			msg = payload.Error.Message
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("%w: %s (status %d)", kind, msg, resp.StatusCode)
}
