// Package spark talks to the Webex (formerly Cisco Spark) REST API.
package spark

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://webexapis.com/v1"

	defaultTimeout  = 10 * time.Second
	defaultRetries  = 4
	defaultInterval = 250 * time.Millisecond
)

// Message is a Webex message resource.
type Message struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"roomId"`
	RoomType    string    `json:"roomType"`
	PersonID    string    `json:"personId"`
	PersonEmail string    `json:"personEmail"`
	ToPersonID  string    `json:"toPersonId,omitempty"`
	Text        string    `json:"text"`
	HTML        string    `json:"html,omitempty"`
	Markdown    string    `json:"markdown,omitempty"`
	Created     time.Time `json:"created"`
}

// Direct reports whether the message was sent in a 1:1 space.
func (m *Message) Direct() bool {
	return strings.EqualFold(m.RoomType, "direct")
}

// Person is a Webex person resource.
type Person struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	NickName    string   `json:"nickName"`
	FirstName   string   `json:"firstName"`
	Emails      []string `json:"emails"`
}

// OutgoingMessage is the body of a create-message request. Exactly one of RoomID
// and ToPersonID should be set; Markdown takes precedence over Text in clients.
type OutgoingMessage struct {
	RoomID     string `json:"roomId,omitempty"`
	ToPersonID string `json:"toPersonId,omitempty"`
	Text       string `json:"text,omitempty"`
	Markdown   string `json:"markdown,omitempty"`
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	TrackingID string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("webex %s %s: http %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	// Token is the bot token used to post messages.
	Token string
	// AdminToken reads messages the bot was not mentioned in. Falls back to Token.
	AdminToken    string
	Timeout       time.Duration
	MaxRetries    uint
	RetryInterval time.Duration
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Client is a small Webex REST client with retries.
type Client struct {
	base       string
	token      string
	adminToken string
	http       *http.Client
	maxTries   uint
	interval   time.Duration
	logger     *zap.Logger
}

// NewClient creates a client.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultRetries
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultInterval
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	admin := opts.AdminToken
	if admin == "" {
		admin = opts.Token
	}
	return &Client{
		base:       base,
		token:      opts.Token,
		adminToken: admin,
		http:       opts.HTTPClient,
		maxTries:   opts.MaxRetries + 1,
		interval:   opts.RetryInterval,
		logger:     opts.Logger,
	}
}

// GetMessage fetches a message by ID. Webhooks only carry the ID.
func (c *Client) GetMessage(ctx context.Context, id string) (*Message, error) {
	var msg Message
	if err := c.do(ctx, http.MethodGet, "/messages/"+url.PathEscape(id), c.adminToken, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetPerson fetches a person by ID.
func (c *Client) GetPerson(ctx context.Context, id string) (*Person, error) {
	var person Person
	if err := c.do(ctx, http.MethodGet, "/people/"+url.PathEscape(id), c.adminToken, nil, &person); err != nil {
		return nil, err
	}
	return &person, nil
}

// CreateMessage posts a message to a room or a person.
func (c *Client) CreateMessage(ctx context.Context, out OutgoingMessage) (*Message, error) {
	if out.RoomID == "" && out.ToPersonID == "" {
		return nil, errors.New("message needs a room or a person")
	}
	var msg Message
	if err := c.do(ctx, http.MethodPost, "/messages", c.token, out, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		payload = b
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.interval

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := c.once(ctx, method, path, token, payload, out)
		if err != nil {
			c.logger.Debug("webex request failed",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(c.maxTries))
	return err
}

func (c *Client) once(ctx context.Context, method, path, token string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			TrackingID: resp.Header.Get("Trackingid"),
			Body:       truncate(string(data), 400),
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && secs > 0 {
				return backoff.RetryAfter(secs)
			}
			return apiErr
		case resp.StatusCode >= 500:
			return apiErr
		default:
			return backoff.Permanent(apiErr)
		}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode %s response: %w", path, err))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
