// Package gmail wraps the Gmail REST API behind the small surface the
// sync workflow needs: listing matching message ids and fetching one
// message at a time.
package gmail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mailstash/mailstash/internal/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// API is the remote message-store surface consumed by the syncer.
// Tests use the Mock implementation; production uses Client.
type API interface {
	// ListMessageIDs returns the ids of all messages matching query,
	// paginating internally, up to max ids (0 means no limit).
	ListMessageIDs(ctx context.Context, query string, max int) ([]string, error)

	// GetMessage fetches one full message by id.
	GetMessage(ctx context.Context, id string) (*model.MessageRecord, error)
}

// Client implements API against the Gmail v1 REST API.
type Client struct {
	svc     *gmailapi.Service
	limiter *rate.Limiter
	logger  *slog.Logger
	userID  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithQPS caps the request rate against the API. Gmail enforces a
// per-user quota; staying under it client-side avoids 429 churn.
func WithQPS(qps float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(qps), 1)
	}
}

// NewClient builds a Client from OAuth client credentials and a refresh token.
func NewClient(ctx context.Context, clientID, clientSecret, refreshToken string, opts ...ClientOption) (*Client, error) {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmailapi.GmailReadonlyScope},
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	c := &Client{
		svc:     svc,
		limiter: rate.NewLimiter(rate.Limit(5), 1),
		logger:  slog.Default(),
		userID:  "me",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListMessageIDs pages through users.messages.list until the result set is
// exhausted or max ids have been collected.
func (c *Client) ListMessageIDs(ctx context.Context, query string, max int) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := c.svc.Users.Messages.List(c.userID).Context(ctx)
		if query != "" {
			call = call.Q(query)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
			if max > 0 && len(ids) >= max {
				return ids, nil
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return ids, nil
		}
		c.logger.Debug("listing messages", "collected", len(ids), "query", query)
	}
}

// GetMessage fetches one message in full format and maps it to a record.
func (c *Client) GetMessage(ctx context.Context, id string) (*model.MessageRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	msg, err := c.svc.Users.Messages.Get(c.userID, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return recordFromMessage(msg), nil
}
