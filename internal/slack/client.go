package slack

import (
	"context"
	"fmt"
	"time"

	"github.com/slack-go/slack"
	"golang.org/x/time/rate"
)

// Field is one short key/value line of a report.
type Field struct {
	Title string
	Value string
}

// Report is a run summary posted to the report channel.
type Report struct {
	Title  string
	Text   string
	Failed bool
	Fields []Field
}

type Client struct {
	api         *slack.Client
	rateLimiter *rate.Limiter
	channel     string
}

// NewClient creates a client posting to channel. Options are passed to the
// underlying Slack client.
func NewClient(token, channel string, options ...slack.Option) *Client {
	// Slack allows about one message per second per channel
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)

	return &Client{
		api:         slack.New(token, options...),
		rateLimiter: limiter,
		channel:     channel,
	}
}

// ValidateAuth checks if the token is valid and returns basic auth info
func (c *Client) ValidateAuth(ctx context.Context) (*slack.AuthTestResponse, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth validation failed: %w", err)
	}

	return resp, nil
}

// PostReport posts r to the report channel and returns the message timestamp.
func (c *Client) PostReport(ctx context.Context, r Report) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	color := "good"
	if r.Failed {
		color = "danger"
	}

	fields := make([]slack.AttachmentField, 0, len(r.Fields))
	for _, f := range r.Fields {
		fields = append(fields, slack.AttachmentField{Title: f.Title, Value: f.Value, Short: true})
	}

	_, ts, err := c.api.PostMessageContext(ctx, c.channel,
		slack.MsgOptionText(r.Title, false),
		slack.MsgOptionAttachments(slack.Attachment{
			Color:  color,
			Text:   r.Text,
			Fields: fields,
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to post report to %s: %w", c.channel, err)
	}

	return ts, nil
}
