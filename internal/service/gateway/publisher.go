package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	drepo "SignalRelay/internal/domain/repository"
	xhttp "SignalRelay/pkg/http"
)

// Publisher implements repository.Publisher over the Bot API sendMessage
// endpoint. Link previews are disabled for cleaner destination messages.
type Publisher struct {
	http           *xhttp.Client
	apiURL         string
	token          string
	disablePreview bool
}

// PublisherOption configures Publisher.
type PublisherOption func(*Publisher)

// WithHTTPClient injects the transport.
func WithHTTPClient(hc *xhttp.Client) PublisherOption {
	return func(p *Publisher) {
		p.http = hc
	}
}

// WithLinkPreview toggles link previews on forwarded messages.
func WithLinkPreview(enabled bool) PublisherOption {
	return func(p *Publisher) {
		p.disablePreview = !enabled
	}
}

// NewPublisher creates a Bot API publisher.
func NewPublisher(apiURL, token string, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		http:           xhttp.NewClient(),
		apiURL:         apiURL,
		token:          token,
		disablePreview: true,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// Publish sends text to the destination chat. Network failures, rate limits
// and server errors classify as transient; client-side rejections (bot
// removed, malformed payload) classify as permanent.
func (p *Publisher) Publish(ctx context.Context, destination, text string) error {
	req := &sendMessageRequest{
		ChatID:                destination,
		Text:                  text,
		DisableWebPagePreview: p.disablePreview,
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", p.apiURL, p.token)
	resp, err := p.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    url,
		Body:   req,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", drepo.ErrPublishTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", drepo.ErrPublishTransient, resp.StatusCode)
	}

	var out sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: decode response: %v: %s", drepo.ErrPublishTransient, err, body)
	}

	if !out.OK {
		return fmt.Errorf("%w: %d %s", drepo.ErrPublishPermanent, out.ErrorCode, out.Description)
	}

	return nil
}

// Close implements repository.Publisher; the HTTP transport has nothing to
// release.
func (p *Publisher) Close() error { return nil }
