package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"SignalRelay/internal/domain/models"
	drepo "SignalRelay/internal/domain/repository"
	xhttp "SignalRelay/pkg/http"
)

// Client implements repository.Oracle against the Gemini generateContent
// REST API. It is pure request/response and holds no pipeline state.
type Client struct {
	http    *xhttp.Client
	apiKey  string
	model   string
	baseURL string
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient injects the transport.
func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates an oracle client for the given model.
func New(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		http:    xhttp.NewClient(),
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Format sends the raw text plus the fixed instruction template to the
// oracle and returns its structured reply. The reply carries no ordering or
// completeness guarantee; that is the validator's job.
func (c *Client) Format(ctx context.Context, rawText string) (*models.OracleReply, error) {
	req := &generateRequest{
		Contents: []content{{Parts: []part{{Text: buildPrompt(rawText)}}}},
		GenerationConfig: &generationConfig{
			Temperature:      0,
			ResponseMIMEType: "application/json",
		},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    url,
		Body:   req,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", drepo.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", drepo.ErrOracleRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", drepo.ErrOracleUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", drepo.ErrOracleMalformed, resp.StatusCode, body)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", drepo.ErrOracleMalformed, err)
	}

	text := candidateText(&out)
	if text == "" {
		return nil, fmt.Errorf("%w: empty reply", drepo.ErrOracleMalformed)
	}

	return parseReply(text)
}

func candidateText(resp *generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}

// parseReply decodes the oracle's JSON verdict. Code fences around the JSON
// are tolerated; anything else fails as a malformed reply.
func parseReply(text string) (*models.OracleReply, error) {
	text = stripFences(text)

	var reply models.OracleReply
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", drepo.ErrOracleMalformed, err)
	}

	return &reply, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
