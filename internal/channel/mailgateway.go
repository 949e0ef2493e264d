package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spec-kit/grievance-service/internal/config"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// MailGateway implements Channel against an HTTP mail-gateway service that
// exposes the shared complaint inbox and an outbound send endpoint.
type MailGateway struct {
	baseURL     string
	apiKey      string
	fromAddress string
	httpClient  *http.Client
}

// NewMailGateway builds a gateway client from configuration.
func NewMailGateway(cfg config.ChannelConfig) *MailGateway {
	return &MailGateway{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		fromAddress: cfg.FromAddress,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

type outboundRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// FetchInbound pulls pending complaint messages from the gateway inbox.
func (g *MailGateway) FetchInbound(ctx context.Context) ([]InboundMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/inbound", nil)
	if err != nil {
		return nil, apperrors.NewChannelUnreachable(err)
	}
	g.authorize(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewChannelUnreachable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewChannelUnreachable(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewChannelUnreachable(fmt.Errorf("gateway error %d: %s", resp.StatusCode, string(body)))
	}

	var messages []InboundMessage
	if err := json.Unmarshal(body, &messages); err != nil {
		return nil, apperrors.NewChannelUnreachable(fmt.Errorf("decode inbound feed: %w", err))
	}
	return messages, nil
}

// Deliver sends a response message to the customer.
func (g *MailGateway) Deliver(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(outboundRequest{
		From:    g.fromAddress,
		To:      to,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return apperrors.NewChannelError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/outbound", bytes.NewReader(payload))
	if err != nil {
		return apperrors.NewChannelError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	g.authorize(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return apperrors.NewChannelError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return apperrors.NewChannelError(fmt.Errorf("gateway error %d: %s", resp.StatusCode, string(respBody)))
	}
	return nil
}

func (g *MailGateway) authorize(req *http.Request) {
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
}
