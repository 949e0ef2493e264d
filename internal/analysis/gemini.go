package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

const systemInstruction = `You are the core processing unit for postal complaint analysis and automated responses.
Your tasks follow the official workflow:
1. Citizen submits complaint -> data collection -> preprocessing.
2. NLP engine: understand the text deeply.
3. Classification: categorize as "DELIVERY_DELAY", "LOST_PACKAGE", "DAMAGED_PARCEL", "WRONG_ADDRESS", "REFUND_OR_COMPENSATION", "STAFF_BEHAVIOUR" or "OTHER".
4. Sentiment analysis: "ANGRY", "UNHAPPY", "NEUTRAL" or "POSITIVE".
5. Urgency check:
   - "HIGH" priority: escalate to a postal officer (requiresReview: true).
   - "NORMAL" or "LOW" priority: automated response queue (requiresReview: false).

Output format JSON:
{
 "category": "...",
 "sentiment": "...",
 "priority": "HIGH | NORMAL | LOW",
 "response": "...",
 "requiresReview": true/false,
 "confidenceScore": 0.XX
}`

// GeminiClient implements Provider against the Gemini generateContent API.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewGeminiClient builds a client from configuration.
func NewGeminiClient(cfg config.AnalysisConfig) *GeminiClient {
	return &GeminiClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	SystemInstruction *generateContent  `json:"system_instruction,omitempty"`
	Contents          []generateContent `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

type analysisPayload struct {
	Category        string  `json:"category"`
	Sentiment       string  `json:"sentiment"`
	Priority        string  `json:"priority"`
	Response        string  `json:"response"`
	RequiresReview  bool    `json:"requiresReview"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

// Analyze classifies complaint text via the provider.
func (c *GeminiClient) Analyze(ctx context.Context, text string) (*Result, error) {
	req := generateRequest{
		SystemInstruction: &generateContent{Parts: []generatePart{{Text: systemInstruction}}},
		Contents:          []generateContent{{Parts: []generatePart{{Text: text}}}},
		GenerationConfig:  &generationConfig{ResponseMimeType: "application/json"},
	}

	raw, err := c.generate(ctx, req)
	if err != nil {
		return nil, apperrors.NewAnalysisError("analysis provider call failed", err)
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, apperrors.NewAnalysisError("analysis provider returned unparsable output", err)
	}
	result, err := payload.toResult()
	if err != nil {
		return nil, apperrors.NewAnalysisError("analysis provider returned invalid output", err)
	}
	return result, nil
}

// Draft generates a formal reply in the requested language.
func (c *GeminiClient) Draft(ctx context.Context, text string, category domain.ComplaintCategory, sentiment domain.SentimentLevel, priority domain.PriorityLevel, languageTag string) (string, error) {
	prompt := fmt.Sprintf(`Write a polite email response to a postal customer based on the complaint details below.
The entire response MUST be written in %s.

Complaint:
%s

Detected category: %s
Sentiment: %s
Priority: %s

Keep the tone empathetic, professional and short (80-120 words), include a subject line, and sign off as the customer support team.`,
		languageName(languageTag), text, category, sentiment, priority)

	req := generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	}
	draft, err := c.generate(ctx, req)
	if err != nil {
		return "", apperrors.NewGenerationError("draft generation failed", err)
	}
	if strings.TrimSpace(draft) == "" {
		return "", apperrors.NewGenerationError("draft generation returned empty text", nil)
	}
	return draft, nil
}

func (c *GeminiClient) generate(ctx context.Context, req generateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider error %d: %s", resp.StatusCode, string(respBody))
	}

	var decoded generateResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from provider")
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

func (p analysisPayload) toResult() (*Result, error) {
	category := domain.ComplaintCategory(strings.ToUpper(strings.TrimSpace(p.Category)))
	switch category {
	case domain.CategoryDeliveryDelay, domain.CategoryLostPackage, domain.CategoryDamagedParcel,
		domain.CategoryWrongAddress, domain.CategoryRefundOrCompensation, domain.CategoryStaffBehaviour,
		domain.CategoryOther:
	default:
		return nil, fmt.Errorf("unknown category %q", p.Category)
	}

	sentiment := domain.SentimentLevel(strings.ToUpper(strings.TrimSpace(p.Sentiment)))
	switch sentiment {
	case domain.SentimentAngry, domain.SentimentUnhappy, domain.SentimentNeutral, domain.SentimentPositive:
	default:
		return nil, fmt.Errorf("unknown sentiment %q", p.Sentiment)
	}

	priority := domain.PriorityLevel(strings.ToUpper(strings.TrimSpace(p.Priority)))
	switch priority {
	case domain.PriorityHigh, domain.PriorityNormal, domain.PriorityLow:
	default:
		return nil, fmt.Errorf("unknown priority %q", p.Priority)
	}

	if p.ConfidenceScore < 0 || p.ConfidenceScore > 1 {
		return nil, fmt.Errorf("confidence score %v outside [0,1]", p.ConfidenceScore)
	}

	return &Result{
		Category:        category,
		Sentiment:       sentiment,
		Priority:        priority,
		Response:        p.Response,
		RequiresReview:  p.RequiresReview,
		ConfidenceScore: p.ConfidenceScore,
	}, nil
}

func languageName(tag string) string {
	switch tag {
	case "hi":
		return "Hindi"
	case "te":
		return "Telugu"
	default:
		return "English"
	}
}
