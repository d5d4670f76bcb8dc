package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Error taxonomy for the analysis/chat endpoints. Rate-limit and quota
// exhaustion get their own user-facing messages; everything else is generic.
var (
	ErrRateLimited   = errors.New("rate limits exceeded, please try again later")
	ErrQuotaExceeded = errors.New("AI usage limit reached, please try again later")
)

const defaultGatewayModel = "google/gemini-2.5-flash"

// AIGatewayService talks to an OpenAI-wire chat-completions gateway.
type AIGatewayService struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewAIGatewayService() *AIGatewayService {
	baseURL := os.Getenv("AI_GATEWAY_URL")
	if baseURL == "" {
		baseURL = "https://ai.gateway.lovable.dev"
	}
	model := os.Getenv("AI_GATEWAY_MODEL")
	if model == "" {
		model = defaultGatewayModel
	}
	return &AIGatewayService{
		baseURL: baseURL,
		apiKey:  os.Getenv("AI_GATEWAY_KEY"),
		model:   model,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

// GatewayMessage is one chat turn. Content is a string for plain text or a
// []ContentPart for vision requests.
type GatewayMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type ContentPart struct {
	Type     string    `json:"type"` // "text" | "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

func TextMessage(role, content string) GatewayMessage {
	return GatewayMessage{Role: role, Content: content}
}

// VisionMessage builds a user turn mixing an instruction with a
// data-URL-encoded image.
func VisionMessage(instruction, imageDataURL string) GatewayMessage {
	return GatewayMessage{
		Role: "user",
		Content: []ContentPart{
			{Type: "text", Text: instruction},
			{Type: "image_url", ImageURL: &ImageURL{URL: imageDataURL}},
		},
	}
}

type chatCompletionRequest struct {
	Model    string           `json:"model"`
	Messages []GatewayMessage `json:"messages"`
	Stream   bool             `json:"stream,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *AIGatewayService) post(ctx context.Context, messages []GatewayMessage, stream bool) (*http.Response, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("AI_GATEWAY_KEY is not configured")
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:    s.model,
		Messages: messages,
		Stream:   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call AI gateway: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return nil, ErrRateLimited
		case http.StatusPaymentRequired:
			return nil, ErrQuotaExceeded
		default:
			return nil, fmt.Errorf("ai gateway error %d: %s", resp.StatusCode, string(errBody))
		}
	}
	return resp, nil
}

// Complete sends one non-streaming request and returns the assistant text.
func (s *AIGatewayService) Complete(ctx context.Context, messages []GatewayMessage) (string, error) {
	resp, err := s.post(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read gateway response: %w", err)
	}

	var cr chatCompletionResponse
	if err := json.Unmarshal(respBytes, &cr); err != nil {
		return "", fmt.Errorf("failed to parse gateway JSON: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty response from gateway")
	}
	return cr.Choices[0].Message.Content, nil
}

// Stream sends a streaming request and returns the raw SSE body. The caller
// owns the ReadCloser. HTTP-level failures are mapped before any stream
// processing begins.
func (s *AIGatewayService) Stream(ctx context.Context, messages []GatewayMessage) (io.ReadCloser, error) {
	resp, err := s.post(ctx, messages, true)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
