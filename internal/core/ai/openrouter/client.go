package openrouter

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"meal-prep-planner/internal/infrastructure/config"
	"meal-prep-planner/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const baseURL = "https://openrouter.ai/api/v1"

// Client talks to the OpenRouter chat-completions API.
type Client struct {
	config *config.Config
	client *resty.Client
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a chat-completions request body.
type Request struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
	Stream    bool      `json:"stream,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// ModelUnavailableError reports that the requested model itself was
// rejected by the backend, as opposed to a transient service failure.
type ModelUnavailableError struct {
	Model  string
	Detail string
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model %q unavailable: %s", e.Model, e.Detail)
}

// NewClient creates an OpenRouter client. Construction happens once at
// startup and the client is handed to every component that needs it.
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.OpenRouter.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.OpenRouter.APIKey)).
		SetHeader("HTTP-Referer", "https://meal-prep-planner.dev").
		SetHeader("X-Title", "Meal Prep Planner")

	return &Client{
		config: cfg,
		client: client,
	}
}

// Complete sends one prompt and returns the full completion text.
func (c *Client) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	req := Request{
		Model:     model,
		Messages:  messages,
		MaxTokens: c.config.OpenRouter.MaxTokens,
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	common.LogAICall(model, time.Since(start), err)

	if err != nil {
		return "", fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		body := resp.String()
		if isModelRejection(resp.StatusCode(), body) {
			return "", &ModelUnavailableError{Model: model, Detail: common.TruncateString(body, 300)}
		}
		return "", fmt.Errorf("OpenRouter API returned status %d: %s", resp.StatusCode(), common.TruncateString(body, 300))
	}

	var result completionResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse OpenRouter response: %w", err)
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty completion in OpenRouter response")
	}

	return result.Choices[0].Message.Content, nil
}

// CompleteStream sends one prompt with stream enabled and invokes fn for
// every delta fragment as it arrives. fn returning an error stops the
// stream; the error is propagated.
func (c *Client) CompleteStream(ctx context.Context, model string, messages []Message, fn func(chunk string) error) error {
	req := Request{
		Model:     model,
		Messages:  messages,
		MaxTokens: c.config.OpenRouter.MaxTokens,
		Stream:    true,
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetDoNotParseResponse(true).
		Post("/chat/completions")
	if err != nil {
		common.LogAICall(model, time.Since(start), err)
		return fmt.Errorf("failed to send streaming request to OpenRouter: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		buf := make([]byte, 2048)
		n, _ := body.Read(buf)
		detail := string(buf[:n])
		common.LogAICall(model, time.Since(start), fmt.Errorf("status %d", resp.StatusCode()))
		if isModelRejection(resp.StatusCode(), detail) {
			return &ModelUnavailableError{Model: model, Detail: common.TruncateString(detail, 300)}
		}
		return fmt.Errorf("OpenRouter API returned status %d: %s", resp.StatusCode(), common.TruncateString(detail, 300))
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	chunks := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		if data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := common.ParseJSON(data, &chunk); err != nil {
			common.LogWarn("Skipping malformed stream chunk", zap.Error(err))
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		chunks++
		if err := fn(chunk.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		common.LogAICall(model, time.Since(start), err)
		return fmt.Errorf("stream read failed: %w", err)
	}

	common.LogAICall(model, time.Since(start), nil)
	common.LogDebug("Stream finished",
		zap.String("model", model),
		zap.Int("chunks", chunks),
	)
	return nil
}

// isModelRejection classifies an error body as a model-level rejection
// rather than a general service failure.
func isModelRejection(status int, body string) bool {
	if status == http.StatusNotFound {
		return true
	}
	lower := strings.ToLower(body)
	return strings.Contains(lower, "not a valid model") ||
		strings.Contains(lower, "no endpoints found") ||
		strings.Contains(lower, "model_not_found")
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}
