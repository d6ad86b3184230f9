package azureopenai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/forPelevin/sportsight/internal/caption"
)

const (
	Name = "azure-openai"

	defaultAPIVersion = "2024-02-15-preview"
	defaultTimeout    = 10 * time.Second
)

type Config struct {
	Endpoint   string
	Credential string
	// BearerAuth sends Credential as an Azure AD bearer token instead of
	// the api-key header.
	BearerAuth  bool
	Deployment  string
	APIVersion  string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
}

// Enabled reports whether both an endpoint and a credential are configured.
func (c Config) Enabled() bool {
	return normalizeEndpoint(c.Endpoint) != "" && c.Credential != ""
}

type Adapter struct {
	client *openai.Client
	cfg    Config
}

func New(c Config) *Adapter {
	if c.APIVersion == "" {
		c.APIVersion = defaultAPIVersion
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 60
	}

	oc := openai.DefaultAzureConfig(c.Credential, normalizeEndpoint(c.Endpoint))
	if c.BearerAuth {
		oc.APIType = openai.APITypeAzureAD
	}
	oc.APIVersion = c.APIVersion
	deployment := c.Deployment
	oc.AzureModelMapperFunc = func(model string) string {
		if deployment != "" {
			return deployment
		}
		return model
	}
	oc.HTTPClient = &http.Client{Timeout: c.Timeout}

	return &Adapter{client: openai.NewClientWithConfig(oc), cfg: c}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Complete(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: a.cfg.Deployment,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: azure openai timeout after %s (deployment=%s)", caption.ErrBackend, a.cfg.Timeout, a.cfg.Deployment)
		}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: azure openai status %d: %s", caption.ErrBackend, apiErr.HTTPStatusCode,
				caption.Truncate(caption.Redact(apiErr.Message, a.cfg.Credential), 400))
		}
		return "", fmt.Errorf("%w: azure openai: %s", caption.ErrBackend,
			caption.Truncate(caption.Redact(err.Error(), a.cfg.Credential), 400))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %w: azure openai returned no choices", caption.ErrBackend, caption.ErrSchema)
	}
	return resp.Choices[0].Message.Content, nil
}
