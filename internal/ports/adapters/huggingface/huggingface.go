// Package huggingface calls a hosted text-generation model on the HuggingFace
// inference API.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/forPelevin/sportsight/internal/caption"
)

const (
	Name = "huggingface"

	DefaultModelURL = "https://api-inference.huggingface.co/models/MatchTime/gpt2-base-sports-commentary"
	defaultTimeout  = 10 * time.Second
)

type Adapter struct {
	token    string
	modelURL string
	timeout  time.Duration
	client   *resty.Client
}

func New(token, modelURL string, timeout time.Duration) *Adapter {
	if modelURL == "" {
		modelURL = DefaultModelURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Adapter{token: token, modelURL: modelURL, timeout: timeout, client: c}
}

func (a *Adapter) Name() string { return Name }

type request struct {
	Inputs string `json:"inputs"`
}

type generation struct {
	GeneratedText *string `json:"generated_text"`
}

func (a *Adapter) Complete(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.R().
		SetContext(reqCtx).
		SetAuthToken(a.token).
		SetBody(request{Inputs: prompt}).
		Post(a.modelURL)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: huggingface timeout after %s", caption.ErrBackend, a.timeout)
		}
		return "", fmt.Errorf("%w: huggingface: %s", caption.ErrBackend, caption.Redact(err.Error(), a.token))
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", fmt.Errorf("%w: huggingface status %d: %s", caption.ErrBackend, resp.StatusCode(),
			caption.Truncate(caption.Redact(string(resp.Body()), a.token), 400))
	}

	text, err := parseGeneration(resp.Body(), a.token)
	if err != nil {
		return "", fmt.Errorf("%w: huggingface: %w", caption.ErrBackend, err)
	}
	return text, nil
}

// parseGeneration accepts exactly [{"generated_text": ...}, ...] or
// {"generated_text": ...}. Anything else, including {"error": ...}, is a
// schema mismatch. secrets are redacted from any body echoed in the error.
func parseGeneration(body []byte, secrets ...string) (string, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return "", fmt.Errorf("%w: empty body", caption.ErrSchema)
	}

	switch body[0] {
	case '[':
		var list []generation
		if err := json.Unmarshal(body, &list); err != nil {
			return "", fmt.Errorf("%w: %v", caption.ErrSchema, err)
		}
		if len(list) == 0 || list[0].GeneratedText == nil {
			return "", fmt.Errorf("%w: missing generated_text", caption.ErrSchema)
		}
		return *list[0].GeneratedText, nil
	case '{':
		var one generation
		if err := json.Unmarshal(body, &one); err != nil {
			return "", fmt.Errorf("%w: %v", caption.ErrSchema, err)
		}
		if one.GeneratedText == nil {
			return "", fmt.Errorf("%w: %s", caption.ErrSchema, caption.Truncate(caption.Redact(string(body), secrets...), 200))
		}
		return *one.GeneratedText, nil
	default:
		return "", fmt.Errorf("%w: unexpected body %q", caption.ErrSchema, caption.Truncate(caption.Redact(string(body), secrets...), 200))
	}
}
