// Package caption turns a highlight description into a short commentary line
// through the first configured text backend. It never fails outward: every
// outcome is a types.CaptionResult whose Text is usable as-is.
package caption

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/forPelevin/sportsight/internal/ports"
	"github.com/forPelevin/sportsight/internal/types"
)

const (
	FailureText     = "(Failed to generate commentary)"
	FallbackBackend = "fallback"
)

var (
	// ErrBackend wraps every remote backend failure.
	ErrBackend = errors.New("caption backend failure")
	// ErrSchema marks a response body that did not match the backend's schema.
	ErrSchema = errors.New("caption response schema mismatch")
)

func Prompt(description string) string {
	return "You are a professional sports commentator. Write a short, exciting, and " +
		"natural-sounding commentary for the following highlight: " + description +
		"\nKeep it under 2 sentences."
}

func Description(seg types.TimeSegment) string {
	return fmt.Sprintf("Highlight from %.1fs to %.1fs", seg.StartSec, seg.EndSec)
}

func Fallback(description string) string {
	return "Highlight: " + description + " (dummy commentary)"
}

type Generator struct {
	backend ports.CaptionBackend
}

// New uses the first non-nil backend. With none, captions are the local
// fallback text and no network call is made.
func New(backends ...ports.CaptionBackend) *Generator {
	for _, b := range backends {
		if b != nil {
			return &Generator{backend: b}
		}
	}
	return &Generator{}
}

func (g *Generator) Backend() string {
	if g.backend == nil {
		return FallbackBackend
	}
	return g.backend.Name()
}

func (g *Generator) Caption(ctx context.Context, description string) types.CaptionResult {
	if g.backend == nil {
		return types.CaptionResult{Text: Fallback(description), Backend: FallbackBackend}
	}
	name := g.backend.Name()

	text, err := g.backend.Complete(ctx, Prompt(description))
	if err != nil {
		if !errors.Is(err, ErrBackend) {
			err = fmt.Errorf("%w: %s: %w", ErrBackend, name, err)
		}
		return types.CaptionResult{Text: FailureText, Backend: name, Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return types.CaptionResult{
			Text:    FailureText,
			Backend: name,
			Err:     fmt.Errorf("%w: %s: %w: empty text", ErrBackend, name, ErrSchema),
		}
	}
	return types.CaptionResult{Text: text, Backend: name}
}

func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

// Redact masks the given secrets and anything that looks like a credential
// header in s. Backends run response bodies through it before they become
// failure reasons.
func Redact(s string, secrets ...string) string {
	if s == "" {
		return s
	}
	out := s
	for _, sec := range secrets {
		if sec != "" {
			out = strings.ReplaceAll(out, sec, "[REDACTED]")
		}
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
