// Package services contains the translation pipeline and its orchestration.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shopquery-inc/shopquery-engine/pkg/llm"
	"github.com/shopquery-inc/shopquery-engine/pkg/prompt"
	"github.com/shopquery-inc/shopquery-engine/pkg/schema"
)

var (
	// ErrNoStatement means the model responded but no statement-like span
	// could be located.
	ErrNoStatement = errors.New("no SQL statement found in model response")
	// ErrModelRefused means the model explicitly declined to answer from
	// the schema.
	ErrModelRefused = errors.New("model could not answer the question from the schema")
)

// CandidateQuery is SQL text extracted from a model response, not yet
// trusted. SQL is non-empty and trimmed.
type CandidateQuery struct {
	SQL string
	Raw string // the full model response, for logging
}

// Translator converts a user question into a candidate SQL statement via
// one outbound model call. It never retries internally; retry policy
// belongs to the pipeline.
type Translator interface {
	Translate(ctx context.Context, question string) (CandidateQuery, error)
}

type llmTranslator struct {
	client      llm.Client
	descriptor  *schema.Descriptor
	system      string
	temperature float64
	timeout     time.Duration
	logger      *zap.Logger
}

// NewTranslator builds a translator over the given model client. The system
// prompt is composed once from the descriptor; an empty schema is a
// configuration error. timeout bounds each model call independently of the
// database execution timeout.
func NewTranslator(client llm.Client, d *schema.Descriptor, temperature float64, timeout time.Duration, logger *zap.Logger) (Translator, error) {
	system, err := prompt.SystemPrompt(d)
	if err != nil {
		return nil, fmt.Errorf("compose system prompt: %w", err)
	}
	return &llmTranslator{
		client:      client,
		descriptor:  d,
		system:      system,
		temperature: temperature,
		timeout:     timeout,
		logger:      logger.Named("translator"),
	}, nil
}

// Translate makes one model call and extracts the candidate statement.
func (t *llmTranslator) Translate(ctx context.Context, question string) (CandidateQuery, error) {
	userPrompt, err := prompt.Build(question, t.descriptor)
	if err != nil {
		return CandidateQuery{}, err
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	response, err := t.client.GenerateResponse(ctx, userPrompt, t.system, t.temperature)
	if err != nil {
		return CandidateQuery{}, err // already classified by the client
	}

	candidate, err := ExtractSQL(response)
	if err != nil {
		t.logger.Warn("no statement extracted",
			zap.String("model", t.client.GetModel()),
			zap.Int("response_len", len(response)),
			zap.Error(err))
		return CandidateQuery{}, err
	}

	return CandidateQuery{SQL: candidate, Raw: response}, nil
}

// thinkTagPattern matches <think>...</think> tags that reasoning models may
// prepend to a response.
var thinkTagPattern = regexp.MustCompile(`(?s)^[\s]*<think>.*?</think>[\s]*`)

// fencePattern matches a fenced code block with an optional language tag.
var fencePattern = regexp.MustCompile("(?s)```(?:sql|SQL)?\\s*\n?(.*?)```")

// ExtractSQL locates the candidate statement span in a model response.
// It strips think tags and markdown fences, detects the refusal marker, and
// takes everything from the first SELECT/WITH onward. Deliberately keeps
// any trailing text after the first terminator: a response carrying two
// statements must reach the validator intact so its single-statement rule
// rejects it, rather than being silently truncated to the first.
func ExtractSQL(response string) (string, error) {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", ErrNoStatement
	}

	if strings.HasPrefix(cleaned, prompt.RefusalMarker) {
		return "", fmt.Errorf("%w: %s", ErrModelRefused,
			strings.TrimSpace(strings.TrimPrefix(cleaned, prompt.RefusalMarker)))
	}

	if m := fencePattern.FindStringSubmatch(cleaned); m != nil {
		cleaned = strings.TrimSpace(m[1])
	}

	idx := firstStatementStart(cleaned)
	if idx < 0 {
		return "", ErrNoStatement
	}

	candidate := strings.TrimSpace(cleaned[idx:])
	if candidate == "" {
		return "", ErrNoStatement
	}
	return candidate, nil
}

// firstStatementStart returns the offset of the first SELECT or WITH word,
// or -1 when the response contains no statement-like span.
func firstStatementStart(s string) int {
	lower := strings.ToLower(s)
	best := -1
	for _, verb := range []string{"select", "with"} {
		from := 0
		for {
			i := strings.Index(lower[from:], verb)
			if i < 0 {
				break
			}
			abs := from + i
			if isWordBoundary(lower, abs, len(verb)) {
				if best < 0 || abs < best {
					best = abs
				}
				break
			}
			from = abs + len(verb)
		}
	}
	return best
}

func isWordBoundary(s string, start, length int) bool {
	if start > 0 {
		c := s[start-1]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			return false
		}
	}
	end := start + length
	if end < len(s) {
		c := s[end]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
