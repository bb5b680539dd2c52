package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopquery-inc/shopquery-engine/pkg/apperrors"
	"github.com/shopquery-inc/shopquery-engine/pkg/database"
	"github.com/shopquery-inc/shopquery-engine/pkg/llm"
	"github.com/shopquery-inc/shopquery-engine/pkg/observability"
	"github.com/shopquery-inc/shopquery-engine/pkg/schema"
	sqlsafe "github.com/shopquery-inc/shopquery-engine/pkg/sql"
)

// QueryExecutor runs a validated statement. Implemented by
// *database.Executor; the seam exists so pipeline tests need no database.
type QueryExecutor interface {
	Execute(ctx context.Context, validated sqlsafe.ValidatedQuery) (*database.QueryResult, error)
}

// Pipeline sequences translation, validation and execution for one request.
// It holds no mutable state across requests beyond the immutable descriptor.
type Pipeline struct {
	translator Translator
	executor   QueryExecutor
	descriptor *schema.Descriptor
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewPipeline creates the orchestrator. maxRetries bounds re-attempts of
// retryable upstream model failures; translation and validation failures
// are never retried.
func NewPipeline(translator Translator, executor QueryExecutor, descriptor *schema.Descriptor, maxRetries int, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		translator: translator,
		executor:   executor,
		descriptor: descriptor,
		maxRetries: maxRetries,
		backoff:    500 * time.Millisecond,
		logger:     logger.Named("pipeline"),
	}
}

// Handle runs the full pipeline for one question. Every failure is mapped
// to a *apperrors.PipelineError carrying the stage that failed; no partial
// result is ever returned.
func (p *Pipeline) Handle(ctx context.Context, question string) (*database.QueryResult, error) {
	requestID := uuid.NewString()
	logger := p.logger.With(zap.String("request_id", requestID))

	// Cheap first layer: a question that fingerprints as SQL injection is
	// refused before the model ever sees it.
	if fingerprint, hit := sqlsafe.ScreenQuestion(question); hit {
		logger.Warn("question rejected by injection screen",
			zap.String("fingerprint", fingerprint))
		observability.RecordPipelineStage(string(apperrors.StageValidation), "rejected")
		return nil, apperrors.NewPipelineError(apperrors.StageValidation, apperrors.KindUnsafeQuery,
			"cannot run this query", nil)
	}

	candidate, err := p.translateWithRetry(ctx, question, logger)
	if err != nil {
		return nil, err
	}
	observability.RecordPipelineStage(string(apperrors.StageTranslation), "ok")

	validated, err := sqlsafe.Validate(candidate.SQL, p.descriptor)
	if err != nil {
		// The rejected SQL stays in the logs; callers get a generic message.
		logger.Warn("candidate rejected",
			zap.String("candidate_sql", candidate.SQL),
			zap.Error(err))
		observability.RecordPipelineStage(string(apperrors.StageValidation), "rejected")
		return nil, apperrors.NewPipelineError(apperrors.StageValidation, apperrors.KindUnsafeQuery,
			"cannot run this query", err)
	}
	observability.RecordPipelineStage(string(apperrors.StageValidation), "ok")

	result, err := p.executor.Execute(ctx, validated)
	if err != nil {
		logger.Error("execution failed",
			zap.String("sql", validated.SQL()),
			zap.Error(err))
		observability.RecordPipelineStage(string(apperrors.StageExecution), "error")
		return nil, apperrors.NewPipelineError(apperrors.StageExecution, apperrors.KindExecution,
			"query execution failed", err)
	}
	observability.RecordPipelineStage(string(apperrors.StageExecution), "ok")

	logger.Info("question answered",
		zap.Int("rows", result.RowCount),
		zap.Bool("truncated", result.Truncated))
	return result, nil
}

// translateWithRetry calls the translator, retrying only failures the LLM
// error classification marks retryable, with exponential backoff.
func (p *Pipeline) translateWithRetry(ctx context.Context, question string, logger *zap.Logger) (CandidateQuery, error) {
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.backoff << (attempt - 1)
			logger.Info("retrying translation",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				observability.RecordPipelineStage(string(apperrors.StageTranslation), "error")
				return CandidateQuery{}, apperrors.NewPipelineError(apperrors.StageTranslation,
					apperrors.KindUpstream, "translation canceled", ctx.Err())
			}
		}

		candidate, err := p.translator.Translate(ctx, question)
		if err == nil {
			return candidate, nil
		}
		lastErr = err

		if errors.Is(err, ErrNoStatement) || errors.Is(err, ErrModelRefused) {
			observability.RecordPipelineStage(string(apperrors.StageTranslation), "rejected")
			return CandidateQuery{}, apperrors.NewPipelineError(apperrors.StageTranslation,
				apperrors.KindTranslation,
				"could not derive a query from the question; please rephrase", err)
		}

		if !llm.IsRetryable(err) {
			break
		}
	}

	observability.RecordPipelineStage(string(apperrors.StageTranslation), "error")
	return CandidateQuery{}, apperrors.NewPipelineError(apperrors.StageTranslation,
		apperrors.KindUpstream, "language model unavailable", lastErr)
}
