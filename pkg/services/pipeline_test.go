package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopquery-inc/shopquery-engine/pkg/apperrors"
	"github.com/shopquery-inc/shopquery-engine/pkg/database"
	"github.com/shopquery-inc/shopquery-engine/pkg/llm"
	sqlsafe "github.com/shopquery-inc/shopquery-engine/pkg/sql"
)

type stubTranslator struct {
	responses []func() (CandidateQuery, error)
	calls     int
}

func (s *stubTranslator) Translate(ctx context.Context, question string) (CandidateQuery, error) {
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx]()
}

func translatorReturning(sql string) *stubTranslator {
	return &stubTranslator{responses: []func() (CandidateQuery, error){
		func() (CandidateQuery, error) {
			return CandidateQuery{SQL: sql, Raw: sql}, nil
		},
	}}
}

func translatorFailing(err error) *stubTranslator {
	return &stubTranslator{responses: []func() (CandidateQuery, error){
		func() (CandidateQuery, error) { return CandidateQuery{}, err },
	}}
}

type spyExecutor struct {
	calls  int
	gotSQL string
	result *database.QueryResult
	err    error
}

func (s *spyExecutor) Execute(ctx context.Context, validated sqlsafe.ValidatedQuery) (*database.QueryResult, error) {
	s.calls++
	s.gotSQL = validated.SQL()
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestPipeline(t Translator, e QueryExecutor, maxRetries int) *Pipeline {
	p := NewPipeline(t, e, testDescriptor(), maxRetries, zap.NewNop())
	p.backoff = time.Millisecond
	return p
}

func TestHandle_Success(t *testing.T) {
	executor := &spyExecutor{result: &database.QueryResult{
		SQL:      "SELECT name FROM customers",
		Columns:  []string{"name"},
		Rows:     []map[string]any{{"name": "Ada"}},
		RowCount: 1,
	}}
	p := newTestPipeline(translatorReturning("SELECT name FROM customers;"), executor, 0)

	result, err := p.Handle(context.Background(), "list customer names")
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
	assert.Equal(t, 1, executor.calls)
	assert.Equal(t, "SELECT name FROM customers", executor.gotSQL)
}

func TestHandle_UnsafeCandidateNeverExecutes(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"delete statement", "DELETE FROM orders;"},
		{"multi statement", "SELECT * FROM customers; DROP TABLE customers;"},
		{"unknown table", "SELECT * FROM employees;"},
		{"unknown column", "SELECT salary FROM customers;"},
		{"comment smuggling", "SELECT * FROM customers -- WHERE id = 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := &spyExecutor{}
			p := newTestPipeline(translatorReturning(tt.sql), executor, 0)

			_, err := p.Handle(context.Background(), "some question")
			require.Error(t, err)

			var perr *apperrors.PipelineError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, apperrors.StageValidation, perr.Stage)
			assert.Equal(t, apperrors.KindUnsafeQuery, perr.Kind)
			// Rejected SQL must not leak into the caller-facing message.
			assert.NotContains(t, perr.Message, "DROP")
			assert.NotContains(t, perr.Message, tt.sql)
			assert.Zero(t, executor.calls, "executor must not run for rejected SQL")
		})
	}
}

func TestHandle_QuestionInjectionScreen(t *testing.T) {
	tr := translatorReturning("SELECT * FROM customers;")
	executor := &spyExecutor{}
	p := newTestPipeline(tr, executor, 0)

	_, err := p.Handle(context.Background(), "x' OR '1'='1' UNION SELECT password FROM users --")
	require.Error(t, err)

	var perr *apperrors.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, apperrors.StageValidation, perr.Stage)
	assert.Equal(t, apperrors.KindUnsafeQuery, perr.Kind)
	assert.Zero(t, tr.calls, "model must not be called for screened questions")
	assert.Zero(t, executor.calls)
}

func TestHandle_RefusalIsTranslationErrorNotRetried(t *testing.T) {
	tr := translatorFailing(ErrModelRefused)
	p := newTestPipeline(tr, &spyExecutor{}, 3)

	_, err := p.Handle(context.Background(), "what is the meaning of life?")
	require.Error(t, err)

	var perr *apperrors.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, apperrors.StageTranslation, perr.Stage)
	assert.Equal(t, apperrors.KindTranslation, perr.Kind)
	assert.Equal(t, 1, tr.calls, "refusals must not be retried")
}

func TestHandle_RetryableUpstreamErrorRetried(t *testing.T) {
	rateLimited := &llm.Error{Type: llm.ErrorTypeRateLimit, Message: "rate limited", Retryable: true}
	tr := &stubTranslator{responses: []func() (CandidateQuery, error){
		func() (CandidateQuery, error) { return CandidateQuery{}, rateLimited },
		func() (CandidateQuery, error) {
			return CandidateQuery{SQL: "SELECT id FROM orders;"}, nil
		},
	}}
	executor := &spyExecutor{result: &database.QueryResult{RowCount: 0}}
	p := newTestPipeline(tr, executor, 2)

	_, err := p.Handle(context.Background(), "order ids")
	require.NoError(t, err)
	assert.Equal(t, 2, tr.calls)
	assert.Equal(t, 1, executor.calls)
}

func TestHandle_NonRetryableUpstreamErrorFailsFast(t *testing.T) {
	authErr := &llm.Error{Type: llm.ErrorTypeAuth, Message: "authentication failed", Retryable: false}
	tr := translatorFailing(authErr)
	p := newTestPipeline(tr, &spyExecutor{}, 3)

	_, err := p.Handle(context.Background(), "anything")
	require.Error(t, err)

	var perr *apperrors.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, apperrors.StageTranslation, perr.Stage)
	assert.Equal(t, apperrors.KindUpstream, perr.Kind)
	assert.Equal(t, 1, tr.calls, "auth failures must not be retried")
}

func TestHandle_RetriesExhausted(t *testing.T) {
	rateLimited := &llm.Error{Type: llm.ErrorTypeRateLimit, Message: "rate limited", Retryable: true}
	tr := translatorFailing(rateLimited)
	p := newTestPipeline(tr, &spyExecutor{}, 2)

	_, err := p.Handle(context.Background(), "anything")
	require.Error(t, err)

	var perr *apperrors.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, apperrors.KindUpstream, perr.Kind)
	assert.Equal(t, 3, tr.calls, "one initial attempt plus two retries")
}

func TestHandle_ExecutionFailure(t *testing.T) {
	executor := &spyExecutor{err: errors.New("canceling statement due to statement timeout")}
	p := newTestPipeline(translatorReturning("SELECT * FROM products;"), executor, 0)

	_, err := p.Handle(context.Background(), "all products")
	require.Error(t, err)

	var perr *apperrors.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, apperrors.StageExecution, perr.Stage)
	assert.Equal(t, apperrors.KindExecution, perr.Kind)
	assert.NotContains(t, perr.Message, "statement timeout")
}
