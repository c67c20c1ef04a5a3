package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nehasindhwani0110/k-gai/pkg/adapters/datasource"
	"github.com/nehasindhwani0110/k-gai/pkg/apperrors"
	"github.com/nehasindhwani0110/k-gai/pkg/jsonutil"
	"github.com/nehasindhwani0110/k-gai/pkg/logging"
	"github.com/nehasindhwani0110/k-gai/pkg/sqlcheck"
)

// ExecuteResult is a query result with every value already converted to a
// JSON-encodable form.
type ExecuteResult struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
}

// QueryService validates and executes read-only queries.
type QueryService interface {
	// Execute validates the query, runs it through the dialect's runner,
	// and returns transport-ready rows. Queries that fail validation are
	// rejected before any database connection is made.
	Execute(ctx context.Context, connString, query string) (*ExecuteResult, error)

	// Validate checks the query without executing it.
	Validate(query string) error
}

type queryService struct {
	engines *datasource.EngineCache
	logger  *zap.Logger
}

// NewQueryService creates a query service over the given engine cache.
func NewQueryService(engines *datasource.EngineCache, logger *zap.Logger) QueryService {
	return &queryService{engines: engines, logger: logger}
}

func (s *queryService) Validate(query string) error {
	if result := sqlcheck.Validate(query); result.Error != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, result.Error)
	}
	return nil
}

func (s *queryService) Execute(ctx context.Context, connString, query string) (*ExecuteResult, error) {
	checked := sqlcheck.Validate(query)
	if checked.Error != nil {
		s.logger.Info("rejected query",
			zap.String("query", logging.SanitizeQuery(query)),
			zap.String("reason", checked.Error.Error()),
		)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, checked.Error)
	}

	// Advisory only: a flagged literal in a valid SELECT may be real data.
	for _, finding := range sqlcheck.ScanLiterals(checked.NormalizedSQL) {
		s.logger.Warn("query literal matched injection fingerprint",
			zap.String("fingerprint", finding.Fingerprint),
			zap.String("query", logging.SanitizeQuery(query)),
		)
	}

	pool, driver, err := s.engines.Acquire(ctx, connString)
	if err != nil {
		return nil, err
	}

	result, err := driver.Runner.Run(ctx, pool, checked.NormalizedSQL)
	if err != nil {
		reason := apperrors.ClassifyExecution(err)
		s.logger.Warn("query execution failed",
			zap.String("dialect", pool.GetType()),
			zap.String("reason", string(reason)),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, apperrors.WrapExecution(err)
	}

	rows := make([][]any, len(result.Rows))
	for i, row := range result.Rows {
		rows[i] = jsonutil.ToTransportRow(row)
	}

	return &ExecuteResult{
		Columns:  result.Columns,
		Rows:     rows,
		RowCount: result.RowCount,
	}, nil
}
