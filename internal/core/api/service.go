// Package api provides the compile service shared by the CLI, gRPC and HTTP
// transports.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solatis/gfb/internal/core/db"
	"github.com/solatis/gfb/internal/document"
	"github.com/solatis/gfb/internal/metrics"
	"github.com/solatis/gfb/internal/query"
	"github.com/solatis/gfb/internal/types"
)

// Service compiles filter documents and, when a registry is attached,
// persists the result per account.
// Thin orchestration layer delegating to document, query and db packages.
type Service struct {
	compiler *query.Compiler
	store    *db.Store
	logger   *slog.Logger
	maxBytes int
}

// CompileResult is the outcome of one Compile call. Records and ETag are set
// only when the result was persisted.
type CompileResult struct {
	Filters []*query.CompiledFilter
	Records []db.FilterRecord
	ETag    string
}

// NewService creates service instance with dependencies.
// store may be nil, which disables persistence and ListFilters.
// maxDocumentBytes <= 0 removes the document size limit.
func NewService(compiler *query.Compiler, store *db.Store, logger *slog.Logger, maxDocumentBytes int) (*Service, error) {
	if compiler == nil {
		return nil, fmt.Errorf("compiler cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		compiler: compiler,
		store:    store,
		logger:   logger,
		maxBytes: maxDocumentBytes,
	}, nil
}

// Compiler returns the compiler the service was built with.
func (s *Service) Compiler() *query.Compiler {
	return s.compiler
}

// HasRegistry reports whether compiled filters can be persisted.
func (s *Service) HasRegistry() bool {
	return s.store != nil
}

// Compile parses and compiles doc. With persist set the account's stored
// filter set is replaced by the result.
func (s *Service) Compile(ctx context.Context, account types.AccountID, doc []byte, persist bool) (*CompileResult, error) {
	transport := TransportFromContext(ctx)
	start := time.Now()

	result, err := s.compile(ctx, account, doc, persist)
	if err != nil {
		metrics.ObserveCompileError(transport, err, time.Since(start))
		s.logger.Warn("compile failed",
			"transport", transport,
			"account", account,
			"error", err)
		return nil, err
	}

	queries, split := 0, 0
	for _, f := range result.Filters {
		queries += len(f.Queries)
		if len(f.Queries) > 1 {
			split++
		}
	}
	metrics.ObserveCompile(transport, len(result.Filters), queries, split, time.Since(start))
	s.logger.Info("compiled filter document",
		"transport", transport,
		"account", account,
		"labels", len(result.Filters),
		"queries", queries,
		"persisted", persist)
	return result, nil
}

func (s *Service) compile(ctx context.Context, account types.AccountID, doc []byte, persist bool) (*CompileResult, error) {
	if s.maxBytes > 0 && len(doc) > s.maxBytes {
		return nil, &types.DocumentError{Reason: fmt.Sprintf("document of %d bytes exceeds the %d byte limit", len(doc), s.maxBytes)}
	}
	if persist {
		if s.store == nil {
			return nil, ErrRegistryDisabled
		}
		if account == "" {
			return nil, ErrMissingAccount
		}
	}

	parsed, err := document.Parse(doc)
	if err != nil {
		return nil, err
	}
	filters, err := s.compiler.CompileDocument(ctx, parsed)
	if err != nil {
		return nil, err
	}

	result := &CompileResult{Filters: filters}
	if !persist {
		return result, nil
	}

	records, err := s.store.ReplaceFilters(ctx, account, filters)
	if err != nil {
		metrics.RegistryOperationsTotal.WithLabelValues("replace", "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	metrics.RegistryOperationsTotal.WithLabelValues("replace", "success").Inc()

	result.Records = records
	result.ETag = db.ETag(records)
	return result, nil
}

// Filters returns the account's stored filter set and its ETag.
func (s *Service) Filters(ctx context.Context, account types.AccountID) ([]db.FilterRecord, string, error) {
	if s.store == nil {
		return nil, "", ErrRegistryDisabled
	}
	if account == "" {
		return nil, "", ErrMissingAccount
	}

	records, err := s.store.ListFilters(ctx, account)
	if err != nil {
		metrics.RegistryOperationsTotal.WithLabelValues("list", "error").Inc()
		return nil, "", fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	metrics.RegistryOperationsTotal.WithLabelValues("list", "success").Inc()
	return records, db.ETag(records), nil
}

type transportKey struct{}

// WithTransport tags ctx with the transport name used in metrics and logs.
func WithTransport(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, transportKey{}, name)
}

// TransportFromContext returns the transport tag of ctx, "cli" if unset.
func TransportFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(transportKey{}).(string); ok {
		return name
	}
	return "cli"
}
