// Package triage orchestrates one triage request end to end: validation,
// path scoping, dialect detection, the parallel parse pipeline and the
// optional AI review of the unclassified residue.
package triage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"logtriage/internal/config"
	"logtriage/internal/format"
	"logtriage/internal/logging"
	"logtriage/internal/model"
	"logtriage/internal/pipeline"
	"logtriage/internal/review"
	"logtriage/internal/scan"
	"logtriage/internal/timewindow"
)

// Service serves triage requests. The configuration is read-only after
// construction and the detection cache is safe for concurrent use, so
// one Service may handle requests from multiple goroutines.
type Service struct {
	cfg      *config.Config
	log      *logging.SecureLogger
	provider review.Provider
	reviewer *review.Service
	detects  *detectCache
}

// New builds the service. The provider may be nil when AI review is not
// going to be requested; a review request against a nil provider fails
// before any file work.
func New(cfg *config.Config, log *logging.SecureLogger, provider review.Provider) (*Service, error) {
	detects, err := newDetectCache(cfg.Pipeline.DetectCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create detection cache: %w", err)
	}

	s := &Service{
		cfg:      cfg,
		log:      log,
		provider: provider,
		detects:  detects,
	}

	// The reviewer is shared so its rate limiter spans requests
	if provider != nil {
		s.reviewer = review.NewService(provider, review.Config{
			MaxConcurrent: cfg.Review.MaxConcurrent,
			MinConfidence: cfg.Review.MinConfidence,
			ChunkMaxChars: cfg.Review.ChunkMaxChars,
			RatePerMinute: cfg.Review.RatePerMinute,
			Redact:        true,
		}, log)
	}

	return s, nil
}

// Triage runs one request: parse the file with the detected dialect,
// keep entries in the identified severity set and time window, and
// optionally send the residue to the AI reviewer. Entries come back
// strictly ordered by line number.
func (s *Service) Triage(ctx context.Context, req *Request) (*Response, error) {
	requestID := uuid.New().String()
	started := time.Now()

	if err := req.validate(); err != nil {
		return nil, err
	}
	levels, identified, err := req.effectiveLevels()
	if err != nil {
		return nil, err
	}
	window, err := timewindow.Resolve(req.selectors(), time.Now())
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if req.IncludeAIReview && s.reviewer == nil {
		return nil, fmt.Errorf("ai review requested but no provider is configured")
	}

	path, err := s.resolvePath(req.LogPath)
	if err != nil {
		return nil, err
	}
	dialect, err := s.detectDialect(path)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("request_id", requestID).
		Str("path", path).
		Str("format", string(dialect)).
		Str("window", window.String()).
		Bool("ai_review", req.IncludeAIReview).
		Msg("Starting triage")

	f, err := pipeline.Open(path, s.cfg.Pipeline.MaxFileSizeMB)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.log.Warn().Err(cerr).Str("request_id", requestID).Msg("Failed to close log file")
		}
	}()

	parser, ok := format.ByName(dialect)
	if !ok {
		parser = format.LooseParser{}
	}

	filters := pipeline.Filters{
		Window:         window,
		Levels:         levels,
		Contains:       req.Contains,
		IncludeRaw:     req.IncludeRaw,
		CollectResidue: req.IncludeAIReview,
	}
	// The prefilter only helps when every line outside the wanted set can
	// be skipped unseen: all-levels, substring and review modes must
	// inspect everything
	if !req.IncludeAllLevels && !req.IncludeAIReview && req.Contains == "" {
		filters.Prefilter = scan.Prefilter(dialect, levels)
	}

	result, err := pipeline.Run(ctx, f.Reader(), parser, pipeline.Options{
		Workers:     s.cfg.Pipeline.WorkerCount,
		ForceSerial: f.Gzip,
	}, filters)
	if err != nil {
		return nil, fmt.Errorf("parse pipeline: %w", err)
	}

	entries := result.Entries
	if req.Limit > 0 && len(entries) > req.Limit {
		entries = entries[len(entries)-req.Limit:]
	}
	if entries == nil {
		entries = []model.Entry{}
	}

	resp := &Response{
		Count:   len(entries),
		Entries: entries,
	}

	if req.IncludeAIReview {
		findings, err := s.reviewer.ReviewEntries(ctx, result.Residue, identified)
		if err != nil {
			return nil, fmt.Errorf("ai review: %w", err)
		}
		resp.AIFindings = findings
	}

	s.log.Info().
		Str("request_id", requestID).
		Int("count", resp.Count).
		Int("findings", len(resp.AIFindings)).
		Uint64("lines_read", result.Stats.LinesRead).
		Uint64("parsed", result.Stats.Parsed).
		Uint64("fallback", result.Stats.Fallback).
		Float64("duration_s", time.Since(started).Seconds()).
		Msg("Triage completed")

	return resp, nil
}

// FastScan runs the byte-level severity scan instead of a full parse:
// one linear pass, no entries, just raw hit lines. Time selectors do not
// apply; the scan never looks at timestamps.
func (s *Service) FastScan(ctx context.Context, req *Request) (*ScanResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	levels, _, err := req.effectiveLevels()
	if err != nil {
		return nil, err
	}

	path, err := s.resolvePath(req.LogPath)
	if err != nil {
		return nil, err
	}
	dialect, err := s.detectDialect(path)
	if err != nil {
		return nil, err
	}

	f, err := pipeline.Open(path, s.cfg.Pipeline.MaxFileSizeMB)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.log.Warn().Err(cerr).Msg("Failed to close log file")
		}
	}()

	hits, err := scan.Scan(f.Reader(), dialect, levels)
	if err != nil {
		return nil, fmt.Errorf("fast scan: %w", err)
	}
	if hits == nil {
		hits = []model.Hit{}
	}

	s.log.Info().
		Str("path", path).
		Str("format", string(dialect)).
		Int("hits", len(hits)).
		Msg("Fast scan completed")

	return &ScanResponse{
		Format: string(dialect),
		Count:  len(hits),
		Hits:   hits,
	}, nil
}

// resolvePath normalizes the request path and enforces the base
// directory boundary. With a base dir configured, symlinks are resolved
// first so a link inside the directory cannot point the request outside
// of it.
func (s *Service) resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve log path: %w", err)
	}

	base := s.cfg.Pipeline.BaseDir
	if base == "" {
		return abs, nil
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("log file not found: %s", path)
	}
	rel, err := filepath.Rel(filepath.Clean(base), resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("log path %s is outside the configured base directory", path)
	}
	return resolved, nil
}

// detectDialect returns the cached dialect for the file's current state,
// sampling it once when unseen. The sampling pass opens the file
// separately so the pipeline later reads a fresh stream from the start.
func (s *Service) detectDialect(path string) (format.Name, error) {
	key, err := fileKey(path)
	if err != nil {
		return "", err
	}
	if dialect, ok := s.detects.get(key); ok {
		return dialect, nil
	}

	f, err := pipeline.Open(path, s.cfg.Pipeline.MaxFileSizeMB)
	if err != nil {
		return "", err
	}
	dialect := format.Detect(f.Reader(), s.cfg.Pipeline.DetectSampleLines)
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close sample stream: %w", err)
	}

	s.detects.put(key, dialect)
	s.log.Debug().
		Str("path", path).
		Str("format", string(dialect)).
		Msg("Dialect detected")
	return dialect, nil
}
