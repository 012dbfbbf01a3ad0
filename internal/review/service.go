package review

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"logtriage/internal/logging"
	"logtriage/internal/model"
)

const (
	// DefaultMaxConcurrent is the default number of parallel provider calls
	DefaultMaxConcurrent = 3
	// DefaultMinConfidence is the default confidence gate for findings
	DefaultMinConfidence = 0.55
)

// Config controls how unclassified entries are reviewed.
type Config struct {
	MaxConcurrent int     // parallel provider calls
	MinConfidence float64 // findings below this confidence are dropped
	ChunkMaxChars int     // character budget per chunk
	RatePerMinute float64 // provider calls per minute, 0 = unlimited
	Redact        bool    // redact secrets before sending
}

// Service sends chunks of unclassified log lines to an AI provider
// and collects the findings that clear the confidence gate.
type Service struct {
	provider Provider
	cfg      Config
	limiter  *rate.Limiter
	log      *logging.SecureLogger
}

// NewService creates a review service around the given provider.
func NewService(provider Provider, cfg Config, log *logging.SecureLogger) *Service {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	if cfg.ChunkMaxChars <= 0 {
		cfg.ChunkMaxChars = DefaultChunkMaxChars
	}

	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Limit(cfg.RatePerMinute / 60)
	}

	return &Service{
		provider: provider,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 1),
		log:      log,
	}
}

// ReviewEntries reviews log entries whose level did not match the identified
// set. Entries are chunked, optionally redacted, deduplicated by content hash
// and sent to the provider with bounded concurrency. A failed chunk is logged
// and skipped; the call errors only when every chunk fails.
func (s *Service) ReviewEntries(ctx context.Context, residue []model.Entry, identifiedLevels []model.Level) ([]Finding, error) {
	if len(residue) == 0 {
		return nil, nil
	}

	chunks := BuildChunks(residue, s.cfg.ChunkMaxChars)

	// Redact first so the dedup hash sees exactly what the provider sees
	seen := make(map[string]struct{}, len(chunks))
	work := make([]Chunk, 0, len(chunks))
	for _, ch := range chunks {
		if s.cfg.Redact {
			ch.Text = Redact(ch.Text)
		}
		sum := sha256.Sum256([]byte(ch.Text))
		key := hex.EncodeToString(sum[:])
		if _, dup := seen[key]; dup {
			s.log.Debug().
				Int("lines", len(ch.LineNumbers)).
				Msg("Skipping duplicate review chunk")
			continue
		}
		seen[key] = struct{}{}
		work = append(work, ch)
	}

	s.log.Info().
		Int("entries", len(residue)).
		Int("chunks", len(work)).
		Str("provider", s.provider.GetProviderName()).
		Msg("Reviewing unclassified entries")

	systemPrompt := GetSystemPrompt()

	var (
		mu       sync.Mutex
		findings []Finding
		failures int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrent)

	for i, ch := range work {
		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				return err
			}

			resp, stats, err := s.provider.Review(gctx, systemPrompt, GetUserPrompt(ch.Text, identifiedLevels))
			if err != nil {
				// One bad chunk must not sink the rest
				s.log.Warn().
					Err(err).
					Int("chunk", i+1).
					Msg("Review chunk failed")
				mu.Lock()
				failures++
				mu.Unlock()
				return nil
			}

			s.log.Debug().
				Int("chunk", i+1).
				Int("input_tokens", stats.InputTokens).
				Int("output_tokens", stats.OutputTokens).
				Float64("cost_usd", stats.CostUSD).
				Float64("duration_s", stats.DurationSeconds).
				Msg("Review chunk completed")

			mu.Lock()
			for _, f := range resp.Findings {
				if f.Confidence >= s.cfg.MinConfidence {
					findings = append(findings, f)
				}
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if failures == len(work) {
		return nil, fmt.Errorf("ai review failed for all %d chunks", len(work))
	}

	// Concurrent chunks finish in arbitrary order; sort for stable output
	sort.SliceStable(findings, func(i, j int) bool {
		return firstLine(findings[i]) < firstLine(findings[j])
	})

	return findings, nil
}

func firstLine(f Finding) int {
	if len(f.LineNumbers) == 0 {
		return 0
	}
	return f.LineNumbers[0]
}
