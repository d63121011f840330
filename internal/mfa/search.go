package mfa

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"scorecard/domain/core"
	"scorecard/domain/dataset"
	"scorecard/domain/mfa"
	"scorecard/internal"

	"golang.org/x/sync/errgroup"
)

// SearchRequest describes one combinatorial search
type SearchRequest struct {
	Target   string
	Pool     mfa.Pool
	Size     int
	Excluded mfa.ExcludedPairs
	Mix      TypeMix

	Workers         int           // <= 0 means runtime.NumCPU()
	MaxCombinations int           // admissible combinations to evaluate, 0 = all
	Timeout         time.Duration // 0 = no deadline
	KeepAudit       bool          // keep every evaluation, not just accepted ones
}

// Searcher enumerates combinations and evaluates them on a bounded pool
type Searcher struct {
	evaluator *Evaluator
	logger    *internal.Logger
}

// NewSearcher creates a searcher around an evaluator
func NewSearcher(evaluator *Evaluator, logger *internal.Logger) *Searcher {
	if logger == nil {
		logger = internal.NewDiscardLogger()
	}
	return &Searcher{evaluator: evaluator, logger: logger.WithComponent("MFASearch")}
}

// Search evaluates every admissible size-k combination of the pool against
// the target. The table is only read. Combinations not started before the
// context is done are counted as skipped; the evaluations that did finish
// are still returned. The result does not depend on the worker count.
func (s *Searcher) Search(ctx context.Context, t *dataset.Table, req SearchRequest) (*mfa.SearchResult, error) {
	if err := validateRequest(t, req); err != nil {
		return nil, err
	}
	names := req.Pool.Names()
	t, err := t.Select(append(append([]string(nil), names...), req.Target)...)
	if err != nil {
		return nil, err
	}
	workers := req.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	started := time.Now()
	result := &mfa.SearchResult{
		RunID:      core.NewRunID(),
		Target:     req.Target,
		Size:       req.Size,
		ParamsHash: s.paramsHash(req),
		StartedAt:  started,
	}
	s.logger.Info("searching %.4g combinations of size %d from %d features (workers=%d)",
		CountCombinations(len(names), req.Size), req.Size, len(names), workers)

	var admissible []mfa.Combination
	forEachCombination(names, req.Size, func(combo mfa.Combination) bool {
		if req.MaxCombinations > 0 && len(admissible) >= req.MaxCombinations {
			result.Stats.Truncated = true
			return false
		}
		result.Stats.Enumerated++
		switch {
		case Admissible(combo, req.Pool, req.Excluded, req.Mix):
			admissible = append(admissible, combo)
		case ViolatesExclusion(combo, req.Excluded):
			result.Stats.ExcludedPair++
		default:
			result.Stats.TypeMix++
		}
		return true
	})
	s.logger.Debug("%d admissible after filtering %d enumerated", len(admissible), result.Stats.Enumerated)

	evals := make([]mfa.Evaluation, len(admissible))
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, combo := range admissible {
		if ctx.Err() != nil {
			evals[i] = skipped(combo, ctx.Err())
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				evals[i] = skipped(combo, err)
				return nil
			}
			evals[i] = s.evaluator.Evaluate(t, req.Target, combo)
			return nil
		})
	}
	_ = g.Wait()

	trace := s.logger.GetLevel() >= internal.LogLevelTrace
	for _, ev := range evals {
		if trace {
			s.logger.Trace("%s: %s gini=%.4f max_p=%.3g max_vif=%.3g", ev.Combination.Key(), ev.Status,
				ev.Summary.Gini, ev.Summary.MaxPValue, ev.Summary.MaxVIF)
		}
		switch ev.Status {
		case mfa.StatusAccepted:
			result.Stats.Accepted++
			result.Accepted = append(result.Accepted, ev)
		case mfa.StatusRejected:
			result.Stats.Rejected++
		case mfa.StatusFitFailed:
			result.Stats.FitFailed++
			if core.IsFitError(ev.Err) {
				s.logger.Debug("%v", ev.Err)
			} else {
				s.logger.Warn("evaluation error: %v", ev.Err)
			}
		case mfa.StatusSkipped:
			result.Stats.Skipped++
		}
	}
	result.Stats.Evaluated = len(evals) - result.Stats.Skipped
	mfa.RankByGini(result.Accepted)
	if req.KeepAudit {
		result.Audit = evals
	}
	result.Fingerprint = mfa.ComputeFingerprint(result.Accepted)
	result.Duration = time.Since(started)

	s.logger.Info("evaluated %d combinations in %v: %d accepted, %d rejected, %d fit failures, %d skipped",
		result.Stats.Evaluated, result.Duration.Round(time.Millisecond), result.Stats.Accepted,
		result.Stats.Rejected, result.Stats.FitFailed, result.Stats.Skipped)
	return result, nil
}

func (s *Searcher) paramsHash(req SearchRequest) core.Hash {
	c := s.evaluator.Criteria()
	return core.ComputeConfigHash(map[string]interface{}{
		"target":           req.Target,
		"size":             req.Size,
		"numeric":          req.Pool.Numeric,
		"categorical":      req.Pool.Categorical,
		"excluded":         req.Excluded.Pairs(),
		"min_numeric":      req.Mix.MinNumeric,
		"min_categorical":  req.Mix.MinCategorical,
		"max_combinations": req.MaxCombinations,
		"max_pvalue":       c.MaxPValue,
		"max_vif":          c.MaxVIF,
	})
}

func validateRequest(t *dataset.Table, req SearchRequest) error {
	if t == nil {
		return fmt.Errorf("%w: nil table", core.ErrInvalidInput)
	}
	if err := req.Pool.Validate(); err != nil {
		return err
	}
	n := len(req.Pool.Names())
	if req.Size < 1 || req.Size > n {
		return fmt.Errorf("%w: combination size %d for a pool of %d", core.ErrInvalidInput, req.Size, n)
	}
	if _, err := t.Target(req.Target); err != nil {
		return err
	}
	for _, name := range req.Pool.Names() {
		if name == req.Target {
			return fmt.Errorf("%w: target %q is in the pool", core.ErrInvalidInput, name)
		}
		if !t.Has(name) {
			return core.NewColumnNotFoundError(name)
		}
	}
	return nil
}

func skipped(combo mfa.Combination, err error) mfa.Evaluation {
	return mfa.Evaluation{Combination: combo, Status: mfa.StatusSkipped, Err: err}
}
