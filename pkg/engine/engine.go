package engine

import (
	"bytes"
	"context"
	"runtime"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/screa/evm-discovery/internal/logger"
	"github.com/screa/evm-discovery/pkg/chain"
	"github.com/screa/evm-discovery/pkg/types"
	"github.com/screa/evm-discovery/pkg/worker"
)

// Engine runs single discovery passes: a breadth-first walk over proxy
// relations starting from the configured initial addresses.
type Engine struct {
	provider chain.Provider
	workers  int
	logger   log.FieldLogger
}

// NewEngine creates a new engine. workers <= 0 uses one worker per CPU.
func NewEngine(provider chain.Provider, workers int, l log.FieldLogger) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{
		provider: provider,
		workers:  workers,
		logger:   logger.OrDiscard(l),
	}
}

// Discover performs one pass against blockNumber. Any read failure fails the whole pass.
func (e *Engine) Discover(ctx context.Context, cfg types.Config, blockNumber uint64) (types.Discovery, error) {
	seen := make(map[common.Address]bool)
	var frontier []common.Address
	enqueue := func(addrs []common.Address) {
		for _, addr := range addrs {
			if seen[addr] || cfg.IsIgnored(addr) {
				continue
			}
			seen[addr] = true
			frontier = append(frontier, addr)
		}
	}
	enqueue(cfg.InitialAddresses())

	var entries []types.Entry
	for depth := 0; len(frontier) > 0 && depth <= cfg.MaxDepth(); depth++ {
		capped := false
		if limit := cfg.MaxAddresses(); limit > 0 && len(entries)+len(frontier) > limit {
			e.logger.WithFields(log.Fields{
				"project":      cfg.Name(),
				"maxAddresses": limit,
				"dropped":      len(entries) + len(frontier) - limit,
			}).Warn("Address limit reached, truncating discovery")
			frontier = frontier[:limit-len(entries)]
			capped = true
		}

		e.logger.WithFields(log.Fields{
			"project": cfg.Name(),
			"depth":   depth,
			"count":   len(frontier),
		}).Debug("Analyzing addresses")

		results, err := e.analyzeLevel(ctx, frontier, blockNumber)
		if err != nil {
			return types.Discovery{}, err
		}

		frontier = nil
		for _, r := range results {
			entries = append(entries, r.Entry)
			enqueue(r.Related)
		}
		if capped {
			break
		}
	}

	slices.SortFunc(entries, func(a, b types.Entry) int {
		return bytes.Compare(a.Address[:], b.Address[:])
	})

	return types.Discovery{
		Name:        cfg.Name(),
		Chain:       cfg.Chain(),
		BlockNumber: blockNumber,
		Entries:     entries,
	}, nil
}

// analyzeLevel analyses addrs with at most e.workers concurrent workers.
// Results keep the order of addrs.
func (e *Engine) analyzeLevel(ctx context.Context, addrs []common.Address, blockNumber uint64) ([]worker.Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	w := worker.NewWorker(e.provider)
	results := make([]worker.Result, len(addrs))
	for i, addr := range addrs {
		g.Go(func() error {
			r, err := w.Analyze(gctx, addr, blockNumber)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
