package worker

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/screa/evm-discovery/internal/crypto"
	"github.com/screa/evm-discovery/pkg/chain"
	"github.com/screa/evm-discovery/pkg/types"
)

// Result is the analysis of a single address
type Result struct {
	Entry types.Entry
	// Related holds addresses referenced by the entry that should be traversed next
	Related []common.Address
}

// proxySlot pairs an EIP-1967 slot with the entry field it fills
type proxySlot struct {
	slot common.Hash
	set  func(e *types.Entry, addr common.Address)
}

var proxySlots = []proxySlot{
	{slot: crypto.ImplementationSlot, set: func(e *types.Entry, a common.Address) { e.Implementation = &a }},
	{slot: crypto.AdminSlot, set: func(e *types.Entry, a common.Address) { e.Admin = &a }},
	{slot: crypto.BeaconSlot, set: func(e *types.Entry, a common.Address) { e.Beacon = &a }},
}

// Worker analyses addresses against a chain provider
type Worker struct {
	provider chain.Provider
}

// NewWorker creates a new worker instance
func NewWorker(provider chain.Provider) *Worker {
	return &Worker{provider: provider}
}

// Analyze classifies addr at blockNumber and collects its proxy relations
func (w *Worker) Analyze(ctx context.Context, addr common.Address, blockNumber uint64) (Result, error) {
	code, err := w.provider.CodeAt(ctx, addr, blockNumber)
	if err != nil {
		return Result{}, fmt.Errorf("analyze %s: %w", addr.Hex(), err)
	}

	if len(code) == 0 {
		return Result{Entry: types.Entry{Address: addr, Type: types.EntryEOA}}, nil
	}

	codeHash := crypto.Keccak256Hash(code)
	res := Result{
		Entry: types.Entry{
			Address:  addr,
			Type:     types.EntryContract,
			CodeHash: &codeHash,
		},
	}

	for _, ps := range proxySlots {
		word, err := w.provider.StorageAt(ctx, addr, ps.slot, blockNumber)
		if err != nil {
			return Result{}, fmt.Errorf("analyze %s: %w", addr.Hex(), err)
		}
		related, ok := crypto.AddressFromWord(word)
		if !ok {
			continue
		}
		ps.set(&res.Entry, related)
		res.Related = append(res.Related, related)
	}

	return res, nil
}
