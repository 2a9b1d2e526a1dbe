// Package chaintest provides an in-memory chain.Provider for tests.
package chaintest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
)

// Provider is an in-memory chain state. It is safe for concurrent use.
type Provider struct {
	Head uint64

	mu      sync.RWMutex
	code    map[common.Address][]byte
	storage map[common.Address]map[common.Hash]common.Hash
	fail    map[common.Address]error

	calls atomic.Int64
}

// New creates an empty provider
func New(head uint64) *Provider {
	return &Provider{
		Head:    head,
		code:    make(map[common.Address][]byte),
		storage: make(map[common.Address]map[common.Hash]common.Hash),
		fail:    make(map[common.Address]error),
	}
}

// SetCode deploys code at addr
func (p *Provider) SetCode(addr common.Address, code []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.code[addr] = code
}

// SetStorage stores an address in a slot of addr
func (p *Provider) SetStorage(addr common.Address, slot common.Hash, value common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.storage[addr] == nil {
		p.storage[addr] = make(map[common.Hash]common.Hash)
	}
	p.storage[addr][slot] = common.BytesToHash(value.Bytes())
}

// FailOn makes every read of addr return err. A nil err clears the failure.
func (p *Provider) FailOn(addr common.Address, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.fail, addr)
		return
	}
	p.fail[addr] = err
}

// Calls returns the number of reads served
func (p *Provider) Calls() int64 {
	return p.calls.Load()
}

func (p *Provider) BlockNumber(ctx context.Context) (uint64, error) {
	p.calls.Add(1)
	return p.Head, ctx.Err()
}

func (p *Provider) CodeAt(ctx context.Context, addr common.Address, _ uint64) ([]byte, error) {
	p.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.fail[addr]; err != nil {
		return nil, err
	}
	return p.code[addr], nil
}

func (p *Provider) StorageAt(ctx context.Context, addr common.Address, slot common.Hash, _ uint64) ([]byte, error) {
	p.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.fail[addr]; err != nil {
		return nil, err
	}
	word := p.storage[addr][slot]
	return word.Bytes(), nil
}
