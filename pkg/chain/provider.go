package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"
)

// Provider reads chain state at a given block
type Provider interface {
	BlockNumber(ctx context.Context) (uint64, error)
	CodeAt(ctx context.Context, addr common.Address, blockNumber uint64) ([]byte, error)
	StorageAt(ctx context.Context, addr common.Address, slot common.Hash, blockNumber uint64) ([]byte, error)
}

// RPCProvider is a Provider backed by an Ethereum JSON-RPC endpoint.
// All calls share one rate limiter, so it is safe to use from many workers.
type RPCProvider struct {
	client  *ethclient.Client
	limiter *rate.Limiter
}

// Dial connects to the RPC endpoint at url. rps <= 0 disables rate limiting.
func Dial(ctx context.Context, url string, rps float64) (*RPCProvider, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return NewRPCProvider(client, rps), nil
}

// NewRPCProvider wraps an existing client. rps <= 0 disables rate limiting.
func NewRPCProvider(client *ethclient.Client, rps float64) *RPCProvider {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &RPCProvider{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Close closes the underlying client
func (p *RPCProvider) Close() {
	p.client.Close()
}

// BlockNumber returns the latest block number
func (p *RPCProvider) BlockNumber(ctx context.Context) (uint64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	n, err := p.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber: %w", err)
	}
	return n, nil
}

// CodeAt returns the code of addr at blockNumber
func (p *RPCProvider) CodeAt(ctx context.Context, addr common.Address, blockNumber uint64) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	code, err := p.client.CodeAt(ctx, addr, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return nil, fmt.Errorf("eth_getCode %s: %w", addr.Hex(), err)
	}
	return code, nil
}

// StorageAt returns the storage word of addr at slot and blockNumber
func (p *RPCProvider) StorageAt(ctx context.Context, addr common.Address, slot common.Hash, blockNumber uint64) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	word, err := p.client.StorageAt(ctx, addr, slot, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return nil, fmt.Errorf("eth_getStorageAt %s %s: %w", addr.Hex(), slot.Hex(), err)
	}
	return word, nil
}
