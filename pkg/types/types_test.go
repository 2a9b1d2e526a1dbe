package types

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	a = common.HexToAddress("0x0000000000000000000000000000000000000001")
	b = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

func TestConfigDerivationLeavesReceiverUntouched(t *testing.T) {
	orig := NewConfig("bridge", "ethereum", []common.Address{a})

	derived := orig.WithInitialAddresses([]common.Address{b}).
		WithIgnoredAddresses([]common.Address{a}).
		WithMaxDepth(1).
		WithMaxAddresses(10)

	assert.Equal(t, []common.Address{a}, orig.InitialAddresses())
	assert.Empty(t, orig.IgnoredAddresses())
	assert.Equal(t, DefaultMaxDepth, orig.MaxDepth())
	assert.Equal(t, DefaultMaxAddresses, orig.MaxAddresses())

	assert.Equal(t, []common.Address{b}, derived.InitialAddresses())
	assert.True(t, derived.IsIgnored(a))
	assert.Equal(t, 1, derived.MaxDepth())
	assert.Equal(t, 10, derived.MaxAddresses())
	assert.Equal(t, "bridge", derived.Name())
	assert.Equal(t, "ethereum", derived.Chain())
}

func TestConfigDoesNotAlias(t *testing.T) {
	seeds := []common.Address{a}
	cfg := NewConfig("bridge", "ethereum", seeds)

	seeds[0] = b
	assert.Equal(t, []common.Address{a}, cfg.InitialAddresses())

	got := cfg.InitialAddresses()
	got[0] = b
	assert.Equal(t, []common.Address{a}, cfg.InitialAddresses())

	injected := []common.Address{b}
	derived := cfg.WithInitialAddresses(injected)
	injected[0] = a
	assert.Equal(t, []common.Address{b}, derived.InitialAddresses())
}

func TestOptionsValidate(t *testing.T) {
	require.NoError(t, Options{}.Validate())
	require.NoError(t, Options{MaxRetries: 3, RetryDelay: time.Second}.Validate())
	assert.ErrorIs(t, Options{MaxRetries: -1}.Validate(), ErrNegativeRetries)
	assert.ErrorIs(t, Options{RetryDelay: -1}.Validate(), ErrNegativeDelay)
}

func TestDiscoveryAddresses(t *testing.T) {
	d := Discovery{Entries: []Entry{
		{Address: a, Type: EntryEOA},
		{Address: b, Type: EntryContract},
	}}
	assert.Equal(t, []common.Address{b}, d.Addresses(EntryContract))
	assert.Equal(t, []common.Address{a}, d.Addresses(EntryEOA))
}
