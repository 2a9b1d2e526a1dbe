package configreader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screa/evm-discovery/internal/crypto"
	"github.com/screa/evm-discovery/pkg/types"
)

var (
	portal   = common.HexToAddress("0xbEb5Fc579115071764c7423A4f12eDde41f106Ed")
	registry = common.HexToAddress("0x0a00000000000000000000000000000000000001")
	guardian = common.HexToAddress("0x0b00000000000000000000000000000000000001")
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestReadConfig(t *testing.T) {
	root := t.TempDir()
	r := New(root)
	writeFile(t, r.Dir("optimism", "ethereum"), ConfigFile, `
name: optimism
chain: ethereum
initialAddresses:
  - "0xbEb5Fc579115071764c7423A4f12eDde41f106Ed"
ignoredAddresses:
  - "0x0b00000000000000000000000000000000000001"
maxDepth: 3
`)

	cfg, err := r.ReadConfig("optimism", "ethereum")
	require.NoError(t, err)
	assert.Equal(t, "optimism", cfg.Name())
	assert.Equal(t, "ethereum", cfg.Chain())
	assert.Equal(t, []common.Address{portal}, cfg.InitialAddresses())
	assert.True(t, cfg.IsIgnored(guardian))
	assert.Equal(t, 3, cfg.MaxDepth())
	assert.Equal(t, types.DefaultMaxAddresses, cfg.MaxAddresses())
}

func TestReadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "identity mismatch",
			content: "name: arbitrum\nchain: ethereum\n",
			wantErr: ErrIdentityMismatch,
		},
		{
			name:    "bad checksum",
			content: "name: optimism\nchain: ethereum\ninitialAddresses: [\"0xBEb5Fc579115071764c7423A4f12eDde41f106Ed\"]\n",
			wantErr: crypto.ErrBadChecksum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(t.TempDir())
			writeFile(t, r.Dir("optimism", "ethereum"), ConfigFile, tt.content)
			_, err := r.ReadConfig("optimism", "ethereum")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("unknown field", func(t *testing.T) {
		r := New(t.TempDir())
		writeFile(t, r.Dir("optimism", "ethereum"), ConfigFile, "name: optimism\nchain: ethereum\nmaxdepth: 2\n")
		_, err := r.ReadConfig("optimism", "ethereum")
		assert.Error(t, err)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := New(t.TempDir()).ReadConfig("optimism", "ethereum")
		require.ErrorIs(t, err, ErrConfigNotFound)
	})
}

func TestPersistedAddresses(t *testing.T) {
	r := New(t.TempDir())
	writeFile(t, r.Dir("optimism", "ethereum"), DiscoveredFile, `{
  "name": "optimism",
  "chain": "ethereum",
  "blockNumber": 19000000,
  "entries": [
    {"address": "0xbeb5fc579115071764c7423a4f12edde41f106ed", "type": "Contract"},
    {"address": "0x0b00000000000000000000000000000000000001", "type": "EOA"},
    {"address": "0x0a00000000000000000000000000000000000001", "type": "Contract"}
  ]
}`)

	addrs, err := r.PersistedAddresses(context.Background(), "optimism", "ethereum")
	require.NoError(t, err)
	assert.Equal(t, []common.Address{portal, registry}, addrs)
}

func TestPersistedAddressesMissing(t *testing.T) {
	_, err := New(t.TempDir()).PersistedAddresses(context.Background(), "optimism", "ethereum")
	require.ErrorIs(t, err, ErrDiscoveryNotFound)
}

func TestWriteDiscoveryRoundTrip(t *testing.T) {
	r := New(t.TempDir())
	codeHash := crypto.Keccak256Hash([]byte{0x60, 0x80})
	d := types.Discovery{
		Name:        "optimism",
		Chain:       "ethereum",
		BlockNumber: 19_000_000,
		Entries: []types.Entry{
			{Address: registry, Type: types.EntryContract, CodeHash: &codeHash, Admin: &guardian},
			{Address: guardian, Type: types.EntryEOA},
		},
	}

	require.NoError(t, r.WriteDiscovery(d))
	// overwriting replaces the previous file
	require.NoError(t, r.WriteDiscovery(d))

	got, err := r.ReadDiscovery("optimism", "ethereum")
	require.NoError(t, err)
	assert.Equal(t, d, got)

	leftovers, err := filepath.Glob(filepath.Join(r.Dir("optimism", "ethereum"), DiscoveredFile+".*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
