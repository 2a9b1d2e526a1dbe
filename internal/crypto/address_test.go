package crypto

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEIP1967Slots(t *testing.T) {
	assert.Equal(t, common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc"), ImplementationSlot)
	assert.Equal(t, common.HexToHash("0xb53127684a568b3173ae13b9f8a6016e243e63b6e8ee1178d6a717850b5d6103"), AdminSlot)
	assert.Equal(t, common.HexToHash("0xa3f0ad74e5423aebfd80d3ef4346578335a9a72aeaee59ff6cb3582b35133d50"), BeaconSlot)
}

func TestParseAddress(t *testing.T) {
	want := common.HexToAddress("0xce0042B868300000d44A59004Da54A005ffdcf9f")
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "checksummed", input: "0xce0042B868300000d44A59004Da54A005ffdcf9f"},
		{name: "lowercase", input: "0xce0042b868300000d44a59004da54a005ffdcf9f"},
		{name: "uppercase without prefix", input: "CE0042B868300000D44A59004DA54A005FFDCF9F"},
		{name: "surrounding whitespace", input: "  0xce0042b868300000d44a59004da54a005ffdcf9f\n"},
		{name: "bad checksum", input: "0xCe0042B868300000d44A59004Da54A005ffdcf9f", wantErr: ErrBadChecksum},
		{name: "too short", input: "0x1234", wantErr: ErrInvalidAddress},
		{name: "not hex", input: "0xzz0042b868300000d44a59004da54a005ffdcf9f", wantErr: ErrInvalidAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestToChecksumAddress(t *testing.T) {
	addr := common.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", ToChecksumAddress(addr.Bytes()))
	// go-ethereum agrees with our casing
	assert.Equal(t, addr.Hex(), ToChecksumAddress(addr.Bytes()))
}

func TestAddressFromWord(t *testing.T) {
	impl := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	got, ok := AddressFromWord(common.BytesToHash(impl.Bytes()).Bytes())
	require.True(t, ok)
	assert.Equal(t, impl, got)

	_, ok = AddressFromWord(make([]byte, 32))
	assert.False(t, ok)

	_, ok = AddressFromWord(nil)
	assert.False(t, ok)
}

func TestKeccak256Hash(t *testing.T) {
	// keccak256 of the empty string
	assert.Equal(t,
		common.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"),
		Keccak256Hash(nil))
}
