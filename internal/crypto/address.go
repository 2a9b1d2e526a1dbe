package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Errors
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrBadChecksum    = errors.New("address checksum mismatch")
)

// EIP-1967 proxy storage slots, each keccak256(label) - 1
var (
	ImplementationSlot = eip1967Slot("eip1967.proxy.implementation")
	AdminSlot          = eip1967Slot("eip1967.proxy.admin")
	BeaconSlot         = eip1967Slot("eip1967.proxy.beacon")
)

func eip1967Slot(label string) common.Hash {
	n := new(big.Int).SetBytes(keccak256Bytes([]byte(label)))
	n.Sub(n, big.NewInt(1))
	var slot common.Hash
	n.FillBytes(slot[:])
	return slot
}

// ---- helpers ----

func keccak256Bytes(b []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(b)
	return h.Sum(nil)
}

// Keccak256 calculates the keccak256 hash of the input bytes
func Keccak256(data []byte) []byte {
	return keccak256Bytes(data)
}

// Keccak256Hash calculates the keccak256 hash of data as a common.Hash
func Keccak256Hash(data []byte) common.Hash {
	return common.BytesToHash(keccak256Bytes(data))
}

// AddressFromWord extracts the address stored in the low 20 bytes of a storage word.
// It returns false when the word is empty or holds the zero address.
func AddressFromWord(word []byte) (common.Address, bool) {
	if len(word) == 0 {
		return common.Address{}, false
	}
	addr := common.BytesToAddress(word)
	if addr == (common.Address{}) {
		return common.Address{}, false
	}
	return addr, true
}

// ParseAddress decodes a hex address with or without 0x. All-lowercase and
// all-uppercase input is accepted as is; mixed case must be a valid EIP-55 checksum.
func ParseAddress(s string) (common.Address, error) {
	h := strings.TrimSpace(s)
	if len(h) >= 2 && (h[0:2] == "0x" || h[0:2] == "0X") {
		h = h[2:]
	}
	if len(h) != 40 {
		return common.Address{}, fmt.Errorf("%w %q: got %d hex chars, want 40", ErrInvalidAddress, s, len(h))
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w %q: %v", ErrInvalidAddress, s, err)
	}
	if h != strings.ToLower(h) && h != strings.ToUpper(h) {
		if ToChecksumAddress(b)[2:] != h {
			return common.Address{}, fmt.Errorf("%w: %s", ErrBadChecksum, s)
		}
	}
	return common.BytesToAddress(b), nil
}

// ToChecksumAddress converts 20-byte address to EIP-55 checksummed string.
func ToChecksumAddress(addr20 []byte) string {
	if len(addr20) != 20 {
		panic(errors.New("address must be 20 bytes"))
	}
	hexLower := hex.EncodeToString(addr20) // lowercase
	hash := keccak256Bytes([]byte(hexLower))
	var out strings.Builder
	out.Grow(2 + 40)
	out.WriteString("0x")
	for i, c := range hexLower {
		if c >= '0' && c <= '9' {
			out.WriteByte(byte(c))
			continue
		}
		// each nibble of the hash decides case of corresponding hex char
		n := (hash[i/2] >> uint(4*(1-i%2))) & 0xF
		if n >= 8 {
			out.WriteByte(byte(c) - 'a' + 'A')
		} else {
			out.WriteByte(byte(c))
		}
	}
	return out.String()
}
