package types

import (
	"errors"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// DefaultMaxDepth bounds how many relation hops are followed from the initial addresses
	DefaultMaxDepth = 6
	// DefaultMaxAddresses bounds how many entries a single pass may produce
	DefaultMaxAddresses = 100
)

// Errors
var (
	ErrNegativeRetries = errors.New("max retries must not be negative")
	ErrNegativeDelay   = errors.New("retry delay must not be negative")
)

// Config is the configuration of a single discovery pass. It is a value:
// every With* method returns a new Config and leaves the receiver untouched.
type Config struct {
	name             string
	chain            string
	initialAddresses []common.Address
	ignoredAddresses []common.Address
	maxDepth         int
	maxAddresses     int
}

// NewConfig creates a pass configuration with default limits
func NewConfig(name, chain string, initialAddresses []common.Address) Config {
	return Config{
		name:             name,
		chain:            chain,
		initialAddresses: slices.Clone(initialAddresses),
		maxDepth:         DefaultMaxDepth,
		maxAddresses:     DefaultMaxAddresses,
	}
}

// Name returns the project name
func (c Config) Name() string { return c.name }

// Chain returns the chain identifier
func (c Config) Chain() string { return c.chain }

// MaxDepth returns the traversal depth limit
func (c Config) MaxDepth() int { return c.maxDepth }

// MaxAddresses returns the entry limit
func (c Config) MaxAddresses() int { return c.maxAddresses }

// InitialAddresses returns a copy of the seed addresses
func (c Config) InitialAddresses() []common.Address {
	return slices.Clone(c.initialAddresses)
}

// IgnoredAddresses returns a copy of the addresses excluded from traversal
func (c Config) IgnoredAddresses() []common.Address {
	return slices.Clone(c.ignoredAddresses)
}

// IsIgnored reports whether addr must not be analysed
func (c Config) IsIgnored(addr common.Address) bool {
	return slices.Contains(c.ignoredAddresses, addr)
}

// WithInitialAddresses returns a copy of c whose seed set is replaced by addrs
func (c Config) WithInitialAddresses(addrs []common.Address) Config {
	out := c.clone()
	out.initialAddresses = slices.Clone(addrs)
	return out
}

// WithIgnoredAddresses returns a copy of c whose ignore set is replaced by addrs
func (c Config) WithIgnoredAddresses(addrs []common.Address) Config {
	out := c.clone()
	out.ignoredAddresses = slices.Clone(addrs)
	return out
}

// WithMaxDepth returns a copy of c with a new depth limit
func (c Config) WithMaxDepth(depth int) Config {
	out := c.clone()
	out.maxDepth = depth
	return out
}

// WithMaxAddresses returns a copy of c with a new entry limit
func (c Config) WithMaxAddresses(n int) Config {
	out := c.clone()
	out.maxAddresses = n
	return out
}

// Clone returns a deep copy of c
func (c Config) Clone() Config {
	return c.clone()
}

func (c Config) clone() Config {
	out := c
	out.initialAddresses = slices.Clone(c.initialAddresses)
	out.ignoredAddresses = slices.Clone(c.ignoredAddresses)
	return out
}

// Options controls how a run is orchestrated
type Options struct {
	RunSanityCheck         bool
	InjectInitialAddresses bool
	MaxRetries             int           // additional attempts after the first failure
	RetryDelay             time.Duration // wait before each retry
}

// Validate validates the options
func (o Options) Validate() error {
	if o.MaxRetries < 0 {
		return ErrNegativeRetries
	}
	if o.RetryDelay < 0 {
		return ErrNegativeDelay
	}
	return nil
}

// EntryType classifies a discovered address
type EntryType string

const (
	EntryContract EntryType = "Contract"
	EntryEOA      EntryType = "EOA"
)

// Entry is a single discovered address
type Entry struct {
	Address        common.Address  `json:"address"`
	Type           EntryType       `json:"type"`
	CodeHash       *common.Hash    `json:"codeHash,omitempty"`
	Implementation *common.Address `json:"implementation,omitempty"`
	Admin          *common.Address `json:"admin,omitempty"`
	Beacon         *common.Address `json:"beacon,omitempty"`
}

// Discovery is the result of one discovery pass
type Discovery struct {
	Name        string  `json:"name"`
	Chain       string  `json:"chain"`
	BlockNumber uint64  `json:"blockNumber"`
	Entries     []Entry `json:"entries"`
}

// Addresses returns the addresses of all entries of the given type, in entry order
func (d Discovery) Addresses(t EntryType) []common.Address {
	var out []common.Address
	for _, e := range d.Entries {
		if e.Type == t {
			out = append(out, e.Address)
		}
	}
	return out
}
