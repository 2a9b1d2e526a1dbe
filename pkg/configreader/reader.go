package configreader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/screa/evm-discovery/internal/crypto"
	"github.com/screa/evm-discovery/pkg/types"
)

// File names inside <root>/<project>/<chain>/
const (
	ConfigFile     = "config.yaml"
	DiscoveredFile = "discovered.json"
)

// Errors
var (
	ErrConfigNotFound    = errors.New("project config not found")
	ErrDiscoveryNotFound = errors.New("persisted discovery not found")
	ErrIdentityMismatch  = errors.New("config identity does not match its location")
)

// projectFile is the on-disk shape of config.yaml
type projectFile struct {
	Name             string   `yaml:"name"`
	Chain            string   `yaml:"chain"`
	InitialAddresses []string `yaml:"initialAddresses"`
	IgnoredAddresses []string `yaml:"ignoredAddresses"`
	MaxDepth         *int     `yaml:"maxDepth"`
	MaxAddresses     *int     `yaml:"maxAddresses"`
}

// Reader reads and writes project files under a discovery root
type Reader struct {
	root string
}

// New creates a reader rooted at root
func New(root string) *Reader {
	return &Reader{root: root}
}

// Dir returns the directory holding the files of a project on a chain
func (r *Reader) Dir(name, chain string) string {
	return filepath.Join(r.root, name, chain)
}

// ReadConfig reads the pass configuration of a project on a chain
func (r *Reader) ReadConfig(name, chain string) (types.Config, error) {
	path := filepath.Join(r.Dir(name, chain), ConfigFile)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if err != nil {
		return types.Config{}, err
	}

	var pf projectFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil {
		return types.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if pf.Name != name || pf.Chain != chain {
		return types.Config{}, fmt.Errorf("%w: %s declares %s/%s", ErrIdentityMismatch, path, pf.Name, pf.Chain)
	}

	initial, err := parseAddresses(pf.InitialAddresses)
	if err != nil {
		return types.Config{}, fmt.Errorf("%s initialAddresses: %w", path, err)
	}
	ignored, err := parseAddresses(pf.IgnoredAddresses)
	if err != nil {
		return types.Config{}, fmt.Errorf("%s ignoredAddresses: %w", path, err)
	}

	cfg := types.NewConfig(pf.Name, pf.Chain, initial).WithIgnoredAddresses(ignored)
	if pf.MaxDepth != nil {
		cfg = cfg.WithMaxDepth(*pf.MaxDepth)
	}
	if pf.MaxAddresses != nil {
		cfg = cfg.WithMaxAddresses(*pf.MaxAddresses)
	}
	return cfg, nil
}

// ReadDiscovery reads the persisted discovery of a project on a chain
func (r *Reader) ReadDiscovery(name, chain string) (types.Discovery, error) {
	path := filepath.Join(r.Dir(name, chain), DiscoveredFile)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.Discovery{}, fmt.Errorf("%w: %s", ErrDiscoveryNotFound, path)
	}
	if err != nil {
		return types.Discovery{}, err
	}

	var d types.Discovery
	if err := json.Unmarshal(raw, &d); err != nil {
		return types.Discovery{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return d, nil
}

// PersistedAddresses returns the contract addresses of the persisted discovery
func (r *Reader) PersistedAddresses(_ context.Context, name, chain string) ([]common.Address, error) {
	d, err := r.ReadDiscovery(name, chain)
	if err != nil {
		return nil, err
	}
	return d.Addresses(types.EntryContract), nil
}

// WriteDiscovery persists d next to its project config. The file is replaced atomically.
func (r *Reader) WriteDiscovery(d types.Discovery) error {
	dir := r.Dir(d.Name, d.Chain)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')

	tmp, err := os.CreateTemp(dir, DiscoveredFile+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, DiscoveredFile))
}

func parseAddresses(raw []string) ([]common.Address, error) {
	var out []common.Address
	for _, s := range raw {
		addr, err := crypto.ParseAddress(s)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}
