package runner

import (
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"

	"github.com/screa/evm-discovery/pkg/types"
)

// ErrSanityCheckFailed is matched by every *SanityError
var ErrSanityCheckFailed = errors.New("sanity check failed: passes differ")

// SanityError reports how two passes over the same block differ
type SanityError struct {
	Project string
	Diff    string
}

func (e *SanityError) Error() string {
	return fmt.Sprintf("%s for %s (-first +second):\n%s", ErrSanityCheckFailed, e.Project, e.Diff)
}

func (e *SanityError) Is(target error) bool {
	return target == ErrSanityCheckFailed
}

// CmpChecker fails when the two passes are not deeply equal
type CmpChecker struct{}

func (CmpChecker) Check(first, second types.Discovery) error {
	if diff := cmp.Diff(first, second); diff != "" {
		return &SanityError{Project: first.Name, Diff: diff}
	}
	return nil
}
