package system

import (
	"errors"
	"fmt"
)

var (
	// ErrConstruction matches every descriptor failure returned by Build.
	ErrConstruction = errors.New("system construction failed")
	// ErrBundleRecursion is returned when bundles keep registering new
	// descriptors past the builder's pass limit.
	ErrBundleRecursion = errors.New("bundle expansion did not settle")
)

// BuildError reports which queued descriptor failed during Build.
type BuildError struct {
	Kind  string // "system", "system desc", "thread local", "thread local desc", "bundle"
	Stage Stage  // meaningful for systems only
	Pass  int    // 1 for descriptors registered directly on the builder
	Index int    // position in its queue within the pass
	Err   error
}

func (e *BuildError) Error() string {
	if e.Stage.Parallel() {
		return fmt.Sprintf("%s: %s #%d (stage %s, pass %d): %v", ErrConstruction, e.Kind, e.Index, e.Stage, e.Pass, e.Err)
	}
	return fmt.Sprintf("%s: %s #%d (pass %d): %v", ErrConstruction, e.Kind, e.Index, e.Pass, e.Err)
}

func (e *BuildError) Unwrap() []error {
	return []error{ErrConstruction, e.Err}
}
