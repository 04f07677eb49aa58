package specs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/pkgresolve/internal/target"
)

var (
	// ErrNoBuildFiles means a directory-scoped spec names a directory that
	// declares no targets.
	ErrNoBuildFiles = errors.New("directory does not contain any BUILD files")
	// ErrNameNotFound means a SingleAddress names a target its family does
	// not declare.
	ErrNameNotFound = errors.New("target name not found")
	// ErrNoTargets means a spec that must select something selected nothing.
	ErrNoTargets = errors.New("address spec does not match any targets")
	// ErrInvalidSpec is wrapped by SpecSyntaxError.
	ErrInvalidSpec = errors.New("invalid address spec")
)

// ResolutionError reports a spec that could not be resolved. It is surfaced
// to the user verbatim and never retried.
type ResolutionError struct {
	Spec string
	Kind error
	Dir  string
	// Name and Available are set for ErrNameNotFound.
	Name      string
	Available []string
}

func (e *ResolutionError) Error() string {
	switch e.Kind {
	case ErrNoBuildFiles:
		return fmt.Sprintf("address spec %q: path %q does not contain any BUILD files", e.Spec, e.Dir)
	case ErrNameNotFound:
		msg := fmt.Sprintf("address spec %q: %q was not found in namespace %q", e.Spec, e.Name, e.Dir)
		if len(e.Available) > 0 {
			msg += ". Did you mean one of: " + strings.Join(e.Available, " ")
		}
		return msg
	default:
		return fmt.Sprintf("address spec %q: %s", e.Spec, e.Kind)
	}
}

func (e *ResolutionError) Unwrap() error { return e.Kind }

func nameNotFound(s SingleAddress, family *target.Family) error {
	available := make([]string, 0, len(family.Targets))
	for _, t := range family.Targets {
		available = append(available, ":"+t.Address.Name)
	}
	return &ResolutionError{
		Spec:      s.SpecString(),
		Kind:      ErrNameNotFound,
		Dir:       family.Dir,
		Name:      s.Name,
		Available: available,
	}
}

// InternalConsistencyError indicates a defect in the address family index
// rather than a user error. Resolution aborts on it immediately.
type InternalConsistencyError struct {
	Spec   string
	Reason string
	Count  int
}

func (e *InternalConsistencyError) Error() string {
	return fmt.Sprintf("internal error resolving %q: %s (found %d)", e.Spec, e.Reason, e.Count)
}

// SpecSyntaxError reports an unparseable spec string.
type SpecSyntaxError struct {
	Input  string
	Reason string
}

func (e *SpecSyntaxError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrInvalidSpec, e.Input, e.Reason)
}

func (e *SpecSyntaxError) Unwrap() error { return ErrInvalidSpec }
