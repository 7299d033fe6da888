package environment

import (
	"errors"
	"fmt"
)

// ErrNamespaceNotFound is returned by a Maker when the namespace of the
// requested environment is not registered, for example when the Atari
// extension is not installed.
var ErrNamespaceNotFound = errors.New("environment namespace not found")

const (
	unavailableHint = "install Atari support via " +
		"`pip install \"gymnasium[atari]\" autorom[accept-rom-license]` " +
		"and run `AutoROM --accept-license`"

	constructionHint = "double-check the Atari packages and ROMs"
)

// RenderModeHint is the remediation hint of a ConstructionError caused
// by an unsupported render mode
const RenderModeHint = `use render mode "none" or "interactive"`

// UnavailableError reports that the environment namespace could not be
// located. It is a setup problem and is never retried.
type UnavailableError struct {
	ID   string
	Hint string
	Err  error
}

// Error satisfies the error interface
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("environment %v unavailable: %v (%v)", e.ID, e.Err,
		e.Hint)
}

// Unwrap returns the underlying error
func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// ConstructionError reports that the environment could not be
// constructed for a reason other than a missing namespace, such as
// missing licensed assets.
type ConstructionError struct {
	ID   string
	Hint string
	Err  error
}

// Error satisfies the error interface
func (e *ConstructionError) Error() string {
	return fmt.Sprintf("could not construct environment %v: %v (%v)", e.ID,
		e.Err, e.Hint)
}

// Unwrap returns the underlying error
func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// IsUnavailable returns whether an error, or any error it wraps, is an
// *UnavailableError
func IsUnavailable(err error) bool {
	var target *UnavailableError
	return errors.As(err, &target)
}

// IsConstruction returns whether an error, or any error it wraps, is a
// *ConstructionError
func IsConstruction(err error) bool {
	var target *ConstructionError
	return errors.As(err, &target)
}

// Classify translates a low level Maker failure into one of the typed
// construction errors of this package
func Classify(id string, err error) error {
	var unavailable *UnavailableError
	var construction *ConstructionError
	switch {
	case errors.As(err, &unavailable), errors.As(err, &construction):
		return err

	case errors.Is(err, ErrNamespaceNotFound):
		return &UnavailableError{ID: id, Hint: unavailableHint, Err: err}

	default:
		return &ConstructionError{ID: id, Hint: constructionHint, Err: err}
	}
}
