// Package model implements the HLX data model: typed entities for zones,
// groups, sources, favorites, equalizer presets, front panel, network, and
// configuration, with validated setters that report whether they changed
// anything.
package model

import "errors"

// Sentinel error kinds, checked with errors.Is at call sites that wrap them
// with identifier/value context via fmt.Errorf("...: %w", ...).
var (
	// ErrNotInitialized is returned when an observer is called before Init.
	ErrNotInitialized = errors.New("not initialized")
	// ErrValueAlreadySet is returned by a setter whose input equals the
	// current value; it is not an error in the abort sense.
	ErrValueAlreadySet = errors.New("value already set")
	// ErrInvalidArgument covers null/empty/malformed input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrOutOfRange covers an identifier or level outside its valid interval.
	ErrOutOfRange = errors.New("out of range")
	// ErrNameTooLong covers a name exceeding the per-family maximum.
	ErrNameTooLong = errors.New("name too long")
	// ErrNotFound covers unregister/remove of something absent.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists covers a register that collides with an existing one.
	ErrAlreadyExists = errors.New("already exists")
)
