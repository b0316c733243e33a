package model

import "fmt"

// Family is an ordered sequence of T keyed by Identifier 1..max, as
// required by invariant (a): every identifier-keyed entity in a family has
// exactly one model entry for every identifier in [1, max] after
// initialization.
type Family[T any] struct {
	max       Identifier
	entries   map[Identifier]*T
	make      func(Identifier) T
	initiated bool
}

// NewFamily returns an uninitialized Family with the given maximum
// identifier and entry constructor. Init must be called before Get.
func NewFamily[T any](max Identifier, make func(Identifier) T) *Family[T] {
	return &Family[T]{max: max, make: make}
}

// Init populates one default-constructed entry per identifier in [1, max].
func (f *Family[T]) Init() {
	f.entries = make(map[Identifier]*T, f.max)
	for id := Identifier(1); id <= f.max; id++ {
		v := f.make(id)
		f.entries[id] = &v
	}
	f.initiated = true
}

// Max returns the family's maximum identifier.
func (f *Family[T]) Max() Identifier { return f.max }

// Get returns a pointer to the entry for id, or ErrNotInitialized /
// ErrOutOfRange.
func (f *Family[T]) Get(id Identifier) (*T, error) {
	if !f.initiated {
		return nil, ErrNotInitialized
	}
	if err := ValidateIdentifier(id, f.max); err != nil {
		return nil, err
	}
	e, ok := f.entries[id]
	if !ok {
		return nil, fmt.Errorf("no entry for identifier %d: %w", id, ErrOutOfRange)
	}
	return e, nil
}

// ForEach calls fn for every identifier in ascending order, stopping and
// returning the first error fn returns.
func (f *Family[T]) ForEach(fn func(Identifier, *T) error) error {
	if !f.initiated {
		return ErrNotInitialized
	}
	for id := Identifier(1); id <= f.max; id++ {
		if err := fn(id, f.entries[id]); err != nil {
			return err
		}
	}
	return nil
}
