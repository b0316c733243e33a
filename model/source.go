package model

import "fmt"

// SourceIdentifierMax is the highest valid source identifier.
const SourceIdentifierMax = 16

// Source is an addressable audio input.
type Source struct {
	id   Identifier
	name string
}

// NewSource returns a default-named source with identifier id.
func NewSource(id Identifier) Source {
	return Source{id: id, name: fmt.Sprintf("Source %d", id)}
}

// Identifier returns the source's identifier.
func (s Source) Identifier() Identifier { return s.id }

// Name returns the source's name.
func (s Source) Name() string { return s.name }

// SetName renames the source.
func (s *Source) SetName(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if s.name == name {
		return ErrValueAlreadySet
	}
	s.name = name
	return nil
}

// FavoriteIdentifierMax is the highest valid favorite identifier.
const FavoriteIdentifierMax = 16

// Favorite is a named, addressable preset selection with no direct audio
// property of its own.
type Favorite struct {
	id   Identifier
	name string
}

// NewFavorite returns a default-named favorite with identifier id.
func NewFavorite(id Identifier) Favorite {
	return Favorite{id: id, name: fmt.Sprintf("Favorite %d", id)}
}

// Identifier returns the favorite's identifier.
func (f Favorite) Identifier() Identifier { return f.id }

// Name returns the favorite's name.
func (f Favorite) Name() string { return f.name }

// SetName renames the favorite.
func (f *Favorite) SetName(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if f.name == name {
		return ErrValueAlreadySet
	}
	f.name = name
	return nil
}

// EqualizerPresetIdentifierMax is the highest valid equalizer preset identifier.
const EqualizerPresetIdentifierMax = 8
