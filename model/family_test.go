package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFamilyInitPopulatesEveryIdentifier(t *testing.T) {
	f := NewFamily[Zone](4, NewZone)
	f.Init()

	for id := Identifier(1); id <= 4; id++ {
		z, err := f.Get(id)
		require.NoError(t, err)
		require.Equal(t, id, z.Identifier())
	}

	_, err := f.Get(0)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = f.Get(5)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestFamilyGetBeforeInit(t *testing.T) {
	f := NewFamily[Zone](4, NewZone)
	_, err := f.Get(1)
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestFamilyForEach(t *testing.T) {
	f := NewFamily[Source](3, NewSource)
	f.Init()

	seen := make([]Identifier, 0, 3)
	err := f.ForEach(func(id Identifier, s *Source) error {
		seen = append(seen, id)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []Identifier{1, 2, 3}, seen)
}
