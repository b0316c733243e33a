package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdentifiersCollectionSetIdentifiers(t *testing.T) {
	c := NewIdentifiersCollection()
	require.NoError(t, c.SetIdentifiers([]Identifier{1, 2, 3}))
	require.Equal(t, []Identifier{1, 2, 3}, c.Identifiers())

	err := c.SetIdentifiers([]Identifier{3, 2, 1})
	require.ErrorIs(t, err, ErrValueAlreadySet, "same set in different order must report already-set")
	require.Equal(t, []Identifier{1, 2, 3}, c.Identifiers())

	require.NoError(t, c.SetIdentifiers([]Identifier{5}))
	require.Equal(t, []Identifier{5}, c.Identifiers())
}

func TestIdentifiersCollectionAddRemove(t *testing.T) {
	c := NewIdentifiersCollection()
	require.NoError(t, c.Add(1))
	require.ErrorIs(t, c.Add(1), ErrAlreadyExists)
	require.True(t, c.Contains(1))

	require.NoError(t, c.Remove(1))
	require.ErrorIs(t, c.Remove(1), ErrNotFound)
	require.False(t, c.Contains(1))
}

func TestIdentifiersCollectionEquals(t *testing.T) {
	a := NewIdentifiersCollection()
	b := NewIdentifiersCollection()
	require.NoError(t, a.SetIdentifiers([]Identifier{1, 2}))
	require.NoError(t, b.SetIdentifiers([]Identifier{2, 1}))
	require.True(t, a.Equals(b))

	require.NoError(t, b.Add(3))
	require.False(t, a.Equals(b))
}
