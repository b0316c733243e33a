package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVolumeSetLevel(t *testing.T) {
	v := NewVolume()
	require.NoError(t, v.SetLevel(-25))
	require.EqualValues(t, -25, v.Level())

	err := v.SetLevel(-25)
	require.ErrorIs(t, err, ErrValueAlreadySet)
	require.EqualValues(t, -25, v.Level(), "unchanged setter must leave state bit-identical")
}

func TestVolumeOutOfRange(t *testing.T) {
	v := NewVolume()
	err := v.SetLevel(VolumeLevelMax + 1)
	require.True(t, errors.Is(err, ErrOutOfRange))
}

func TestVolumeIncreaseDecreaseSaturate(t *testing.T) {
	v := NewVolume()
	require.NoError(t, v.SetLevel(VolumeLevelMax))
	require.ErrorIs(t, v.Increase(), ErrOutOfRange)
	require.EqualValues(t, VolumeLevelMax, v.Level())

	require.NoError(t, v.SetLevel(VolumeLevelMin))
	require.ErrorIs(t, v.Decrease(), ErrOutOfRange)
	require.EqualValues(t, VolumeLevelMin, v.Level())
}

func TestVolumeToggleMute(t *testing.T) {
	v := NewVolume()
	start := v.IsMuted()
	require.Equal(t, !start, v.ToggleMute())
	require.Equal(t, start, v.ToggleMute())
}
