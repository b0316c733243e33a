package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetFIFO(t *testing.T) {
	b := New(4)
	require.NoError(t, b.Put([]byte("hello"), 5))
	require.NoError(t, b.Put([]byte(" world"), 6))

	dst := make([]byte, 11)
	got, err := b.Get(dst, 11)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(got))
}

func TestGetInsufficientData(t *testing.T) {
	b := New(4)
	require.NoError(t, b.Put([]byte("ab"), 2))
	_, err := b.Get(make([]byte, 4), 4)
	require.ErrorIs(t, err, ErrNoSpace)
}

func TestGrowthIsPowerOfTwo(t *testing.T) {
	b := New(4)
	require.NoError(t, b.Put(make([]byte, 3), 3))
	require.Equal(t, 4, b.Capacity())

	require.NoError(t, b.Put(make([]byte, 10), 10))
	// total put so far = 13, capacity must be next pow2 >= max(13, 2*4=8) = 16
	require.Equal(t, 16, b.Capacity())
}

func TestCallerOwnedBufferRejectsGrowth(t *testing.T) {
	b := NewView(make([]byte, 4))
	require.NoError(t, b.Put([]byte("abcd"), 4))
	err := b.Put([]byte("e"), 1)
	require.ErrorIs(t, err, ErrBufferNotOwned)

	err = b.Reserve(10)
	require.ErrorIs(t, err, ErrBufferNotOwned)
}

func TestFlushRetainsCapacity(t *testing.T) {
	b := New(8)
	require.NoError(t, b.Put(make([]byte, 5), 5))
	cap := b.Capacity()
	b.Flush()
	require.Equal(t, 0, b.Size())
	require.Equal(t, cap, b.Capacity())
}

func TestSetSizeNoSpace(t *testing.T) {
	b := New(4)
	err := b.SetSize(10)
	require.ErrorIs(t, err, ErrNoSpace)
}
