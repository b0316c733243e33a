package telnet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConsumePassesThroughPlainData(t *testing.T) {
	f := NewFramer()
	data, send := f.Consume([]byte("hello"))
	require.Equal(t, "hello", string(data))
	require.Empty(t, send)
}

func TestConsumeStripsWillAndRefuses(t *testing.T) {
	f := NewFramer()
	in := []byte{'a', IAC, WILL, 1, 'b'}
	data, send := f.Consume(in)
	require.Equal(t, "ab", string(data))
	require.Equal(t, []byte{IAC, DONT, 1}, send)
}

func TestConsumeStripsDoAndRefuses(t *testing.T) {
	f := NewFramer()
	in := []byte{IAC, DO, 3}
	data, send := f.Consume(in)
	require.Empty(t, data)
	require.Equal(t, []byte{IAC, WONT, 3}, send)
}

func TestConsumeWontDontNoReply(t *testing.T) {
	f := NewFramer()
	_, send := f.Consume([]byte{IAC, WONT, 1})
	require.Empty(t, send)
	_, send = f.Consume([]byte{IAC, DONT, 1})
	require.Empty(t, send)
}

func TestConsumeSwallowsSubnegotiation(t *testing.T) {
	f := NewFramer()
	in := []byte{'x', IAC, SB, 1, 2, 3, IAC, SE, 'y'}
	data, send := f.Consume(in)
	require.Equal(t, "xy", string(data))
	require.Empty(t, send)
}

func TestConsumeEscapedIAC(t *testing.T) {
	f := NewFramer()
	in := []byte{'a', IAC, IAC, 'b'}
	data, _ := f.Consume(in)
	require.Equal(t, []byte{'a', IAC, 'b'}, data)
}

func TestConsumeAcrossChunkBoundary(t *testing.T) {
	f := NewFramer()
	d1, _ := f.Consume([]byte{'a', IAC})
	d2, send := f.Consume([]byte{WILL, 5, 'b'})
	require.Equal(t, "a", string(d1))
	require.Equal(t, "b", string(d2))
	require.Equal(t, []byte{IAC, DONT, 5}, send)
}

func TestWrapEscapesIAC(t *testing.T) {
	out := Wrap([]byte{1, IAC, 2})
	require.Equal(t, []byte{1, IAC, IAC, 2}, out)
}
