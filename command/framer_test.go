package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScanFrameRequest(t *testing.T) {
	frame, rest, ok := scanFrame([]byte("[VO3R-25]extra"))
	require.True(t, ok)
	require.Equal(t, "[VO3R-25]", string(frame))
	require.Equal(t, "extra", string(rest))
}

func TestScanFrameResponse(t *testing.T) {
	frame, rest, ok := scanFrame([]byte("(VO3R-25)(QX)"))
	require.True(t, ok)
	require.Equal(t, "(VO3R-25)", string(frame))
	require.Equal(t, "(QX)", string(rest))
}

func TestScanFrameIncomplete(t *testing.T) {
	_, _, ok := scanFrame([]byte("[VO3R-25"))
	require.False(t, ok)
}

func TestScanFrameBelowMinimum(t *testing.T) {
	_, _, ok := scanFrame([]byte("[]"))
	require.False(t, ok)
}

func TestPayloadStripsDelimiters(t *testing.T) {
	require.Equal(t, "VO3R-25", string(payload([]byte("[VO3R-25]"))))
	require.Equal(t, "VO3R-25", string(payload([]byte("(VO3R-25)"))))
}

func TestFrameSourceFeedAcrossChunks(t *testing.T) {
	fs := newFrameSource()

	frames, err := fs.Feed([]byte("[VO3R"))
	require.NoError(t, err)
	require.Empty(t, frames)

	frames, err = fs.Feed([]byte("-25][NO7\"Kitchen\"]"))
	require.NoError(t, err)
	require.Len(t, frames, 2)
	require.Equal(t, "[VO3R-25]", string(frames[0]))
	require.Equal(t, "[NO7\"Kitchen\"]", string(frames[1]))
}

func TestWrapRequestAndResponse(t *testing.T) {
	require.Equal(t, "[VO3R-25]", string(WrapRequest("VO3R-25")))
	require.Equal(t, "(VO3R-25)", string(WrapResponse("VO3R-25")))
}
