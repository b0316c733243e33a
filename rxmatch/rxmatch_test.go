package rxmatch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindSubmatchCapturesOffsets(t *testing.T) {
	m := MustCompile(`VO([0-9]+)R(-?[0-9]+)`)
	subject := []byte("VO3R-25")
	matches := m.FindSubmatch(subject)
	require.Len(t, matches, 2)
	require.Equal(t, "3", string(matches[0].Text))
	require.Equal(t, "-25", string(matches[1].Text))
}

func TestFindSubmatchNoMatch(t *testing.T) {
	m := MustCompile(`^QX$`)
	require.Nil(t, m.FindSubmatch([]byte("ZZZ")))
}

func TestMustCompilePanicsOnBadPattern(t *testing.T) {
	require.Panics(t, func() {
		MustCompile("(unclosed")
	})
}
