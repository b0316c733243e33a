// Package rxmatch wraps POSIX extended regular expressions with captured
// sub-match byte offsets, as used by the command framer's regex table.
package rxmatch

import "regexp"

// Matcher is a compiled POSIX extended regex.
type Matcher struct {
	re      *regexp.Regexp
	pattern string
}

// Compile compiles pattern as a POSIX extended regex (leftmost-longest
// matching, as the wire protocol's fixed-grammar frames require no
// backtracking preference between alternatives).
func Compile(pattern string) (*Matcher, error) {
	re, err := regexp.CompilePOSIX(pattern)
	if err != nil {
		return nil, err
	}
	return &Matcher{re: re, pattern: pattern}, nil
}

// MustCompile is like Compile but panics on error, for use in package-level
// regex table initialization.
func MustCompile(pattern string) *Matcher {
	m, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// Pattern returns the source pattern the Matcher was compiled from.
func (m *Matcher) Pattern() string { return m.pattern }

// Match is one captured sub-match: Start/End are byte offsets into the
// subject, inclusive-start/exclusive-end order matching regexp.FindSubmatchIndex.
type Match struct {
	Start, End int
	Text       []byte
}

// FindSubmatch returns the captured sub-matches (excluding the whole-match
// group 0) for the first match in subject, or nil if no match.
func (m *Matcher) FindSubmatch(subject []byte) []Match {
	idx := m.re.FindSubmatchIndex(subject)
	if idx == nil {
		return nil
	}
	// idx[0:2] is the whole match; groups start at idx[2:].
	n := len(idx)/2 - 1
	out := make([]Match, n)
	for i := 0; i < n; i++ {
		s, e := idx[2+2*i], idx[2+2*i+1]
		mt := Match{Start: s, End: e}
		if s >= 0 && e >= 0 {
			mt.Text = subject[s:e]
		}
		out[i] = mt
	}
	return out
}

// MatchWhole reports whether subject matches m anywhere, and returns the
// whole-match byte range.
func (m *Matcher) MatchWhole(subject []byte) (start, end int, ok bool) {
	idx := m.re.FindIndex(subject)
	if idx == nil {
		return 0, 0, false
	}
	return idx[0], idx[1], true
}
