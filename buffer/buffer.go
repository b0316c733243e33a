// Package buffer implements the growable byte buffer that sits between a
// raw socket read and the command framer: a linear buffer with capacity,
// size, and head/tail cursors, either caller-owned (a fixed-capacity view)
// or buffer-owned (grows by doubling to the next power of two).
package buffer

import "fmt"

// ErrBufferNotOwned is returned when a growth operation is attempted on a
// caller-owned (fixed-capacity) buffer.
var ErrBufferNotOwned = fmt.Errorf("buffer not owned")

// ErrNoSpace is returned when an explicit size set exceeds capacity.
var ErrNoSpace = fmt.Errorf("no space")

// Buffer is a linear byte buffer with a head cursor (next byte to read via
// Get) and a size (bytes written via Put beyond the head). It matches the
// Connection Buffer component: growable on buffer-owned storage, fixed on
// caller-owned storage.
type Buffer struct {
	data  []byte
	head  int
	size  int
	owned bool
}

// New returns an empty, buffer-owned Buffer with the given initial capacity
// (rounded up internally to the first power of two on first growth).
func New(initialCapacity int) *Buffer {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &Buffer{data: make([]byte, initialCapacity), owned: true}
}

// NewView returns a caller-owned Buffer backed by data; it never grows and
// Put fails with ErrBufferNotOwned once data's capacity is exhausted.
func NewView(data []byte) *Buffer {
	return &Buffer{data: data, owned: false}
}

// Capacity returns the buffer's current backing capacity.
func (b *Buffer) Capacity() int { return len(b.data) }

// Size returns the number of unread bytes currently buffered.
func (b *Buffer) Size() int { return b.size }

// IsOwned reports whether the buffer owns (and may grow) its backing store.
func (b *Buffer) IsOwned() bool { return b.owned }

func nextPowerOfTwo(n int) int {
	if n < 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Reserve grows a buffer-owned Buffer so its capacity accommodates at least
// n more bytes beyond the current head+size, preserving contents. It fails
// with ErrBufferNotOwned on caller-owned storage.
func (b *Buffer) Reserve(n int) error {
	if !b.owned {
		return ErrBufferNotOwned
	}
	needed := b.head + b.size + n
	if needed <= len(b.data) {
		return nil
	}
	newCap := nextPowerOfTwo(maxInt(needed, 2*len(b.data)))
	grown := make([]byte, newCap)
	copy(grown, b.data[b.head:b.head+b.size])
	b.data = grown
	b.head = 0
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Put appends n bytes from src. On buffer-owned storage with insufficient
// capacity it grows to the next power of two >= max(requested, 2x
// current); on caller-owned storage it fails with ErrBufferNotOwned.
func (b *Buffer) Put(src []byte, n int) error {
	if n > len(src) {
		n = len(src)
	}
	if b.head+b.size+n > len(b.data) {
		if !b.owned {
			return ErrBufferNotOwned
		}
		if err := b.Reserve(n); err != nil {
			return err
		}
	}
	copy(b.data[b.head+b.size:], src[:n])
	b.size += n
	return nil
}

// Get advances the head cursor by n, copying the consumed bytes into dst
// (which must have length >= n) and returning them. It fails if size < n.
func (b *Buffer) Get(dst []byte, n int) ([]byte, error) {
	if n > b.size {
		return nil, fmt.Errorf("requested %d bytes, only %d buffered: %w", n, b.size, ErrNoSpace)
	}
	copy(dst, b.data[b.head:b.head+n])
	b.head += n
	b.size -= n
	return dst[:n], nil
}

// Peek returns, without consuming, the n unread bytes starting at the head.
func (b *Buffer) Peek(n int) ([]byte, error) {
	if n > b.size {
		return nil, fmt.Errorf("requested %d bytes, only %d buffered: %w", n, b.size, ErrNoSpace)
	}
	return b.data[b.head : b.head+n], nil
}

// Bytes returns the unread bytes as a slice valid until the next Put/Get/Reserve.
func (b *Buffer) Bytes() []byte {
	return b.data[b.head : b.head+b.size]
}

// SetSize sets the buffered size explicitly (used after writing directly
// into the tail region obtained via Reserve+Bytes-style access patterns).
// It fails with ErrNoSpace if n exceeds the remaining capacity past head.
func (b *Buffer) SetSize(n int) error {
	if b.head+n > len(b.data) {
		return ErrNoSpace
	}
	b.size = n
	return nil
}

// Flush resets size (and head) to zero, retaining capacity.
func (b *Buffer) Flush() {
	b.head = 0
	b.size = 0
}
