package storage

import (
	"strings"
	"sync"
)

type textRef struct {
	s    string
	refs int
	pool *TextPool
}

// Text is an immutable, shared string handle. Copies of a Text point at the
// same payload; the payload is never mutated after creation and is safe to
// read from any goroutine.
type Text struct {
	ref *textRef
}

// NewText returns a detached handle that does not belong to any pool. The
// evaluator uses detached handles for literals and intermediate values.
func NewText(s string) Text { return Text{ref: &textRef{s: s}} }

func (t Text) String() string {
	if t.ref == nil {
		return ""
	}
	return t.ref.s
}

// Shares reports whether both handles point at the same allocation.
func (t Text) Shares(o Text) bool { return t.ref != nil && t.ref == o.ref }

func (t Text) isZero() bool { return t.ref == nil }

// TextPool is the central allocation path for stored text. Every column slot
// holding a pooled handle counts as one reference. With interning enabled,
// equal payloads share a single allocation; an entry leaves the pool once its
// last slot is deleted or overwritten.
type TextPool struct {
	mu      sync.Mutex
	intern  bool
	entries map[string]*textRef
	live    int
}

// NewTextPool creates a pool. When intern is false every stored value gets
// its own allocation, still handed out as a shared handle.
func NewTextPool(intern bool) *TextPool {
	return &TextPool{intern: intern, entries: map[string]*textRef{}}
}

// Interning reports whether the pool deduplicates equal payloads.
func (p *TextPool) Interning() bool { return p.intern }

// Store returns a pooled handle for t with its reference count incremented.
// Handles already owned by this pool are retained instead of copied.
func (p *TextPool) Store(t Text) Text {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.ref != nil && t.ref.pool == p {
		t.ref.refs++
		return t
	}
	return p.internLocked(t.String())
}

// Intern returns a pooled handle for s with its reference count incremented.
func (p *TextPool) Intern(s string) Text {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.internLocked(s)
}

func (p *TextPool) internLocked(s string) Text {
	if p.intern {
		if ref, ok := p.entries[s]; ok {
			ref.refs++
			return Text{ref: ref}
		}
	}
	ref := &textRef{s: strings.Clone(s), refs: 1, pool: p}
	if p.intern {
		p.entries[ref.s] = ref
	}
	p.live++
	return Text{ref: ref}
}

// Release drops one reference. Detached handles and handles from other
// pools are ignored.
func (p *TextPool) Release(t Text) {
	if t.ref == nil || t.ref.pool != p {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.ref.refs == 0 {
		return
	}
	t.ref.refs--
	if t.ref.refs > 0 {
		return
	}
	p.live--
	if p.intern && p.entries[t.ref.s] == t.ref {
		delete(p.entries, t.ref.s)
	}
}

// Refs returns the number of column slots currently holding t.
func (p *TextPool) Refs(t Text) int {
	if t.ref == nil || t.ref.pool != p {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return t.ref.refs
}

// Live returns the number of distinct allocations still referenced.
func (p *TextPool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}
