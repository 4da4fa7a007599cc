package vm

import (
	"fmt"
	"sync"
)

// ---------------------------------------------------------------------------
// StringTable: Interned, refcounted strings
// ---------------------------------------------------------------------------

// StringID is an opaque handle into a StringTable.
//
// Handles are indices into a stable arena: an entry never moves once
// created, so a StringID stays valid across later insertions. Because the
// table guarantees one entry per distinct content, handle identity is the
// equality contract for string values.
type StringID uint32

// stringEntry is a single interned string plus its reference count.
// Owned exclusively by the table; the content is never modified.
type stringEntry struct {
	content string
	refs    int
	removed bool
}

// StringTable interns string content to unique, refcounted handles.
//
// Every Intern of the same content returns the same handle and adds one
// reference. References are released explicitly with Release; a fully
// released entry is only reclaimed by an explicit Remove call, never
// automatically. There is no collector.
type StringTable struct {
	mu        sync.RWMutex
	entries   []*stringEntry      // ID -> entry (stable arena; slots are never reused)
	byContent map[string]StringID // content -> ID for live entries
}

// NewStringTable creates a new empty string table.
func NewStringTable() *StringTable {
	return &StringTable{
		entries:   make([]*stringEntry, 0, 256),
		byContent: make(map[string]StringID),
	}
}

// Intern returns the handle for the given content, creating a new entry if
// needed. Each call adds one reference to the entry.
func (st *StringTable) Intern(content string) StringID {
	// Fast path: read-only lookup
	st.mu.RLock()
	if id, ok := st.byContent[content]; ok {
		st.mu.RUnlock()
		st.Retain(id)
		return id
	}
	st.mu.RUnlock()

	st.mu.Lock()
	defer st.mu.Unlock()

	// Double-check after acquiring write lock
	if id, ok := st.byContent[content]; ok {
		st.entries[id].refs++
		return id
	}

	id := StringID(len(st.entries))
	st.entries = append(st.entries, &stringEntry{content: content, refs: 1})
	st.byContent[content] = id
	return id
}

// Retain adds one reference to the entry for id.
func (st *StringTable) Retain(id StringID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if e := st.entry(id); e != nil {
		e.refs++
	}
}

// Release drops one reference from the entry for id. Releasing an entry
// with no outstanding references is an error, not a panic.
func (st *StringTable) Release(id StringID) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	e := st.entry(id)
	if e == nil {
		return fmt.Errorf("release of invalid string handle %d", id)
	}
	if e.refs <= 0 {
		return fmt.Errorf("release of string %q with no outstanding references", e.content)
	}
	e.refs--
	return nil
}

// Remove reclaims a fully released entry. It is the only way an interned
// string is ever freed, and it refuses to run while references remain
// rather than trusting the caller.
func (st *StringTable) Remove(id StringID) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	e := st.entry(id)
	if e == nil {
		return fmt.Errorf("remove of invalid string handle %d", id)
	}
	if e.refs != 0 {
		return fmt.Errorf("remove of string %q with %d outstanding references", e.content, e.refs)
	}
	e.removed = true
	delete(st.byContent, e.content)
	return nil
}

// Lookup returns the handle for content without adding a reference, or
// false if the content has never been interned (or was removed).
func (st *StringTable) Lookup(content string) (StringID, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	id, ok := st.byContent[content]
	return id, ok
}

// Concat interns the concatenation of the contents of a and b, returning
// the handle of the combined string (adding one reference to it).
func (st *StringTable) Concat(a, b StringID) StringID {
	left := st.Contents(a)
	right := st.Contents(b)
	return st.Intern(left + right)
}

// Contents returns the content for a handle, or "" for an invalid or
// removed handle.
func (st *StringTable) Contents(id StringID) string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if e := st.entry(id); e != nil {
		return e.content
	}
	return ""
}

// Refs returns the current reference count for a handle, or -1 for an
// invalid or removed handle.
func (st *StringTable) Refs(id StringID) int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if e := st.entry(id); e != nil {
		return e.refs
	}
	return -1
}

// Len returns the number of live (not removed) entries: the count of
// distinct contents ever interned and not yet reclaimed.
func (st *StringTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byContent)
}

// entry returns the live entry for id, or nil. Callers hold st.mu.
func (st *StringTable) entry(id StringID) *stringEntry {
	if int(id) >= len(st.entries) {
		return nil
	}
	e := st.entries[id]
	if e.removed {
		return nil
	}
	return e
}
