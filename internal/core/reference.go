package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a reference key has no entry.
var ErrNotFound = errors.New("not found")

// Reference is one entry of a reference list.
type Reference struct {
	Key  int
	Name string
}

// ReferenceList is an ordered key to display-name mapping (accounts, categories).
// Keys are positive; 0 means "nothing selected" throughout the editor.
type ReferenceList struct {
	entries []Reference
	index   map[int]int
}

// NewReferenceList builds a list preserving input order. Keys must be positive and
// unique, names non-empty.
func NewReferenceList(entries ...Reference) (ReferenceList, error) {
	l := ReferenceList{
		entries: make([]Reference, 0, len(entries)),
		index:   make(map[int]int, len(entries)),
	}
	for _, e := range entries {
		e.Name = strings.TrimSpace(e.Name)
		if e.Key <= 0 {
			return ReferenceList{}, fmt.Errorf("reference key %d: must be positive", e.Key)
		}
		if e.Name == "" {
			return ReferenceList{}, fmt.Errorf("reference key %d: empty name", e.Key)
		}
		if _, dup := l.index[e.Key]; dup {
			return ReferenceList{}, fmt.Errorf("reference key %d: duplicate", e.Key)
		}
		l.index[e.Key] = len(l.entries)
		l.entries = append(l.entries, e)
	}
	return l, nil
}

// MustReferenceList is NewReferenceList for static data; it panics on error.
func MustReferenceList(entries ...Reference) ReferenceList {
	l, err := NewReferenceList(entries...)
	if err != nil {
		panic(err)
	}
	return l
}

// Lookup resolves a key to its display name.
func (l ReferenceList) Lookup(key int) (string, error) {
	i, ok := l.index[key]
	if !ok {
		return "", fmt.Errorf("reference key %d: %w", key, ErrNotFound)
	}
	return l.entries[i].Name, nil
}

// Entries returns a copy of the list in order.
func (l ReferenceList) Entries() []Reference {
	return append([]Reference(nil), l.entries...)
}

func (l ReferenceList) Len() int {
	return len(l.entries)
}
