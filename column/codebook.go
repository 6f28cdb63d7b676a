// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package column

import (
	"golang.org/x/exp/slices"

	"github.com/stockparfait/errors"
)

// Entry is a single categorical value and its integer code.
type Entry struct {
	Value string
	Code  int64
}

// Codebook is the registry of categorical values of a single column. Values
// are assigned codes in first-seen order starting at 1, and a code once
// assigned never changes. A frozen codebook accepts no new values.
//
// Codebook is not safe for concurrent use: first-seen order is inherently
// sequential, so each feed must own its own instance.
type Codebook struct {
	codes   map[string]int64
	order   []string // insertion order of the keys of codes
	frozen  bool
	version uint64 // incremented on every new assignment
}

// NewCodebook creates an empty, growable codebook.
func NewCodebook() *Codebook {
	return &Codebook{codes: make(map[string]int64)}
}

// NewFrozenCodebook creates a closed codebook from an ordinal map. The entries
// are ordered by code, then by value.
func NewFrozenCodebook(m map[string]int64) *Codebook {
	entries := make([]Entry, 0, len(m))
	for v, c := range m {
		entries = append(entries, Entry{Value: v, Code: c})
	}
	slices.SortFunc(entries, func(a, b Entry) bool {
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Value < b.Value
	})
	cb := NewCodebook()
	for _, e := range entries {
		cb.codes[e.Value] = e.Code
		cb.order = append(cb.order, e.Value)
	}
	cb.frozen = true
	return cb
}

// newSeededCodebook creates a growable codebook pre-populated with entries
// saved from an earlier run. The codes must be exactly 1..len(entries) so that
// the next assigned code doesn't collide with a seeded one.
func newSeededCodebook(entries []Entry) (*Codebook, error) {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b Entry) bool { return a.Code < b.Code })
	cb := NewCodebook()
	for i, e := range sorted {
		if e.Code != int64(i+1) {
			return nil, errors.Reason("seed codes must be 1..%d, found %d at position %d",
				len(sorted), e.Code, i+1)
		}
		if _, ok := cb.codes[e.Value]; ok {
			return nil, errors.Reason("duplicate seed value '%s'", e.Value)
		}
		cb.codes[e.Value] = e.Code
		cb.order = append(cb.order, e.Value)
	}
	return cb, nil
}

// Lookup returns the code of the value, if it has one.
func (cb *Codebook) Lookup(v string) (int64, bool) {
	c, ok := cb.codes[v]
	return c, ok
}

// Assign returns the code of v, assigning the next sequential code if v is
// seen for the first time. It fails on a frozen codebook when v is new.
func (cb *Codebook) Assign(v string) (int64, error) {
	if c, ok := cb.codes[v]; ok {
		return c, nil
	}
	if cb.frozen {
		return 0, errors.Reason("cannot assign '%s': %s", v, ReasonFrozenCodebook)
	}
	c := int64(len(cb.order) + 1)
	cb.codes[v] = c
	cb.order = append(cb.order, v)
	cb.version++
	return c, nil
}

// Len is the number of registered values.
func (cb *Codebook) Len() int { return len(cb.order) }

// Frozen is true for a closed (override) codebook.
func (cb *Codebook) Frozen() bool { return cb.frozen }

// Version counts the assignments made since the codebook was created.
func (cb *Codebook) Version() uint64 { return cb.version }

// Entries in insertion order. The result is a copy.
func (cb *Codebook) Entries() []Entry {
	res := make([]Entry, len(cb.order))
	for i, v := range cb.order {
		res[i] = Entry{Value: v, Code: cb.codes[v]}
	}
	return res
}
