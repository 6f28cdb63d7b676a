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
	"github.com/stockparfait/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Mapper owns the ColumnTypes of a single feed. Ordinal overrides and codebook
// seeds are registered before the schema is loaded; loading the schema is a
// one-time transition which later calls extend but never reset.
//
// A Mapper is not safe for concurrent use. Feeds ingested in parallel must
// each have their own Mapper.
type Mapper struct {
	columns   map[string]*ColumnType
	names     []string // in field metadata order
	index     map[string]int
	overrides map[string]*ColumnType
	seeds     map[string][]Entry
	loaded    bool
}

// NewMapper creates an empty Mapper.
func NewMapper() *Mapper {
	return &Mapper{
		columns:   make(map[string]*ColumnType),
		index:     make(map[string]int),
		overrides: make(map[string]*ColumnType),
		seeds:     make(map[string][]Entry),
	}
}

// RegisterOverride sets a closed ordinal map for the column. The map's codes
// are used as is and no other value is accepted for this column.
func (m *Mapper) RegisterOverride(name string, values map[string]int64) error {
	if m.loaded {
		return &OverrideError{Column: name, Reason: ReasonAfterLoad}
	}
	if len(values) == 0 {
		return &OverrideError{Column: name, Reason: "empty override map"}
	}
	m.overrides[name] = NewOverrideColumnType(name, values)
	return nil
}

// Seed pre-populates the codebook of a String column with entries saved from
// an earlier run, so the same values keep their codes. Unlike an override, a
// seeded codebook keeps growing. Seeds of overridden columns are ignored.
func (m *Mapper) Seed(name string, entries []Entry) error {
	if m.loaded {
		return &OverrideError{Column: name, Reason: ReasonAfterLoad}
	}
	if _, err := newSeededCodebook(entries); err != nil {
		return errors.Annotate(err, "invalid seed for column '%s'", name)
	}
	m.seeds[name] = entries
	return nil
}

// LoadSchema creates a ColumnType for every field not seen before. Overrides
// take precedence over the declared type. Columns which already exist are
// kept intact along with their codebooks. Every registered override must
// name a field of the schema or an existing column.
func (m *Mapper) LoadSchema(schema Schema) error {
	if len(schema) == 0 {
		return &SchemaError{Reason: ReasonNoFields}
	}
	fields := make(map[string]struct{}, len(schema))
	for _, f := range schema {
		fields[f.Name] = struct{}{}
	}
	for _, name := range m.overrideNames() {
		if _, ok := fields[name]; ok {
			continue
		}
		if _, ok := m.columns[name]; ok {
			continue
		}
		return &SchemaError{Column: name, Reason: ReasonUnboundOverride}
	}
	for _, f := range schema {
		if _, ok := m.columns[f.Name]; ok {
			continue
		}
		col, err := m.newColumn(f)
		if err != nil {
			return errors.Annotate(err, "failed to create column '%s'", f.Name)
		}
		m.columns[f.Name] = col
		m.index[f.Name] = len(m.names)
		m.names = append(m.names, f.Name)
	}
	m.loaded = true
	return nil
}

// overrideNames in sorted order, so the error names the same column each time.
func (m *Mapper) overrideNames() []string {
	names := maps.Keys(m.overrides)
	slices.Sort(names)
	return names
}

func (m *Mapper) newColumn(f Field) (*ColumnType, error) {
	if col, ok := m.overrides[f.Name]; ok {
		return col, nil
	}
	if f.Type == Override {
		return nil, &OverrideError{Column: f.Name, Reason: "declared Override without an override map"}
	}
	col := NewColumnType(f.Name, f.Type)
	if entries, ok := m.seeds[f.Name]; ok && f.Type == String {
		cb, err := newSeededCodebook(entries)
		if err != nil {
			return nil, err
		}
		col.codebook = cb
	}
	return col, nil
}

// Transform converts a raw value of the named column.
func (m *Mapper) Transform(name string, raw interface{}) (Value, error) {
	col, ok := m.columns[name]
	if !ok {
		return nil, &SchemaError{Column: name, Reason: ReasonUnknownColumn}
	}
	return col.Transform(raw)
}

// ColumnNames in the order they were presented in the field metadata. The
// result is a copy.
func (m *Mapper) ColumnNames() []string {
	res := make([]string, len(m.names))
	copy(res, m.names)
	return res
}

// Len is the number of columns.
func (m *Mapper) Len() int { return len(m.names) }

// Index of the column in ColumnNames().
func (m *Mapper) Index(name string) (int, bool) {
	i, ok := m.index[name]
	return i, ok
}

// Column returns the named ColumnType, or nil.
func (m *Mapper) Column(name string) *ColumnType {
	return m.columns[name]
}

// Loaded is true once LoadSchema succeeded.
func (m *Mapper) Loaded() bool { return m.loaded }

// Codebooks of all non-empty String columns, keyed by column name. This is
// what Seed accepts back in a later run.
func (m *Mapper) Codebooks() map[string][]Entry {
	res := make(map[string][]Entry)
	for name, col := range m.columns {
		if col.declared != String || col.codebook.Len() == 0 {
			continue
		}
		res[name] = col.codebook.Entries()
	}
	return res
}
