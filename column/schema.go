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
	"fmt"
	"strings"
)

// DeclaredType is the source datatype of a column as reported by the feed's
// field metadata, or Override for a column with a caller-defined ordinal map.
type DeclaredType uint8

// Values of DeclaredType.
const (
	String DeclaredType = iota
	Integer
	Date
	ObjectID
	Double
	Override
)

var declaredTypeNames = map[DeclaredType]string{
	String:   "String",
	Integer:  "Integer",
	Date:     "Date",
	ObjectID: "ObjectID",
	Double:   "Double",
	Override: "Override",
}

// vendorPrefix is what ArcGIS prepends to its field type names.
const vendorPrefix = "esriFieldType"

// vendorTypes maps vendor type names, with the prefix stripped, to
// DeclaredType. Names not in this map are treated as String.
var vendorTypes = map[string]DeclaredType{
	"String":       String,
	"Integer":      Integer,
	"SmallInteger": Integer,
	"BigInteger":   Integer,
	"Date":         Date,
	"OID":          ObjectID,
	"ObjectID":     ObjectID,
	"Double":       Double,
	"Single":       Double,
	"Override":     Override,
}

func (t DeclaredType) String() string {
	if s, ok := declaredTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("DeclaredType(%d)", t)
}

// Numeric is true for the types that must parse as numbers.
func (t DeclaredType) Numeric() bool {
	switch t {
	case Integer, Date, ObjectID, Double:
		return true
	}
	return false
}

// ParseDeclaredType converts a vendor field type name, e.g.
// "esriFieldTypeInteger" or simply "Integer", to DeclaredType. Unrecognized
// types (GUID, GlobalID, Geometry, ...) are String.
func ParseDeclaredType(s string) DeclaredType {
	s = strings.TrimPrefix(s, vendorPrefix)
	if t, ok := vendorTypes[s]; ok {
		return t
	}
	return String
}

// Field is the metadata for a single column.
type Field struct {
	Name string
	Type DeclaredType
}

// Schema is the ordered list of fields of a feed.
type Schema []Field

// Equal tests two schemas for exact equality, including the field ordering.
func (s Schema) Equal(s2 Schema) bool {
	if len(s) != len(s2) {
		return false
	}
	for i, f := range s {
		if f != s2[i] {
			return false
		}
	}
	return true
}

// String prints a string representation of the schema.
func (s Schema) String() string {
	fields := []string{}
	for _, f := range s {
		fields = append(fields, fmt.Sprintf("%s: %s", f.Name, f.Type))
	}
	return "{" + strings.Join(fields, ", ") + "}"
}
