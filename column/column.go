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
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// Value is a typed cell value: nil, int64, float64 or bool. Categorical codes
// are int64.
type Value = interface{}

var (
	integerPattern = regexp.MustCompile(`^[+-]?[0-9]+$`)
	decimalPattern = regexp.MustCompile(
		`^[+-]?([0-9]+\.[0-9]*|\.[0-9]+|[0-9]+)([eE][+-]?[0-9]+)?$`)
)

// ColumnType converts raw values of one column to typed values according to
// its declared type, and owns the column's codebook.
type ColumnType struct {
	name     string
	declared DeclaredType
	codebook *Codebook
}

// NewColumnType creates a column with an empty codebook. For Override columns
// use NewOverrideColumnType.
func NewColumnType(name string, declared DeclaredType) *ColumnType {
	return &ColumnType{name: name, declared: declared, codebook: NewCodebook()}
}

// NewOverrideColumnType creates a column with a closed ordinal map.
func NewOverrideColumnType(name string, m map[string]int64) *ColumnType {
	return &ColumnType{name: name, declared: Override, codebook: NewFrozenCodebook(m)}
}

func (c *ColumnType) Name() string           { return c.name }
func (c *ColumnType) Declared() DeclaredType { return c.declared }
func (c *ColumnType) Codebook() *Codebook    { return c.codebook }

func (c *ColumnType) parseError(v interface{}, err error) error {
	return &ParseError{Column: c.name, Declared: c.declared, Value: v, Err: err}
}

// Transform converts one raw value into its typed value. The raw value is what
// encoding/json produces: nil, string, json.Number, float64 or bool; int and
// int64 are accepted too.
func (c *ColumnType) Transform(raw interface{}) (Value, error) {
	if raw == nil {
		return nil, nil
	}
	switch c.declared {
	case Integer, Date, ObjectID:
		return c.toInt(raw)
	case Double:
		return c.toFloat(raw)
	case Override:
		return c.lookup(raw)
	}
	return c.infer(raw)
}

func (c *ColumnType) toInt(raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || v < -(1<<63) || v >= 1<<63 {
			return nil, c.parseError(raw, nil)
		}
		return int64(v), nil
	case json.Number:
		i, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return nil, c.parseError(raw, err)
		}
		return i, nil
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, c.parseError(raw, err)
		}
		return i, nil
	}
	return nil, c.parseError(raw, nil)
}

func (c *ColumnType) toFloat(raw interface{}) (Value, error) {
	var s string
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case json.Number:
		s = string(v)
	case string:
		s = v
	default:
		return nil, c.parseError(raw, nil)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, c.parseError(raw, err)
	}
	return f, nil
}

// infer the type of a String column value: boolean, integer, float, or
// otherwise a categorical code.
func (c *ColumnType) infer(raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case bool, int64, float64:
		return v, nil
	case int:
		return int64(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, c.parseError(raw, err)
		}
		return f, nil
	case string:
		return c.inferString(v)
	}
	return nil, c.parseError(raw, nil)
}

func (c *ColumnType) inferString(s string) (Value, error) {
	switch s {
	case "Yes":
		return true, nil
	case "No":
		return false, nil
	}
	if integerPattern.MatchString(s) {
		// Digit strings that overflow int64 fall through to float.
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
	}
	if decimalPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
	}
	code, err := c.codebook.Assign(s)
	if err != nil {
		return nil, &OverrideError{Column: c.name, Value: s, Reason: ReasonFrozenCodebook}
	}
	return code, nil
}

// lookup maps a value of an Override column through its closed codebook.
func (c *ColumnType) lookup(raw interface{}) (Value, error) {
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case json.Number:
		s = string(v)
	default:
		s = fmt.Sprint(v)
	}
	code, ok := c.codebook.Lookup(s)
	if !ok {
		return nil, &OverrideError{Column: c.name, Value: s, Reason: ReasonUnmapped}
	}
	return code, nil
}
