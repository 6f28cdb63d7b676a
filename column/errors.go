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

	"github.com/stockparfait/errors"
)

// SchemaError reports missing field metadata or a reference to a column the
// Mapper doesn't know about. It usually means the feed schema drifted.
type SchemaError struct {
	Column string // may be empty when the whole schema is at fault
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Column == "" {
		return "schema error: " + e.Reason
	}
	return fmt.Sprintf("schema error: %s: column '%s'", e.Reason, e.Column)
}

// ParseError reports a value which cannot be parsed as its declared type.
type ParseError struct {
	Column   string
	Declared DeclaredType
	Value    interface{}
	Err      error // the underlying parser error, if any
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("cannot parse %#v as %s in column '%s'",
		e.Value, e.Declared, e.Column)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// OverrideError is a configuration-level violation of ordinal override or
// seed rules: registering after the schema is loaded, an invalid override
// map, or a value missing from a closed override map.
type OverrideError struct {
	Column string
	Value  string // the unmapped value, if that's the violation
	Reason string
}

func (e *OverrideError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("override violation: %s: column '%s', value '%s'",
			e.Reason, e.Column, e.Value)
	}
	return fmt.Sprintf("override violation: %s: column '%s'", e.Reason, e.Column)
}

// Reasons used in the errors above.
const (
	ReasonUnknownColumn   = "unknown column"
	ReasonNoFields        = "field metadata is missing"
	ReasonSchemaChanged   = "field metadata changed between pages"
	ReasonUnboundOverride = "override for a column not in the field metadata"
	ReasonAfterLoad       = "override after schema load"
	ReasonUnmapped        = "unmapped categorical value"
	ReasonFrozenCodebook  = "assignment to a frozen codebook"
)

// IsSchemaError checks if err is or wraps a *SchemaError.
func IsSchemaError(err error) bool {
	var e *SchemaError
	return errors.As(err, &e)
}

// IsParseError checks if err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var e *ParseError
	return errors.As(err, &e)
}

// IsOverrideError checks if err is or wraps an *OverrideError.
func IsOverrideError(err error) bool {
	var e *OverrideError
	return errors.As(err, &e)
}
