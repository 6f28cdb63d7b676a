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

package arcgis

import (
	"net/url"
	"strings"
)

// predicateKind is the enum for the comparison operators of a where clause.
type predicateKind string

// Values for the predicateKind.
const (
	predicateEq = predicateKind("=")
	predicateLt = predicateKind("<")
	predicateGt = predicateKind(">")
	predicateLe = predicateKind("<=")
	predicateGe = predicateKind(">=")
)

// predicate is a single comparison in a where clause. The value is a SQL
// literal as is, e.g. 42 or 'Toronto' or DATE '2020-01-01'.
type predicate struct {
	Kind   predicateKind
	Column string
	Value  string
}

func (p predicate) String() string {
	return p.Column + " " + string(p.Kind) + " " + p.Value
}

// Query is a builder for the non-paging parameters of a layer query.
type Query struct {
	where      []string // raw clauses, joined with AND
	predicates []predicate
	outFields  []string
	outSR      string
	orderBy    []string
	params     url.Values // any other parameters
}

// NewQuery creates a query for all the rows and all the fields.
func NewQuery() *Query {
	return &Query{}
}

// Copy creates a deep copy of the query. It is primarily used in its builder
// methods.
func (q *Query) Copy() *Query {
	q2 := Query{outSR: q.outSR}
	q2.where = append([]string{}, q.where...)
	q2.predicates = append([]predicate{}, q.predicates...)
	q2.outFields = append([]string{}, q.outFields...)
	q2.orderBy = append([]string{}, q.orderBy...)
	q2.params = make(url.Values)
	for k, v := range q.params {
		q2.params[k] = append([]string{}, v...)
	}
	return &q2
}

// Where adds a raw where clause. Clauses and predicates are joined with AND.
// This and other builder methods always create a deep copy of the query,
// leaving the original intact.
func (q *Query) Where(clause string) *Query {
	q2 := q.Copy()
	q2.where = append(q2.where, clause)
	return q2
}

func compare(q *Query, column string, kind predicateKind, value string) *Query {
	q2 := q.Copy()
	q2.predicates = append(q2.predicates, predicate{kind, column, value})
	return q2
}

// Eq adds an equality predicate.
func (q *Query) Eq(column, value string) *Query {
	return compare(q, column, predicateEq, value)
}

// Lt adds a strict inequality predicate: column < value.
func (q *Query) Lt(column, value string) *Query {
	return compare(q, column, predicateLt, value)
}

// Gt adds a strict inequality predicate: column > value.
func (q *Query) Gt(column, value string) *Query {
	return compare(q, column, predicateGt, value)
}

// Le adds an inequality predicate: column <= value.
func (q *Query) Le(column, value string) *Query {
	return compare(q, column, predicateLe, value)
}

// Ge adds an inequality predicate: column >= value.
func (q *Query) Ge(column, value string) *Query {
	return compare(q, column, predicateGe, value)
}

// Between adds an inclusive range: lo <= column <= hi.
func (q *Query) Between(column, lo, hi string) *Query {
	return q.Ge(column, lo).Le(column, hi)
}

// OutFields restricts the returned fields. Default: all fields.
func (q *Query) OutFields(fields ...string) *Query {
	q2 := q.Copy()
	q2.outFields = fields
	return q2
}

// OutSR sets the spatial reference of the returned geometry, e.g. "4326".
func (q *Query) OutSR(sr string) *Query {
	q2 := q.Copy()
	q2.outSR = sr
	return q2
}

// OrderBy sets the ordering fields, e.g. "OBJECTID ASC". Stable ordering keeps
// offset paging consistent.
func (q *Query) OrderBy(fields ...string) *Query {
	q2 := q.Copy()
	q2.orderBy = fields
	return q2
}

// Param sets any other query parameter.
func (q *Query) Param(key, value string) *Query {
	q2 := q.Copy()
	q2.params.Set(key, value)
	return q2
}

// WhereClause combines all the clauses and predicates. Raw clauses are
// parenthesized so that an OR inside one binds before the AND between them.
// An unfiltered query is "1=1".
func (q *Query) WhereClause() string {
	parts := make([]string, 0, len(q.where)+len(q.predicates))
	for _, c := range q.where {
		parts = append(parts, "("+c+")")
	}
	for _, p := range q.predicates {
		parts = append(parts, p.String())
	}
	if len(parts) == 0 {
		return "1=1"
	}
	return strings.Join(parts, " AND ")
}

// Values returns the query values for the query, always requesting JSON. Each
// call creates a new object, so the caller is free to modify it without
// affecting the query.
func (q *Query) Values() url.Values {
	v := make(url.Values)
	for k, vs := range q.params {
		v[k] = append([]string{}, vs...)
	}
	v.Set("where", q.WhereClause())
	if len(q.outFields) > 0 {
		v.Set("outFields", strings.Join(q.outFields, ","))
	} else {
		v.Set("outFields", "*")
	}
	if q.outSR != "" {
		v.Set("outSR", q.outSR)
	}
	if len(q.orderBy) > 0 {
		v.Set("orderByFields", strings.Join(q.orderBy, ","))
	}
	v.Set("f", "json")
	return v
}
