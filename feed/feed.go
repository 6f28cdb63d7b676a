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

package feed

import (
	"context"
	"net/url"
	"strconv"

	"github.com/ksidata/ksidata/column"
	"github.com/ksidata/ksidata/table"
)

// Cell is a raw named value of a row as decoded from a page.
type Cell struct {
	Name  string
	Value interface{}
}

// Page is a single fetched page of a feed.
type Page struct {
	Fields column.Schema // may be empty on pages other than the first
	Rows   [][]Cell
}

// PageFetcher performs one round trip for the page with the given paging
// parameters. Failures should be reported as *FetchError.
type PageFetcher interface {
	Fetch(ctx context.Context, params url.Values) (*Page, error)
}

// FetcherFunc adapts a function to PageFetcher.
type FetcherFunc func(ctx context.Context, params url.Values) (*Page, error)

var _ PageFetcher = FetcherFunc(nil)

func (f FetcherFunc) Fetch(ctx context.Context, params url.Values) (*Page, error) {
	return f(ctx, params)
}

// Row is a typed row with one value per column, in column order.
type Row []column.Value

var _ table.Row = Row{}

// CSV implements table.Row.
func (r Row) CSV() []string {
	res := make([]string, len(r))
	for i, v := range r {
		res[i] = FormatValue(v)
	}
	return res
}

// FormatValue prints a typed value; null is an empty string.
func FormatValue(v column.Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case string:
		return x
	}
	return ""
}

// PageResult is the set of typed rows of one page.
type PageResult struct {
	Rows  []Row
	Count int // number of rows in the fetched page
}

// Result of a complete feed.
type Result struct {
	Columns []string
	Rows    []Row
	Pages   int // number of pages fetched
	mapper  *column.Mapper
}

// Column type of the named result column, or nil.
func (r *Result) Column(name string) *column.ColumnType {
	if r.mapper == nil {
		return nil
	}
	return r.mapper.Column(name)
}

// Table builds a table with the result columns as the header.
func (r *Result) Table() *table.Table {
	t := table.NewTable(r.Columns...)
	for _, row := range r.Rows {
		t.AddRow(row)
	}
	return t
}

// codebookRow is a row of the codebook listing.
type codebookRow struct {
	column string
	entry  column.Entry
}

func (r codebookRow) CSV() []string {
	return []string{r.column, r.entry.Value, strconv.FormatInt(r.entry.Code, 10)}
}

// CodebookTable lists the categorical codes of every column of the result,
// in column order.
func (r *Result) CodebookTable() *table.Table {
	t := table.NewTable("Column", "Value", "Code")
	for _, name := range r.Columns {
		col := r.Column(name)
		if col == nil {
			continue
		}
		for _, e := range col.Codebook().Entries() {
			t.AddRow(codebookRow{column: name, entry: e})
		}
	}
	return t
}
