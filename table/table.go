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

// Package table renders rows of feed data as CSV or as aligned text.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/stockparfait/errors"
)

// Row interface that a table row representation must implement.
type Row interface {
	CSV() []string // an encoding/csv compatible row representation
}

// Table container.
//
// A typical use:
//
//	type Entry struct {
//		Value string
//		Code  int64
//	}
//
//	func (e Entry) CSV() []string {
//		return []string{e.Value, fmt.Sprintf("%d", e.Code)}
//	}
//	t := NewTable("Value", "Code")
//	t.AddRow(Entry{"Minor", 2}, Entry{"Major", 3})
type Table struct {
	Header []string // optional, may be nil
	Rows   []Row
}

// NewTable creates a new Table instance with optional column headers. When
// present, the number of column headers must be the same as the number of
// elements in each Row.
func NewTable(header ...string) *Table {
	return &Table{Header: header}
}

// AddRow adds one or more rows to the table.
func (t *Table) AddRow(rows ...Row) {
	t.Rows = append(t.Rows, rows...)
}

// Format of the table output.
type Format int

// Values of Format.
const (
	FormatText Format = iota
	FormatCSV
)

// Params are parameters for pretty-printing or CSV export of Table data.
type Params struct {
	Rows        int    // max. number of rows to write; 0 = unlimited (default)
	NoHeader    bool   // whether to print the header, default - yes
	MaxColWidth int    // for WriteText only; 0 = unlimited, otherwise must be >= 4
	Separator   string // for WriteText only; default " | "
}

func (p Params) separator() string {
	if p.Separator == "" {
		return " | "
	}
	return p.Separator
}

// lines of the table to write, each converted to strings, starting with the
// header if requested.
func (t *Table) lines(p Params) (header []string, rows [][]string) {
	if !p.NoHeader && len(t.Header) > 0 {
		header = t.Header
	}
	n := len(t.Rows)
	if p.Rows > 0 && p.Rows < n {
		n = p.Rows
	}
	rows = make([][]string, n)
	for i := 0; i < n; i++ {
		rows[i] = t.Rows[i].CSV()
	}
	return
}

// Write the table in the given format.
func (t *Table) Write(w io.Writer, f Format, p Params) error {
	switch f {
	case FormatCSV:
		return t.WriteCSV(w, p)
	case FormatText:
		return t.WriteText(w, p)
	}
	return errors.Reason("unsupported format: %d", f)
}

// WriteCSV writes the table to w in CSV format.
func (t *Table) WriteCSV(w io.Writer, p Params) error {
	header, rows := t.lines(p)
	cw := csv.NewWriter(w)
	if header != nil {
		if err := cw.Write(header); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
	}
	for i, r := range rows {
		if err := cw.Write(r); err != nil {
			return errors.Annotate(err, "failed to write row %d", i)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Annotate(err, "failed to flush written rows")
	}
	return nil
}

// columnWidths computes the display width of each column, capped by maxWidth
// when it is positive. All the lines must have the same number of cells.
func columnWidths(lines [][]string, maxWidth int) ([]int, error) {
	var widths []int
	for i, l := range lines {
		if len(l) == 0 {
			return nil, errors.Reason("line %d: row size = 0", i)
		}
		if widths == nil {
			widths = make([]int, len(l))
		}
		if len(l) != len(widths) {
			return nil, errors.Reason("line %d: row size [%d] != expected size [%d]",
				i, len(l), len(widths))
		}
		for j, s := range l {
			n := len([]rune(s))
			if maxWidth > 0 && n > maxWidth {
				n = maxWidth
			}
			if widths[j] < n {
				widths[j] = n
			}
		}
	}
	return widths, nil
}

// fit a cell into the width, right-aligned; overflowing text ends with "..".
func fit(s string, width int) string {
	if r := []rune(s); len(r) > width {
		s = string(r[:width-2]) + ".."
	}
	return fmt.Sprintf("%[2]*[1]s", s, width)
}

// WriteText writes the table as a text formatted for ease of reading.
func (t *Table) WriteText(w io.Writer, p Params) error {
	if p.MaxColWidth != 0 && p.MaxColWidth < 4 {
		return errors.Reason("MaxColWidth [%d] must be 0 or >= 4", p.MaxColWidth)
	}
	header, rows := t.lines(p)
	all := rows
	if header != nil {
		all = append([][]string{header}, rows...)
	}
	widths, err := columnWidths(all, p.MaxColWidth)
	if err != nil {
		return errors.Annotate(err, "failed to compute column widths")
	}
	sep := p.separator()
	write := func(cells []string) error {
		out := make([]string, len(cells))
		for i, s := range cells {
			out[i] = fit(s, widths[i])
		}
		_, err := fmt.Fprintln(w, strings.Join(out, sep))
		return err
	}
	if header != nil {
		if err := write(header); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
		dashes := make([]string, len(widths))
		for i, n := range widths {
			dashes[i] = strings.Repeat("-", n)
		}
		if err := write(dashes); err != nil {
			return errors.Annotate(err, "failed to write header separator")
		}
	}
	for i, r := range rows {
		if err := write(r); err != nil {
			return errors.Annotate(err, "failed to write row %d", i)
		}
	}
	return nil
}
