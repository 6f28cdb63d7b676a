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
	"strconv"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"

	"github.com/ksidata/ksidata/column"
	"github.com/ksidata/ksidata/table"
)

// Summary of the numeric values of a single column.
type Summary struct {
	Column string
	Count  int // non-null numeric values
	Nulls  int
	Mean   float64
	StdDev float64
	Min    float64
	Median float64
	Max    float64
}

var _ table.Row = Summary{}

// SummaryHeader is the table header for Summary rows.
func SummaryHeader() []string {
	return []string{"Column", "Count", "Nulls", "Mean", "StdDev", "Min", "Median", "Max"}
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', 6, 64)
}

// CSV implements table.Row.
func (s Summary) CSV() []string {
	return []string{
		s.Column,
		strconv.Itoa(s.Count),
		strconv.Itoa(s.Nulls),
		formatFloat(s.Mean),
		formatFloat(s.StdDev),
		formatFloat(s.Min),
		formatFloat(s.Median),
		formatFloat(s.Max),
	}
}

// summarizable columns hold quantities rather than identifiers or codes:
// Integer and Double columns, and String columns which never needed a
// categorical code.
func summarizable(col *column.ColumnType) bool {
	if col == nil {
		return false
	}
	switch col.Declared() {
	case column.Integer, column.Double:
		return true
	case column.String:
		return col.Codebook().Len() == 0
	}
	return false
}

// Summarize the numeric columns of the result. Columns with no numeric values
// are skipped.
func Summarize(r *Result) []Summary {
	var res []Summary
	for i, name := range r.Columns {
		if !summarizable(r.Column(name)) {
			continue
		}
		s := Summary{Column: name}
		xs := make([]float64, 0, len(r.Rows))
		for _, row := range r.Rows {
			if i >= len(row) {
				s.Nulls++
				continue
			}
			switch v := row[i].(type) {
			case nil:
				s.Nulls++
			case int64:
				xs = append(xs, float64(v))
			case float64:
				xs = append(xs, v)
			}
		}
		if len(xs) == 0 {
			continue
		}
		slices.Sort(xs)
		s.Count = len(xs)
		s.Mean, s.StdDev = stat.MeanStdDev(xs, nil)
		if len(xs) < 2 {
			s.StdDev = 0
		}
		s.Min = xs[0]
		s.Max = xs[len(xs)-1]
		s.Median = median(xs)
		res = append(res, s)
	}
	return res
}

// median of sorted non-empty xs. For an even count it is the midpoint of the
// two middle values; stat.Quantile only ever returns one of the samples.
func median(xs []float64) float64 {
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}

// SummaryTable builds a table of the result's numeric column summaries.
func SummaryTable(r *Result) *table.Table {
	t := table.NewTable(SummaryHeader()...)
	for _, s := range Summarize(r) {
		t.AddRow(s)
	}
	return t
}
