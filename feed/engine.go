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
	"fmt"

	"github.com/stockparfait/errors"

	"github.com/ksidata/ksidata/column"
)

// Phase of the Engine state machine.
type Phase uint8

// Values of Phase. Done, Failed and Cancelled are terminal.
const (
	Idle Phase = iota
	Fetching
	Transforming
	Done
	Failed
	Cancelled
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Transforming:
		return "transforming"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("Phase(%d)", p)
}

// State of a feed being paged through.
type State struct {
	Phase        Phase
	Page         int   // index of the current page, from 0
	Rows         []Row // accumulated rows of the completed pages
	SchemaLoaded bool  // whether the first page's schema was loaded in this run
}

// Engine pages through a feed until it's exhausted, converting each page's
// rows through the Mapper. Pages are fetched strictly one at a time.
//
// The Engine is silent: it reports nothing but its results and errors.
type Engine struct {
	fetcher PageFetcher
	mapper  *column.Mapper
	paging  Paging
	state   State
	schema  column.Schema // field metadata of the first page of the run
}

// NewEngine creates an Engine. A nil mapper is replaced by a new one; pass a
// mapper with pre-registered overrides or seeds to use them.
func NewEngine(f PageFetcher, m *column.Mapper, p Paging) (*Engine, error) {
	if f == nil {
		return nil, errors.Reason("page fetcher is required")
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Annotate(err, "invalid paging")
	}
	if m == nil {
		m = column.NewMapper()
	}
	return &Engine{fetcher: f, mapper: m, paging: p}, nil
}

// Mapper used by the engine.
func (e *Engine) Mapper() *column.Mapper { return e.mapper }

// Paging used by the engine.
func (e *Engine) Paging() Paging { return e.paging }

// State of the engine. The returned Rows must not be modified.
func (e *Engine) State() State { return e.state }

// Run fetches all the pages of the feed. On any failure, including
// cancellation, the rows of the pages fetched so far are discarded and only
// the error is returned.
//
// The mapper keeps its codebooks across runs, so running the same engine again
// assigns the same codes to the same values.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	switch e.state.Phase {
	case Fetching, Transforming:
		return nil, errors.Reason("engine is already running")
	}
	e.state = State{Phase: Idle}
	e.schema = nil
	for {
		if err := ctx.Err(); err != nil {
			return nil, e.fail(Cancelled, errors.Annotate(err,
				"cancelled before page %d", e.state.Page))
		}
		pr, err := e.nextPage(ctx)
		if err != nil {
			phase := Failed
			if ctx.Err() != nil {
				phase = Cancelled
			}
			return nil, e.fail(phase, errors.Annotate(err,
				"failed to process page %d", e.state.Page))
		}
		e.state.Rows = append(e.state.Rows, pr.Rows...)
		// A page shorter or longer than requested is the last one: offsets
		// past an oversized page would overlap it.
		if pr.Count != e.paging.PageSize {
			e.state.Phase = Done
			break
		}
		e.state.Page++
	}
	return &Result{
		Columns: e.mapper.ColumnNames(),
		Rows:    e.state.Rows,
		Pages:   e.state.Page + 1,
		mapper:  e.mapper,
	}, nil
}

func (e *Engine) fail(phase Phase, err error) error {
	e.state.Phase = phase
	e.state.Rows = nil
	return err
}

// nextPage fetches and transforms the current page.
func (e *Engine) nextPage(ctx context.Context) (*PageResult, error) {
	e.state.Phase = Fetching
	page, err := e.fetcher.Fetch(ctx, e.paging.Params(e.state.Page))
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch")
	}
	if page == nil {
		return nil, &FetchError{Kind: FetchPayload, Message: "no page returned"}
	}
	e.state.Phase = Transforming
	if !e.state.SchemaLoaded {
		if err := e.mapper.LoadSchema(page.Fields); err != nil {
			return nil, errors.Annotate(err, "failed to load schema")
		}
		e.schema = page.Fields
		e.state.SchemaLoaded = true
	} else if len(page.Fields) > 0 && !page.Fields.Equal(e.schema) {
		return nil, errors.Annotate(
			&column.SchemaError{Reason: column.ReasonSchemaChanged},
			"expected %s, got %s", e.schema, page.Fields)
	}
	pr := &PageResult{Rows: make([]Row, 0, len(page.Rows)), Count: len(page.Rows)}
	for i, cells := range page.Rows {
		row, err := e.transformRow(cells)
		if err != nil {
			return nil, errors.Annotate(err, "failed to transform row %d", i)
		}
		pr.Rows = append(pr.Rows, row)
	}
	return pr, nil
}

// transformRow converts the cells into a row in column order. Columns without
// a cell are null.
func (e *Engine) transformRow(cells []Cell) (Row, error) {
	row := make(Row, e.mapper.Len())
	for _, c := range cells {
		v, err := e.mapper.Transform(c.Name, c.Value)
		if err != nil {
			return nil, err
		}
		i, ok := e.mapper.Index(c.Name)
		if !ok {
			return nil, &column.SchemaError{Column: c.Name, Reason: column.ReasonUnknownColumn}
		}
		row[i] = v
	}
	return row, nil
}
