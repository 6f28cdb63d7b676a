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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"

	"github.com/ksidata/ksidata/column"
	"github.com/ksidata/ksidata/feed"
)

// Field is the JSON metadata of a single layer field.
type Field struct {
	Name  string `json:"name"`
	Type  string `json:"type"` // e.g. esriFieldTypeInteger
	Alias string `json:"alias,omitempty"`
}

// Feature is a single row of a page.
type Feature struct {
	Attributes map[string]interface{} `json:"attributes"`
}

// PageError is the error object the service returns, often with HTTP 200.
type PageError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Page is the format of a single page of a layer query.
type Page struct {
	Fields                []Field    `json:"fields,omitempty"`
	Features              []Feature  `json:"features,omitempty"`
	ExceededTransferLimit bool       `json:"exceededTransferLimit,omitempty"`
	Error                 *PageError `json:"error,omitempty"`
}

// TestPage generates the JSON string in a format as returned by the layer
// query. For use in tests.
func TestPage(fields []Field, rows []map[string]interface{}, exceeded bool) (string, error) {
	p := Page{Fields: fields, ExceededTransferLimit: exceeded}
	for _, r := range rows {
		p.Features = append(p.Features, Feature{Attributes: r})
	}
	bytes, err := json.Marshal(&p)
	return string(bytes), err
}

// Schema converts the page fields to a column schema.
func (p *Page) Schema() column.Schema {
	s := make(column.Schema, len(p.Fields))
	for i, f := range p.Fields {
		s[i] = column.Field{Name: f.Name, Type: column.ParseDeclaredType(f.Type)}
	}
	return s
}

// Cells of the i'th feature: the attributes of the page fields in field order,
// followed by any other attributes ordered by name.
func (p *Page) Cells(i int) []feed.Cell {
	attrs := p.Features[i].Attributes
	cells := make([]feed.Cell, 0, len(attrs))
	seen := make(map[string]struct{}, len(p.Fields))
	for _, f := range p.Fields {
		v, ok := attrs[f.Name]
		if !ok {
			continue
		}
		seen[f.Name] = struct{}{}
		cells = append(cells, feed.Cell{Name: f.Name, Value: v})
	}
	if len(seen) == len(attrs) {
		return cells
	}
	extra := maps.Keys(attrs)
	slices.Sort(extra)
	for _, name := range extra {
		if _, ok := seen[name]; ok {
			continue
		}
		cells = append(cells, feed.Cell{Name: name, Value: attrs[name]})
	}
	return cells
}

// Client fetches pages of a single layer query.
type Client struct {
	URL     string        // the layer's query endpoint
	Query   *Query        // non-paging parameters; nil means all rows and fields
	Timeout time.Duration // per page; 0 = no timeout
}

var _ feed.PageFetcher = &Client{}

// NewClient creates a new client.
func NewClient(uri string, q *Query, timeout time.Duration) *Client {
	return &Client{URL: uri, Query: q, Timeout: timeout}
}

// values merges the query values with the paging parameters.
func (c *Client) values(params url.Values) url.Values {
	q := c.Query
	if q == nil {
		q = NewQuery()
	}
	v := q.Values()
	for k, vs := range params {
		v[k] = append([]string{}, vs...)
	}
	return v
}

// Fetch implements feed.PageFetcher. The transport, including its retry
// policy, is the fetch package's, configured through the context.
func (c *Client) Fetch(ctx context.Context, params url.Values) (*feed.Page, error) {
	fctx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	query := c.values(params)
	resp, err := fetch.GetRetry(fctx, c.URL, query, nil)
	if err != nil {
		// fetch.Get reports any non-2xx status as an error along with the
		// response itself.
		if resp != nil && !fetch.ResponseOK(resp) && fctx.Err() == nil {
			resp.Body.Close()
			return nil, &feed.FetchError{
				Kind:       feed.FetchStatus,
				StatusCode: resp.StatusCode,
				Message:    http.StatusText(resp.StatusCode),
				Err:        err,
			}
		}
		return nil, classifyError(ctx, fctx, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &feed.FetchError{
			Kind:       feed.FetchStatus,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyError(ctx, fctx, errors.Annotate(err, "failed to read response body"))
	}
	page, err := decodePage(body)
	if err != nil {
		return nil, err
	}
	logging.Infof(ctx, "ArcGIS: fetched %d rows for %s; exceededTransferLimit: %v",
		len(page.Features), params.Encode(), page.ExceededTransferLimit)
	res := &feed.Page{Fields: page.Schema(), Rows: make([][]feed.Cell, len(page.Features))}
	for i := range page.Features {
		res.Rows[i] = page.Cells(i)
	}
	return res, nil
}

// classifyError distinguishes an expired per-fetch deadline from other
// transport failures. ctx is the caller's context, fctx the per-fetch one.
func classifyError(ctx, fctx context.Context, err error) error {
	if ctx.Err() == nil && fctx.Err() == context.DeadlineExceeded {
		return &feed.FetchError{Kind: feed.FetchTimeout, Err: err}
	}
	if ctx.Err() != nil {
		return &feed.FetchError{Kind: feed.FetchTransport, Err: ctx.Err(),
			Message: err.Error()}
	}
	return &feed.FetchError{Kind: feed.FetchTransport, Err: err}
}

// decodePage parses the response body, keeping numbers as json.Number so that
// large integer IDs and dates stay exact.
func decodePage(body []byte) (*Page, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var page Page
	if err := dec.Decode(&page); err != nil {
		return nil, &feed.FetchError{Kind: feed.FetchPayload, Err: err}
	}
	if page.Error != nil {
		msg := page.Error.Message
		if len(page.Error.Details) > 0 {
			msg += ": " + strings.Join(page.Error.Details, "; ")
		}
		return nil, &feed.FetchError{
			Kind:       feed.FetchStatus,
			StatusCode: page.Error.Code,
			Message:    msg,
		}
	}
	return &page, nil
}

// LayerInfo is the part of the layer metadata relevant for paging.
type LayerInfo struct {
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	MaxRecordCount int        `json:"maxRecordCount"`
	Fields         []Field    `json:"fields"`
	Error          *PageError `json:"error,omitempty"`
}

// LayerURL derives the layer's URL from its query endpoint.
func LayerURL(queryURL string) string {
	return strings.TrimSuffix(strings.TrimSuffix(queryURL, "/"), "/query")
}

// FetchLayerInfo obtains metadata about the layer of the query endpoint.
func FetchLayerInfo(ctx context.Context, queryURL string) (*LayerInfo, error) {
	var info LayerInfo
	query := url.Values{"f": []string{"json"}}
	if err := fetch.FetchJSON(ctx, LayerURL(queryURL), &info, query, nil); err != nil {
		return nil, errors.Annotate(err, "failed to fetch layer info")
	}
	if info.Error != nil {
		return nil, errors.Reason("layer info error %d: %s", info.Error.Code, info.Error.Message)
	}
	return &info, nil
}
