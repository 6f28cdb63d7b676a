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
	"net/url"
	"strconv"

	"github.com/stockparfait/errors"
)

// Default paging configuration, as used by ArcGIS feature services.
const (
	DefaultPageSize    = 2000
	DefaultOffsetParam = "resultOffset"
	DefaultSizeParam   = "resultRecordCount"
)

// Paging computes the query parameters for a given page index. It has no
// state and is safe to use concurrently.
type Paging struct {
	PageSize    int    // rows per page, > 0
	OffsetParam string // query parameter carrying the row offset
	SizeParam   string // query parameter carrying the page size
}

// DefaultPaging returns the default paging configuration.
func DefaultPaging() Paging {
	return Paging{
		PageSize:    DefaultPageSize,
		OffsetParam: DefaultOffsetParam,
		SizeParam:   DefaultSizeParam,
	}
}

// Validate the configuration.
func (p Paging) Validate() error {
	if p.PageSize <= 0 {
		return errors.Reason("page size must be positive, got %d", p.PageSize)
	}
	if p.OffsetParam == "" || p.SizeParam == "" {
		return errors.Reason("offset and page size parameter names must be set")
	}
	if p.OffsetParam == p.SizeParam {
		return errors.Reason("offset and page size parameters are the same: %s",
			p.OffsetParam)
	}
	return nil
}

// Params for the page with the given index, starting from 0. Each call creates
// a new object, so the caller is free to modify it.
func (p Paging) Params(page int) url.Values {
	return url.Values{
		p.OffsetParam: []string{strconv.Itoa(page * p.PageSize)},
		p.SizeParam:   []string{strconv.Itoa(p.PageSize)},
	}
}

// Fragment is the URL-encoded query string fragment for the page.
func (p Paging) Fragment(page int) string {
	return p.Params(page).Encode()
}
