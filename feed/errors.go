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
)

// FetchErrorKind classifies failures of a PageFetcher.
type FetchErrorKind uint8

// Values of FetchErrorKind.
const (
	FetchTransport FetchErrorKind = iota // network failure
	FetchTimeout                         // the per-fetch deadline expired
	FetchStatus                          // non-success response status
	FetchPayload                         // the response is not a valid page
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchTransport:
		return "transport"
	case FetchTimeout:
		return "timeout"
	case FetchStatus:
		return "status"
	case FetchPayload:
		return "payload"
	}
	return fmt.Sprintf("FetchErrorKind(%d)", k)
}

// FetchError is returned by a PageFetcher for a failed page request.
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int    // for FetchStatus
	Message    string // e.g. the server's error message
	Err        error
}

func (e *FetchError) Error() string {
	msg := "fetch " + e.Kind.String() + " error"
	if e.Kind == FetchStatus {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the same request may succeed. Client
// side status errors and malformed payloads are not retryable.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case FetchTransport, FetchTimeout:
		return true
	case FetchStatus:
		return e.StatusCode == 429 || e.StatusCode >= 500
	}
	return false
}

// AsFetchError extracts the *FetchError from err, if any.
func AsFetchError(err error) (*FetchError, bool) {
	var e *FetchError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCancelled checks if the engine stopped due to a cancelled context.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
