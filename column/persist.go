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
	"encoding/gob"
	"os"

	"github.com/stockparfait/errors"
)

// WriteCodebooks saves the codebooks, as returned by Mapper.Codebooks, to a
// file in gob format, overwriting it.
func WriteCodebooks(fileName string, cbs map[string][]Entry) error {
	f, err := os.OpenFile(fileName, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Annotate(err, "failed to open file for writing: '%s'", fileName)
	}
	defer f.Close()
	enc := gob.NewEncoder(f)
	if err = enc.Encode(cbs); err != nil {
		return errors.Annotate(err, "failed to write to '%s'", fileName)
	}
	return nil
}

// ReadCodebooks loads codebooks written by WriteCodebooks.
func ReadCodebooks(fileName string) (map[string][]Entry, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open file for reading: '%s'", fileName)
	}
	defer f.Close()
	var cbs map[string][]Entry
	dec := gob.NewDecoder(f)
	if err = dec.Decode(&cbs); err != nil {
		return nil, errors.Annotate(err, "failed to read from '%s'", fileName)
	}
	return cbs, nil
}

// SeedAll seeds the mapper with every codebook in cbs.
func (m *Mapper) SeedAll(cbs map[string][]Entry) error {
	for name, entries := range cbs {
		if err := m.Seed(name, entries); err != nil {
			return err
		}
	}
	return nil
}
