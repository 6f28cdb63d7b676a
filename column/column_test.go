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
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stockparfait/errors"

	. "github.com/smartystreets/goconvey/convey"
)

func transformAll(c *ColumnType, values ...interface{}) ([]Value, error) {
	res := make([]Value, len(values))
	for i, v := range values {
		tv, err := c.Transform(v)
		if err != nil {
			return nil, err
		}
		res[i] = tv
	}
	return res, nil
}

func TestColumnType(t *testing.T) {
	t.Parallel()

	Convey("String columns", t, func() {
		c := NewColumnType("IMPACTYPE", String)

		Convey("categorical codes are assigned in first-seen order", func() {
			res, err := transformAll(c, "Minor", "Major", "Minor")
			So(err, ShouldBeNil)
			So(res, ShouldResemble, []Value{int64(1), int64(2), int64(1)})
			So(c.Codebook().Entries(), ShouldResemble, []Entry{
				{Value: "Minor", Code: 1},
				{Value: "Major", Code: 2},
			})
			So(c.Codebook().Version(), ShouldEqual, 2)
		})

		Convey("Yes and No are booleans", func() {
			res, err := transformAll(c, "Yes", "No")
			So(err, ShouldBeNil)
			So(res, ShouldResemble, []Value{true, false})
			So(c.Codebook().Len(), ShouldEqual, 0)
		})

		Convey("only exact Yes and No are booleans", func() {
			res, err := transformAll(c, "yes", "NO")
			So(err, ShouldBeNil)
			So(res, ShouldResemble, []Value{int64(1), int64(2)})
		})

		Convey("numeric strings bypass the codebook", func() {
			res, err := transformAll(c, "42", "0", "-7", "+3", "3.5", "-0.25", ".5", "1e3")
			So(err, ShouldBeNil)
			So(res, ShouldResemble, []Value{
				int64(42), int64(0), int64(-7), int64(3),
				3.5, -0.25, 0.5, 1000.0,
			})
			So(c.Codebook().Len(), ShouldEqual, 0)
		})

		Convey("empty and odd strings are categorical", func() {
			res, err := transformAll(c, "", "1.2.3", "12a", "NaN", "")
			So(err, ShouldBeNil)
			So(res, ShouldResemble, []Value{
				int64(1), int64(2), int64(3), int64(4), int64(1)})
		})

		Convey("already typed values pass through", func() {
			res, err := transformAll(c, json.Number("12"), json.Number("1.5"), 2.5, true, 7)
			So(err, ShouldBeNil)
			So(res, ShouldResemble, []Value{int64(12), 1.5, 2.5, true, int64(7)})
			So(c.Codebook().Len(), ShouldEqual, 0)
		})

		Convey("null is returned unchanged", func() {
			v, err := c.Transform(nil)
			So(err, ShouldBeNil)
			So(v, ShouldBeNil)
			So(c.Codebook().Version(), ShouldEqual, 0)
		})
	})

	Convey("Numeric columns", t, func() {
		Convey("Integer, Date and ObjectID parse as int64", func() {
			for _, tp := range []DeclaredType{Integer, Date, ObjectID} {
				c := NewColumnType("col", tp)
				res, err := transformAll(c, "12", json.Number("1262322000000"), 3.0, int64(4), nil)
				So(err, ShouldBeNil)
				So(res, ShouldResemble, []Value{
					int64(12), int64(1262322000000), int64(3), int64(4), nil})
			}
		})

		Convey("parse failures are errors, not nulls", func() {
			c := NewColumnType("ACCNUM", Integer)
			for _, v := range []interface{}{"", "abc", "1.5", 1.5, json.Number("2.5"), true} {
				_, err := c.Transform(v)
				So(err, ShouldNotBeNil)
				So(IsParseError(err), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "ACCNUM")
			}
		})

		Convey("Double parses as float64", func() {
			c := NewColumnType("LATITUDE", Double)
			res, err := transformAll(c, "43.5", json.Number("-79.25"), 1.0, int64(2))
			So(err, ShouldBeNil)
			So(res, ShouldResemble, []Value{43.5, -79.25, 1.0, 2.0})
			_, err = c.Transform("north")
			So(IsParseError(err), ShouldBeTrue)
		})
	})

	Convey("Override columns", t, func() {
		c := NewOverrideColumnType("INJURY", map[string]int64{
			"None": 1, "Minimal": 2, "Minor": 3, "Major": 4, "Fatal": 5})

		Convey("values map to the given codes", func() {
			res, err := transformAll(c, "Minimal", "Fatal", "Minimal", nil)
			So(err, ShouldBeNil)
			So(res, ShouldResemble, []Value{int64(2), int64(5), int64(2), nil})
		})

		Convey("no numeric or boolean inference", func() {
			_, err := c.Transform("Yes")
			So(IsOverrideError(err), ShouldBeTrue)
		})

		Convey("unmapped values are reported", func() {
			_, err := c.Transform("Severe")
			So(err, ShouldNotBeNil)
			So(IsOverrideError(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, ReasonUnmapped)
			So(c.Codebook().Len(), ShouldEqual, 5)
		})

		Convey("entries are ordered by code", func() {
			So(c.Codebook().Entries()[0], ShouldResemble, Entry{Value: "None", Code: 1})
			So(c.Codebook().Frozen(), ShouldBeTrue)
			_, err := c.Codebook().Assign("Severe")
			So(err, ShouldNotBeNil)
		})
	})

	Convey("ParseDeclaredType", t, func() {
		So(ParseDeclaredType("esriFieldTypeInteger"), ShouldEqual, Integer)
		So(ParseDeclaredType("esriFieldTypeSmallInteger"), ShouldEqual, Integer)
		So(ParseDeclaredType("esriFieldTypeOID"), ShouldEqual, ObjectID)
		So(ParseDeclaredType("esriFieldTypeDate"), ShouldEqual, Date)
		So(ParseDeclaredType("esriFieldTypeDouble"), ShouldEqual, Double)
		So(ParseDeclaredType("esriFieldTypeGlobalID"), ShouldEqual, String)
		So(ParseDeclaredType("String"), ShouldEqual, String)
		So(Date.String(), ShouldEqual, "Date")
		So(Double.Numeric(), ShouldBeTrue)
		So(String.Numeric(), ShouldBeFalse)
	})

	Convey("Schema equality respects field order and types", t, func() {
		s := Schema{{Name: "A", Type: Integer}, {Name: "B", Type: String}}
		So(s.Equal(Schema{{Name: "A", Type: Integer}, {Name: "B", Type: String}}), ShouldBeTrue)
		So(s.Equal(Schema{{Name: "B", Type: String}, {Name: "A", Type: Integer}}), ShouldBeFalse)
		So(s.Equal(Schema{{Name: "A", Type: Double}, {Name: "B", Type: String}}), ShouldBeFalse)
		So(s.Equal(s[:1]), ShouldBeFalse)
		So(s.String(), ShouldEqual, "{A: Integer, B: String}")
	})
}

var testSchema = Schema{
	{Name: "OBJECTID", Type: ObjectID},
	{Name: "DATE", Type: Date},
	{Name: "ROAD_CLASS", Type: String},
	{Name: "INJURY", Type: String},
}

func TestMapper(t *testing.T) {
	t.Parallel()

	Convey("Mapper works", t, func() {
		m := NewMapper()

		Convey("overrides take precedence over declared types", func() {
			So(m.RegisterOverride("INJURY", map[string]int64{
				"None": 1, "Minimal": 2, "Minor": 3}), ShouldBeNil)
			So(m.LoadSchema(testSchema), ShouldBeNil)
			So(m.Column("INJURY").Declared(), ShouldEqual, Override)
			for i := 0; i < 3; i++ {
				v, err := m.Transform("INJURY", "Minimal")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, int64(2))
			}
			So(m.Column("ROAD_CLASS").Declared(), ShouldEqual, String)
		})

		Convey("overrides after load are rejected", func() {
			So(m.LoadSchema(testSchema), ShouldBeNil)
			err := m.RegisterOverride("INJURY", map[string]int64{"None": 1})
			So(IsOverrideError(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, ReasonAfterLoad)
			So(m.Column("INJURY").Declared(), ShouldEqual, String)
		})

		Convey("overrides for columns absent from the schema are rejected", func() {
			So(m.RegisterOverride("INJURIES", map[string]int64{"None": 1}), ShouldBeNil)
			err := m.LoadSchema(testSchema)
			So(IsSchemaError(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "INJURIES")
			So(err.Error(), ShouldContainSubstring, ReasonUnboundOverride)
			So(m.Loaded(), ShouldBeFalse)
			So(m.ColumnNames(), ShouldBeEmpty)
		})

		Convey("overrides bound to a column from an earlier load are accepted", func() {
			So(m.RegisterOverride("INJURY", map[string]int64{"None": 1}), ShouldBeNil)
			So(m.LoadSchema(testSchema), ShouldBeNil)
			So(m.LoadSchema(Schema{{Name: "DISTRICT", Type: String}}), ShouldBeNil)
			So(m.Column("INJURY").Declared(), ShouldEqual, Override)
		})

		Convey("empty overrides are rejected", func() {
			So(IsOverrideError(m.RegisterOverride("INJURY", nil)), ShouldBeTrue)
		})

		Convey("column names follow field metadata order", func() {
			So(m.LoadSchema(testSchema), ShouldBeNil)
			So(m.Loaded(), ShouldBeTrue)
			So(m.ColumnNames(), ShouldResemble, []string{
				"OBJECTID", "DATE", "ROAD_CLASS", "INJURY"})
			i, ok := m.Index("ROAD_CLASS")
			So(ok, ShouldBeTrue)
			So(i, ShouldEqual, 2)
		})

		Convey("reloading the schema keeps accumulated codes", func() {
			So(m.LoadSchema(testSchema), ShouldBeNil)
			v, err := m.Transform("ROAD_CLASS", "Major Arterial")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, int64(1))

			So(m.LoadSchema(Schema{
				{Name: "ROAD_CLASS", Type: String},
				{Name: "DISTRICT", Type: String},
			}), ShouldBeNil)
			So(m.ColumnNames(), ShouldResemble, []string{
				"OBJECTID", "DATE", "ROAD_CLASS", "INJURY", "DISTRICT"})
			v, err = m.Transform("ROAD_CLASS", "Local")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, int64(2))
			v, err = m.Transform("ROAD_CLASS", "Major Arterial")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, int64(1))
		})

		Convey("missing field metadata is a schema error", func() {
			So(IsSchemaError(m.LoadSchema(nil)), ShouldBeTrue)
			So(m.Loaded(), ShouldBeFalse)
		})

		Convey("unknown columns are schema errors", func() {
			So(m.LoadSchema(testSchema), ShouldBeNil)
			_, err := m.Transform("NOT_A_COLUMN", "x")
			So(err, ShouldNotBeNil)
			So(IsSchemaError(err), ShouldBeTrue)
			So(IsSchemaError(errors.Annotate(err, "page 3")), ShouldBeTrue)
		})

		Convey("seeds keep codes stable and keep growing", func() {
			So(m.Seed("ROAD_CLASS", []Entry{
				{Value: "Local", Code: 2}, {Value: "Major Arterial", Code: 1}}), ShouldBeNil)
			So(m.LoadSchema(testSchema), ShouldBeNil)
			v, err := m.Transform("ROAD_CLASS", "Local")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, int64(2))
			v, err = m.Transform("ROAD_CLASS", "Collector")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, int64(3))
			So(IsOverrideError(m.Seed("INJURY", nil)), ShouldBeTrue)
		})

		Convey("seeds with gaps are rejected", func() {
			So(m.Seed("ROAD_CLASS", []Entry{{Value: "Local", Code: 2}}), ShouldNotBeNil)
		})

		Convey("codebooks round-trip through a file", func() {
			tmpdir, err := os.MkdirTemp("", "test_codebook")
			So(err, ShouldBeNil)
			defer os.RemoveAll(tmpdir)

			So(m.LoadSchema(testSchema), ShouldBeNil)
			for _, v := range []string{"Local", "Collector", "Local"} {
				_, err := m.Transform("ROAD_CLASS", v)
				So(err, ShouldBeNil)
			}
			_, err = m.Transform("DATE", "1262322000000")
			So(err, ShouldBeNil)
			cbs := m.Codebooks()
			So(cbs, ShouldResemble, map[string][]Entry{
				"ROAD_CLASS": {{Value: "Local", Code: 1}, {Value: "Collector", Code: 2}},
			})

			fileName := filepath.Join(tmpdir, "codebook.gob")
			So(WriteCodebooks(fileName, cbs), ShouldBeNil)
			read, err := ReadCodebooks(fileName)
			So(err, ShouldBeNil)
			So(read, ShouldResemble, cbs)

			m2 := NewMapper()
			So(m2.SeedAll(read), ShouldBeNil)
			So(m2.LoadSchema(testSchema), ShouldBeNil)
			v, err := m2.Transform("ROAD_CLASS", "Collector")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, int64(2))
		})
	})
}
