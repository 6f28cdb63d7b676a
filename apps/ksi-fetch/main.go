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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	"github.com/ksidata/ksidata/arcgis"
	"github.com/ksidata/ksidata/column"
	"github.com/ksidata/ksidata/feed"
	"github.com/ksidata/ksidata/metrics"
	"github.com/ksidata/ksidata/table"

	toml "github.com/pelletier/go-toml/v2"
)

type Flags struct {
	Config   string // required
	LogLevel logging.Level
	CSV      bool   // dump CSV format; default: text.
	Describe bool   // print numeric column summaries instead of rows
	Codebook string // directory of saved codebooks; empty = don't persist
	Workers  int    // feeds fetched in parallel
	Rows     int    // max. rows to print per feed; 0 = all
	Metrics  string // Prometheus textfile to write after each run
	Schedule string // cron spec; empty = run once
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("ksi-fetch", flag.ExitOnError)
	fs.StringVar(&flags.Config, "config", "", "config file (required)")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.BoolVar(&flags.CSV, "csv", false, "print table in CSV format; default: text")
	fs.BoolVar(&flags.Describe, "describe", false,
		"print summaries of numeric columns instead of the rows")
	fs.StringVar(&flags.Codebook, "codebook", "",
		"directory to load categorical codes from and save them to")
	fs.IntVar(&flags.Workers, "workers", 2, "number of feeds to fetch in parallel")
	fs.IntVar(&flags.Rows, "rows", 0, "max. number of rows to print per feed; 0 = all")
	fs.StringVar(&flags.Metrics, "metrics", "",
		"write Prometheus metrics to this file after each run")
	fs.StringVar(&flags.Schedule, "schedule", "",
		"cron spec to re-run the feeds on, e.g. '@every 1h'; default: run once")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	if flags.Config == "" {
		return nil, errors.Reason("missing required -config argument")
	}
	if flags.Workers < 1 {
		return nil, errors.Reason("-workers must be >= 1, got %d", flags.Workers)
	}
	if flags.Rows < 0 {
		return nil, errors.Reason("-rows must be >= 0, got %d", flags.Rows)
	}
	if flags.Schedule != "" {
		if _, err := cron.ParseStandard(flags.Schedule); err != nil {
			return nil, errors.Annotate(err, "invalid -schedule '%s'", flags.Schedule)
		}
	}
	return &flags, err
}

// FeedConfig is a single [[feed]] table of the config file.
type FeedConfig struct {
	Name        string   `toml:"name"`         // required, unique
	URL         string   `toml:"url"`          // layer query endpoint, required
	Where       string   `toml:"where"`        // default: all rows
	OutFields   []string `toml:"out_fields"`   // default: all fields
	OutSR       string   `toml:"out_sr"`       // e.g. "4326"
	OrderBy     []string `toml:"order_by"`     // e.g. ["OBJECTID ASC"]
	PageSize    int      `toml:"page_size"`    // default: 2000
	OffsetParam string   `toml:"offset_param"` // default: resultOffset
	SizeParam   string   `toml:"size_param"`   // default: resultRecordCount
	Timeout     string   `toml:"timeout"`      // per page, e.g. "30s"; default: none
	LayerLimit  bool     `toml:"layer_limit"`  // cap page size by the layer's maxRecordCount
	// Column name -> value -> code.
	Overrides map[string]map[string]int64 `toml:"overrides"`

	timeout time.Duration
}

type Config struct {
	Feeds []FeedConfig `toml:"feed"`
}

// setDefaults fills in and checks the feed config.
func (fc *FeedConfig) setDefaults() error {
	if fc.Name == "" {
		return errors.Reason("feed name is required")
	}
	if fc.URL == "" {
		return errors.Reason("feed %s: url is required", fc.Name)
	}
	if fc.PageSize == 0 {
		fc.PageSize = feed.DefaultPageSize
	}
	if fc.OffsetParam == "" {
		fc.OffsetParam = feed.DefaultOffsetParam
	}
	if fc.SizeParam == "" {
		fc.SizeParam = feed.DefaultSizeParam
	}
	if err := fc.paging().Validate(); err != nil {
		return errors.Annotate(err, "feed %s: invalid paging", fc.Name)
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return errors.Annotate(err, "feed %s: invalid timeout", fc.Name)
		}
		if d < 0 {
			return errors.Reason("feed %s: timeout must be >= 0", fc.Name)
		}
		fc.timeout = d
	}
	return nil
}

func (fc *FeedConfig) paging() feed.Paging {
	return feed.Paging{
		PageSize:    fc.PageSize,
		OffsetParam: fc.OffsetParam,
		SizeParam:   fc.SizeParam,
	}
}

func (fc *FeedConfig) query() *arcgis.Query {
	q := arcgis.NewQuery()
	if fc.Where != "" {
		q = q.Where(fc.Where)
	}
	if len(fc.OutFields) > 0 {
		q = q.OutFields(fc.OutFields...)
	}
	if fc.OutSR != "" {
		q = q.OutSR(fc.OutSR)
	}
	if len(fc.OrderBy) > 0 {
		q = q.OrderBy(fc.OrderBy...)
	}
	return q
}

func parseConfig(fileName string) (*Config, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", fileName)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	d.DisallowUnknownFields()
	var c Config
	if err := d.Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", fileName)
	}
	if len(c.Feeds) == 0 {
		return nil, errors.Reason("no [[feed]] in config file %s", fileName)
	}
	names := make(map[string]struct{})
	for i := range c.Feeds {
		fc := &c.Feeds[i]
		if err := fc.setDefaults(); err != nil {
			return nil, errors.Annotate(err, "invalid feed #%d", i+1)
		}
		if _, ok := names[fc.Name]; ok {
			return nil, errors.Reason("duplicate feed name: %s", fc.Name)
		}
		names[fc.Name] = struct{}{}
	}
	return &c, nil
}

func codebookFile(dir, name string) string {
	return filepath.Join(dir, name+".gob")
}

// newMapper registers the overrides of the feed and seeds it with the saved
// codebooks, if any.
func newMapper(fc *FeedConfig, codebookDir string) (*column.Mapper, error) {
	m := column.NewMapper()
	for name, values := range fc.Overrides {
		if err := m.RegisterOverride(name, values); err != nil {
			return nil, errors.Annotate(err, "failed to register override for %s", name)
		}
	}
	if codebookDir == "" {
		return m, nil
	}
	fileName := codebookFile(codebookDir, fc.Name)
	if _, err := os.Stat(fileName); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}
		return nil, errors.Annotate(err, "cannot check codebook file '%s'", fileName)
	}
	cbs, err := column.ReadCodebooks(fileName)
	if err != nil {
		return nil, errors.Annotate(err, "failed to load codebooks")
	}
	if err := m.SeedAll(cbs); err != nil {
		return nil, errors.Annotate(err, "failed to seed codebooks from '%s'", fileName)
	}
	return m, nil
}

func newJob(ctx context.Context, fc *FeedConfig, codebookDir string) (feed.Job, error) {
	m, err := newMapper(fc, codebookDir)
	if err != nil {
		return feed.Job{}, errors.Annotate(err, "feed %s", fc.Name)
	}
	paging := fc.paging()
	if fc.LayerLimit {
		info, err := arcgis.FetchLayerInfo(ctx, fc.URL)
		if err != nil {
			return feed.Job{}, errors.Annotate(err, "feed %s", fc.Name)
		}
		if info.MaxRecordCount > 0 && info.MaxRecordCount < paging.PageSize {
			logging.Warningf(ctx, "feed %s: page size %d exceeds the layer's max %d, using %d",
				fc.Name, paging.PageSize, info.MaxRecordCount, info.MaxRecordCount)
			paging.PageSize = info.MaxRecordCount
		}
	}
	client := arcgis.NewClient(fc.URL, fc.query(), fc.timeout)
	e, err := feed.NewEngine(client, m, paging)
	if err != nil {
		return feed.Job{}, errors.Annotate(err, "feed %s", fc.Name)
	}
	return feed.Job{Name: fc.Name, Engine: e}, nil
}

func saveCodebooks(m *column.Mapper, dir, name string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Annotate(err, "failed to create codebook directory '%s'", dir)
	}
	return column.WriteCodebooks(codebookFile(dir, name), m.Codebooks())
}

func printResult(w io.Writer, flags *Flags, name string, res *feed.Result) error {
	format := table.FormatText
	if flags.CSV {
		format = table.FormatCSV
	} else {
		if _, err := fmt.Fprintf(w, "Feed %s: %d rows in %d pages\n\n",
			name, len(res.Rows), res.Pages); err != nil {
			return err
		}
	}
	var tbl *table.Table
	if flags.Describe {
		tbl = feed.SummaryTable(res)
	} else {
		tbl = res.Table()
	}
	if err := tbl.Write(w, format, table.Params{Rows: flags.Rows}); err != nil {
		return errors.Annotate(err, "failed to print feed %s", name)
	}
	if flags.CSV {
		return nil
	}
	cb := res.CodebookTable()
	if len(cb.Rows) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\nCodes of %s:\n\n", name); err != nil {
		return err
	}
	if err := cb.WriteText(w, table.Params{}); err != nil {
		return errors.Annotate(err, "failed to print codes of feed %s", name)
	}
	return nil
}

func writeMetrics(ctx context.Context, flags *Flags, m *metrics.Metrics) {
	if flags.Metrics == "" {
		return
	}
	if err := m.WriteFile(flags.Metrics); err != nil {
		logging.Warningf(ctx, "%s", err.Error())
	}
}

func run(ctx context.Context, flags *Flags, m *metrics.Metrics, w io.Writer) error {
	runID := uuid.New().String()
	config, err := parseConfig(flags.Config)
	if err != nil {
		return errors.Annotate(err, "failed to parse config")
	}
	logging.Infof(ctx, "run %s: %d feeds", runID, len(config.Feeds))
	defer writeMetrics(ctx, flags, m)
	jobs := make([]feed.Job, len(config.Feeds))
	for i := range config.Feeds {
		if jobs[i], err = newJob(ctx, &config.Feeds[i], flags.Codebook); err != nil {
			return errors.Annotate(err, "failed to set up feeds")
		}
	}
	failed := 0
	for _, r := range feed.RunAll(ctx, flags.Workers, jobs) {
		m.Observe(r)
		if r.Err != nil {
			logging.Errorf(ctx, "run %s: feed %s failed: %s", runID, r.Name, r.Err.Error())
			failed++
			continue
		}
		logging.Infof(ctx, "run %s: feed %s: %d rows in %d pages in %s",
			runID, r.Name, len(r.Result.Rows), r.Result.Pages, r.Elapsed)
		if flags.Codebook != "" {
			if err := saveCodebooks(jobs[r.Index].Engine.Mapper(), flags.Codebook, r.Name); err != nil {
				return errors.Annotate(err, "failed to save codes of feed %s", r.Name)
			}
		}
		if err := printResult(w, flags, r.Name, r.Result); err != nil {
			return errors.Annotate(err, "failed to print results")
		}
	}
	if failed > 0 {
		return errors.Reason("run %s: %d of %d feeds failed", runID, failed, len(jobs))
	}
	return nil
}

// cronLogger sends the cron scheduler's messages to the context logger, as
// the scheduler's default logger would write to stdout along with the results.
type cronLogger struct {
	ctx context.Context
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debugf(l.ctx, "cron: %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logging.Errorf(l.ctx, "cron: %s %v: %s", msg, keysAndValues, err.Error())
}

// skipOverlap drops a scheduled run while the previous one is still going.
func skipOverlap(ctx context.Context) cron.JobWrapper {
	return cron.SkipIfStillRunning(cronLogger{ctx: ctx})
}

// schedule runs the feeds on the cron schedule until ctx is done. A failed run
// is logged and doesn't stop the schedule. A run due while the previous one is
// still in progress is skipped.
func schedule(ctx context.Context, flags *Flags, m *metrics.Metrics, w io.Writer) error {
	c := cron.New(cron.WithLogger(cronLogger{ctx: ctx}), cron.WithChain(skipOverlap(ctx)))
	_, err := c.AddFunc(flags.Schedule, func() {
		if err := run(ctx, flags, m, w); err != nil {
			logging.Errorf(ctx, "%s", err.Error())
		}
	})
	if err != nil {
		return errors.Annotate(err, "invalid schedule '%s'", flags.Schedule)
	}
	c.Start()
	logging.Infof(ctx, "running feeds on schedule '%s'", flags.Schedule)
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	m := metrics.New()
	if flags.Schedule != "" {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := schedule(ctx, flags, m, os.Stdout); err != nil {
			logging.Errorf(ctx, "%s", err.Error())
			os.Exit(1)
		}
		return
	}
	if err := run(ctx, flags, m, os.Stdout); err != nil {
		logging.Errorf(ctx, "%s", err.Error())
		os.Exit(1)
	}
}
