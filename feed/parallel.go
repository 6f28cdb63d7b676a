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
	"time"

	"golang.org/x/exp/slices"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/iterator"
)

// Job is a single feed to run. Each job must have its own Engine, and thus its
// own Mapper.
type Job struct {
	Name   string
	Engine *Engine
}

// JobResult is the outcome of a Job.
type JobResult struct {
	Name    string
	Index   int // position of the job in the RunAll argument
	Result  *Result
	Err     error
	Elapsed time.Duration // wall time of the job's run
}

type indexedJob struct {
	index int
	job   Job
}

// RunAll runs the jobs using up to the given number of parallel workers. The
// results are in the order of the jobs, one per job. A failure of one job
// doesn't affect the others. Cancelling ctx stops starting new jobs; each job
// that never started gets a result with the context's error.
func RunAll(ctx context.Context, workers int, jobs []Job) []JobResult {
	if workers < 1 {
		workers = 1
	}
	indexed := make([]indexedJob, len(jobs))
	for i, j := range jobs {
		indexed[i] = indexedJob{index: i, job: j}
	}
	f := func(j indexedJob) JobResult {
		start := time.Now()
		res, err := j.job.Engine.Run(ctx)
		return JobResult{Name: j.job.Name, Index: j.index, Result: res, Err: err,
			Elapsed: time.Since(start)}
	}
	mctx, cancel := context.WithCancel(ctx)
	pm := iterator.ParallelMap(mctx, workers, iterator.FromSlice(indexed), f)
	defer func() {
		cancel()
		iterator.Flush(pm)
	}()

	results := iterator.Reduce[JobResult, []JobResult](pm, []JobResult{},
		func(r JobResult, rs []JobResult) []JobResult {
			return append(rs, r)
		})
	started := make([]bool, len(jobs))
	for _, r := range results {
		started[r.Index] = true
	}
	for i, j := range jobs {
		if started[i] {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = errors.Reason("job was not run")
		}
		results = append(results, JobResult{Name: j.Name, Index: i,
			Err: errors.Annotate(err, "feed %s was not started", j.Name)})
	}
	slices.SortFunc(results, func(a, b JobResult) bool { return a.Index < b.Index })
	return results
}
