package runner

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gnana997/treeshake/pkg/util"
)

type fakeProcessor struct{}

func (fakeProcessor) ProcessFile(path string) (FileResult, error) {
	if strings.HasSuffix(path, ".bad") {
		return FileResult{}, fmt.Errorf("cannot process %s", path)
	}
	return FileResult{FilePath: path, Changed: true}, nil
}

func drain(pool *WorkerPool) ([]FileResult, []FileError) {
	var results []FileResult
	var errs []FileError
	res, errCh := pool.Results(), pool.Errors()
	for res != nil || errCh != nil {
		select {
		case r, ok := <-res:
			if !ok {
				res = nil
				continue
			}
			results = append(results, r)
		case e, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			errs = append(errs, e)
		}
	}
	return results, errs
}

func TestWorkerPool_ProcessesAllJobs(t *testing.T) {
	pool := NewWorkerPool(3, fakeProcessor{}, util.DiscardLogger())
	pool.Start()

	go func() {
		defer pool.Stop()
		for i := 0; i < 10; i++ {
			name := fmt.Sprintf("file%d.js", i)
			if i%5 == 0 {
				name = fmt.Sprintf("file%d.bad", i)
			}
			assert.NoError(t, pool.Submit(FileJob{FilePath: name, JobID: i}))
		}
		pool.FinishSubmitting()
	}()

	results, errs := drain(pool)
	assert.Len(t, results, 8)
	assert.Len(t, errs, 2)

	stats := pool.GetStats()
	assert.Equal(t, 3, stats.NumWorkers)
	assert.Equal(t, int64(10), stats.JobsSubmitted)
	assert.Equal(t, int64(8), stats.JobsProcessed)
	assert.Equal(t, int64(2), stats.JobsFailed)
}

func TestWorkerPool_JobIDPropagated(t *testing.T) {
	pool := NewWorkerPool(1, fakeProcessor{}, util.DiscardLogger())
	pool.Start()

	go func() {
		defer pool.Stop()
		_ = pool.Submit(FileJob{FilePath: "a.js", JobID: 42})
	}()

	results, _ := drain(pool)
	if assert.Len(t, results, 1) {
		assert.Equal(t, 42, results[0].JobID)
	}
}

func TestWorkerPool_SubmitAfterStop(t *testing.T) {
	pool := NewWorkerPool(1, fakeProcessor{}, util.DiscardLogger())
	pool.Start()
	pool.Stop()
	pool.Stop()

	assert.Error(t, pool.Submit(FileJob{FilePath: "a.js"}))
}

func TestWorkerPool_DefaultSize(t *testing.T) {
	pool := NewWorkerPool(0, fakeProcessor{}, util.DiscardLogger())
	assert.Equal(t, util.GetOptimalPoolSize(), pool.GetStats().NumWorkers)
}
