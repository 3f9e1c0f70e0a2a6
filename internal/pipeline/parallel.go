package pipeline

import (
	"context"
	"runtime"
	"sync"
)

// WorkItem is a file queued for conversion.
type WorkItem struct {
	Seq  int
	Path string
}

// WorkResult holds the conversion output for a single file.
type WorkResult struct {
	Seq    int
	Path   string
	Result *FileResult
	Err    error
}

// ParallelConvert converts work items using a pool of workers. Each file is
// read by exactly one worker. Results arrive in completion order; use
// OrderedCollect to consume them in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (c *Converter) ParallelConvert(ctx context.Context, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				r := WorkResult{Seq: item.Seq, Path: item.Path}
				if err := ctx.Err(); err != nil {
					r.Err = err
				} else {
					r.Result, r.Err = c.ConvertFile(item.Path)
				}
				results <- r
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// ConvertFiles converts paths concurrently and calls fn with each file's
// result in input order. Conversion errors are passed to fn rather than
// stopping the run; an error returned by fn stops it. Cancelling ctx makes
// the remaining files report ctx.Err().
func (c *Converter) ConvertFiles(ctx context.Context, paths []string, workers int, fn func(WorkResult) error) error {
	items := make(chan WorkItem)
	done := make(chan struct{})
	go func() {
		defer close(items)
		for i, p := range paths {
			select {
			case items <- WorkItem{Seq: i, Path: p}:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	stop := func() { once.Do(func() { close(done) }) }
	defer stop()

	return OrderedCollect(c.ParallelConvert(ctx, items, workers), func(r WorkResult) error {
		if err := fn(r); err != nil {
			stop()
			return err
		}
		return nil
	})
}
