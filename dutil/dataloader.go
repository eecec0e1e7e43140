package dutil

import (
	"fmt"
	"reflect"
)

const (
	defaultWorkers  = 4
	defaultPrefetch = 4
)

type batchResult struct {
	batch interface{}
	err   error
}

// DataLoader iterates a Dataset in the order given by a Sampler. A bounded
// worker pool decodes index batches ahead of consumption, overlapping I/O
// with computation; batches are still delivered in sampler order.
type DataLoader struct {
	ds       Dataset
	sampler  Sampler
	workers  int
	prefetch int

	batches [][]int
	results []chan batchResult
	sem     chan struct{}
	quit    chan struct{}
	cursor  int
}

// LoaderOption configures a DataLoader.
type LoaderOption func(*DataLoader)

// WithWorkers sets the number of decode workers.
func WithWorkers(n int) LoaderOption {
	return func(dl *DataLoader) {
		dl.workers = n
	}
}

// WithPrefetch sets how many decoded batches may be buffered ahead of the
// consumer.
func WithPrefetch(n int) LoaderOption {
	return func(dl *DataLoader) {
		dl.prefetch = n
	}
}

// NewDataLoader creates a DataLoader over ds in the order given by s and
// starts its prefetch pipeline.
func NewDataLoader(ds Dataset, s Sampler, opts ...LoaderOption) (*DataLoader, error) {
	dl := &DataLoader{
		ds:       ds,
		sampler:  s,
		workers:  defaultWorkers,
		prefetch: defaultPrefetch,
	}
	for _, o := range opts {
		o(dl)
	}

	if dl.workers < 1 {
		return nil, fmt.Errorf("Invalid worker count: %v\n", dl.workers)
	}
	if dl.prefetch < 1 {
		return nil, fmt.Errorf("Invalid prefetch depth: %v\n", dl.prefetch)
	}

	dl.start()

	return dl, nil
}

// start builds a fresh pipeline over a new round of sampler batches.
func (dl *DataLoader) start() {
	dl.batches = dl.sampler.BatchIndexes()
	dl.cursor = 0
	dl.quit = make(chan struct{})
	// In flight plus buffered batches are capped at workers + prefetch.
	dl.sem = make(chan struct{}, dl.workers+dl.prefetch)
	dl.results = make([]chan batchResult, len(dl.batches))
	for i := range dl.results {
		dl.results[i] = make(chan batchResult, 1)
	}

	results := dl.results
	batches := dl.batches

	jobs := make(chan int)
	go func(quit chan struct{}, sem chan struct{}) {
		defer close(jobs)
		for i := range batches {
			select {
			case <-quit:
				return
			case sem <- struct{}{}:
			}
			select {
			case <-quit:
				return
			case jobs <- i:
			}
		}
	}(dl.quit, dl.sem)

	for w := 0; w < dl.workers; w++ {
		go func() {
			for i := range jobs {
				results[i] <- dl.loadBatch(batches[i])
			}
		}()
	}
}

// loadBatch decodes one index batch and packs it into a typed slice so
// callers can assert the concrete sample type (e.g. []data.Sample).
func (dl *DataLoader) loadBatch(indexes []int) batchResult {
	items := make([]interface{}, len(indexes))
	for k, idx := range indexes {
		it, err := dl.ds.Item(idx)
		if err != nil {
			return batchResult{err: err}
		}
		items[k] = it
	}

	slice := reflect.MakeSlice(reflect.SliceOf(reflect.TypeOf(items[0])), 0, len(items))
	for _, it := range items {
		slice = reflect.Append(slice, reflect.ValueOf(it))
	}

	return batchResult{batch: slice.Interface()}
}

// HasNext reports whether undelivered batches remain in this round.
func (dl *DataLoader) HasNext() bool {
	return dl.cursor < len(dl.batches)
}

// Next delivers the next batch in sampler order. An item error aborts the
// batch and surfaces here.
func (dl *DataLoader) Next() (interface{}, error) {
	if !dl.HasNext() {
		return nil, fmt.Errorf("No more batches. Call Reset() to start a new round.\n")
	}

	res := <-dl.results[dl.cursor]
	dl.cursor++
	<-dl.sem

	if res.err != nil {
		return nil, res.err
	}
	return res.batch, nil
}

// Reset tears down the current pipeline and starts a new round,
// re-shuffling when the sampler shuffles.
func (dl *DataLoader) Reset() {
	close(dl.quit)
	dl.start()
}
