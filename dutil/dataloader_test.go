package dutil_test

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sugarme/useg/dutil"
)

// intDataset yields idx*10 for each index, with an optional per-item delay
// to exercise the worker pool, and an optional failing index.
type intDataset struct {
	n       int
	delay   time.Duration
	failIdx int // -1 disables
}

func (d *intDataset) Item(idx int) (interface{}, error) {
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if idx == d.failIdx {
		return nil, fmt.Errorf("broken item %v", idx)
	}
	return idx * 10, nil
}

func (d *intDataset) Len() int {
	return d.n
}

func (d *intDataset) DType() reflect.Type {
	return reflect.TypeOf(int(0))
}

func collect(t *testing.T, dl *dutil.DataLoader) []int {
	t.Helper()
	var all []int
	for dl.HasNext() {
		b, err := dl.Next()
		require.NoError(t, err)
		all = append(all, b.([]int)...)
	}
	return all
}

func sequential(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i * 10
	}
	return out
}

// Batches must arrive in sampler order even with concurrent decode
// workers.
func TestDataLoaderPreservesOrder(t *testing.T) {
	ds := &intDataset{n: 23, delay: time.Millisecond, failIdx: -1}
	s, err := dutil.NewBatchSampler(ds.Len(), 4, false, false)
	require.NoError(t, err)

	dl, err := dutil.NewDataLoader(ds, s, dutil.WithWorkers(6), dutil.WithPrefetch(3))
	require.NoError(t, err)

	require.Equal(t, sequential(23), collect(t, dl))
}

func TestDataLoaderSingleWorker(t *testing.T) {
	ds := &intDataset{n: 8, failIdx: -1}
	s, err := dutil.NewBatchSampler(ds.Len(), 2, false, false)
	require.NoError(t, err)

	dl, err := dutil.NewDataLoader(ds, s, dutil.WithWorkers(1), dutil.WithPrefetch(1))
	require.NoError(t, err)

	require.Equal(t, sequential(8), collect(t, dl))
}

func TestDataLoaderReset(t *testing.T) {
	ds := &intDataset{n: 10, failIdx: -1}
	s, err := dutil.NewBatchSampler(ds.Len(), 5, false, false)
	require.NoError(t, err)

	dl, err := dutil.NewDataLoader(ds, s)
	require.NoError(t, err)

	first := collect(t, dl)
	require.False(t, dl.HasNext())

	dl.Reset()
	require.True(t, dl.HasNext())
	require.Equal(t, first, collect(t, dl))
}

func TestDataLoaderShuffledBatchesCoverAll(t *testing.T) {
	ds := &intDataset{n: 12, failIdx: -1}
	s, err := dutil.NewBatchSampler(ds.Len(), 4, true, true)
	require.NoError(t, err)

	dl, err := dutil.NewDataLoader(ds, s, dutil.WithWorkers(3))
	require.NoError(t, err)

	all := collect(t, dl)
	require.Len(t, all, 12)
	require.ElementsMatch(t, sequential(12), all)
}

// An item error aborts its batch and surfaces from Next.
func TestDataLoaderItemError(t *testing.T) {
	ds := &intDataset{n: 6, failIdx: 5}
	s, err := dutil.NewBatchSampler(ds.Len(), 2, false, false)
	require.NoError(t, err)

	dl, err := dutil.NewDataLoader(ds, s, dutil.WithWorkers(2))
	require.NoError(t, err)

	b, err := dl.Next()
	require.NoError(t, err)
	require.Equal(t, []int{0, 10}, b.([]int))

	_, err = dl.Next()
	require.NoError(t, err)

	_, err = dl.Next()
	require.Error(t, err)
}

func TestDataLoaderRejectsBadOptions(t *testing.T) {
	ds := &intDataset{n: 6, failIdx: -1}
	s, err := dutil.NewBatchSampler(ds.Len(), 2, false, false)
	require.NoError(t, err)

	_, err = dutil.NewDataLoader(ds, s, dutil.WithWorkers(0))
	require.Error(t, err)

	_, err = dutil.NewDataLoader(ds, s, dutil.WithPrefetch(0))
	require.Error(t, err)
}
