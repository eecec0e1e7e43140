package dutil

import (
	"fmt"
	"math/rand"
)

// Sampler generates the ordered index batches a DataLoader consumes.
type Sampler interface {
	BatchIndexes() [][]int
	BatchSize() int
}

// BatchSampler chunks dataset indexes into batches, optionally shuffled,
// optionally dropping a trailing incomplete batch.
type BatchSampler struct {
	n         int
	batchSize int
	dropLast  bool
	shuffle   bool
}

// NewBatchSampler creates a new BatchSampler.
func NewBatchSampler(n, batchSize int, dropLast, shuffle bool) (*BatchSampler, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("Invalid batch size: %v\n", batchSize)
	}
	if n < batchSize {
		return nil, fmt.Errorf("Batch size (%v) exceeds dataset size (%v)\n", batchSize, n)
	}

	return &BatchSampler{
		n:         n,
		batchSize: batchSize,
		dropLast:  dropLast,
		shuffle:   shuffle,
	}, nil
}

// BatchSize implements Sampler.
func (s *BatchSampler) BatchSize() int {
	return s.batchSize
}

// BatchIndexes implements Sampler. Each call generates a fresh permutation
// when shuffling is on.
func (s *BatchSampler) BatchIndexes() [][]int {
	indexes := make([]int, s.n)
	if s.shuffle {
		copy(indexes, rand.Perm(s.n))
	} else {
		for i := 0; i < s.n; i++ {
			indexes[i] = i
		}
	}

	var batches [][]int
	for start := 0; start < s.n; start += s.batchSize {
		end := start + s.batchSize
		if end > s.n {
			if s.dropLast {
				break
			}
			end = s.n
		}
		batches = append(batches, indexes[start:end])
	}

	return batches
}
