package dutil

import "reflect"

// Dataset is an ordered collection of samples addressable by index.
type Dataset interface {
	// Item returns the sample at idx.
	Item(idx int) (interface{}, error)
	// Len returns the number of samples.
	Len() int
	// DType returns the sample element type.
	DType() reflect.Type
}
