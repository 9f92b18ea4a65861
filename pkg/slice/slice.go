// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slice has the generic helpers used to shape response rows.
package slice

// Map returns transform applied to each element of input, in order. An empty
// input yields an empty, non-nil slice.
func Map[In, Out any](input []In, transform func(In) Out) []Out {
	out := make([]Out, 0, len(input))
	for _, item := range input {
		out = append(out, transform(item))
	}
	return out
}

// Reduce folds input left to right starting from seed.
func Reduce[In, Acc any](input []In, seed Acc, step func(Acc, In) Acc) Acc {
	for _, item := range input {
		seed = step(seed, item)
	}
	return seed
}
