package concurrent

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// PanicError carries a panic recovered from a worker goroutine.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker panic: %v", e.Value)
}

// Workers normalizes a configured worker count. Non-positive values mean
// "one per available CPU".
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

// ForEach runs body for every index in [0, n), splitting the range into at most
// workers contiguous chunks, each processed on its own goroutine. It waits for
// all chunks to finish. The first error (or recovered panic) is returned.
//
// The worker argument passed to body is stable within a chunk and lies in
// [0, workers), so callers can index per-worker scratch space with it.
func ForEach(n, workers int, body func(worker, i int) error) error {
	if n <= 0 {
		return nil
	}
	workers = Workers(workers)
	if workers > n {
		workers = n
	}
	if workers == 1 {
		return runChunk(0, 0, n, body)
	}

	chunk := (n + workers - 1) / workers
	g := errgroup.Group{}
	for w := 0; w < workers; w++ {
		lo := w * chunk
		if lo >= n {
			break
		}
		hi := min(lo+chunk, n)
		g.Go(func() error {
			return runChunk(w, lo, hi, body)
		})
	}
	return g.Wait()
}

// Map applies fn to every index in parallel and returns the results in index
// order. Each slot is written by exactly one goroutine.
func Map[R any](n, workers int, fn func(worker, i int) R) ([]R, error) {
	out := make([]R, max(n, 0))
	err := ForEach(n, workers, func(worker, i int) error {
		out[i] = fn(worker, i)
		return nil
	})
	return out, err
}

// Reduce folds per-worker partial results into one value after a parallel
// pass. partial is indexed by the worker argument handed to ForEach.
func Reduce[T any, A any](partial []T, acc A, merge func(A, T) A) A {
	for _, p := range partial {
		acc = merge(acc, p)
	}
	return acc
}

func runChunk(worker, lo, hi int, body func(worker, i int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	for i := lo; i < hi; i++ {
		if err = body(worker, i); err != nil {
			return err
		}
	}
	return nil
}
