// Package handle provides single-owner slots for resources that must be
// released before they are replaced.
package handle

import (
	"errors"
	"sync"
)

// Owner holds at most one live value of T. The value is only changed
// through Replace and Release, and the previous value is always released
// before a new one is created.
type Owner[T any] struct {
	mu      sync.RWMutex
	value   T
	live    bool
	release func(T) error

	created  int64
	released int64
}

// NewOwner creates an empty owner that frees values with release
func NewOwner[T any](release func(T) error) *Owner[T] {
	return &Owner[T]{release: release}
}

// Get returns the live value, if any
func (o *Owner[T]) Get() (T, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value, o.live
}

// Live reports whether a value is held
func (o *Owner[T]) Live() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.live
}

// Replace releases the current value and stores the result of create.
// When create fails the owner is left empty. A release error does not
// stop the replacement; it is returned joined with any create error.
func (o *Owner[T]) Replace(create func() (T, error)) (T, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	releaseErr := o.releaseLocked()

	v, err := create()
	if err != nil {
		var zero T
		return zero, errors.Join(err, releaseErr)
	}
	o.value = v
	o.live = true
	o.created++
	return v, releaseErr
}

// Release frees the current value. Releasing an empty owner is a no-op.
func (o *Owner[T]) Release() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.releaseLocked()
}

func (o *Owner[T]) releaseLocked() error {
	if !o.live {
		return nil
	}
	v := o.value
	var zero T
	o.value = zero
	o.live = false
	o.released++
	if o.release == nil {
		return nil
	}
	return o.release(v)
}

// Counts returns how many values were created and released
func (o *Owner[T]) Counts() (created, released int64) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.created, o.released
}
