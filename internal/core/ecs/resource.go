package ecs

import "fmt"

// InsertResource stores v under the static type T, replacing any previous
// value. T may be an interface type, in which case lookups must use the
// same interface type.
func InsertResource[T any](w *World, v T) {
	w.mu.Lock()
	w.resources[typeKey[T]()] = v
	w.mu.Unlock()
}

// Resource returns the resource stored under T.
func Resource[T any](w *World) (T, bool) {
	w.mu.RLock()
	v, ok := w.resources[typeKey[T]()]
	w.mu.RUnlock()
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// MustResource is Resource for callers that treat absence as a bug.
func MustResource[T any](w *World) T {
	v, ok := Resource[T](w)
	if !ok {
		panic(fmt.Sprintf("ecs: resource %s not present", typeKey[T]()))
	}
	return v
}

// RemoveResource deletes the resource stored under T and reports whether
// one was present.
func RemoveResource[T any](w *World) bool {
	t := typeKey[T]()
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.resources[t]; !ok {
		return false
	}
	delete(w.resources, t)
	return true
}
