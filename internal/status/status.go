// Package status maps request lifecycle states onto the boolean flags the UI
// renders against.
package status

import "reflect"

// RequestStatus is the fetch progress of a cached resource.
type RequestStatus string

const (
	Idle      RequestStatus = "idle"
	Loading   RequestStatus = "loading"
	Succeeded RequestStatus = "succeeded"
	Failed    RequestStatus = "failed"
)

// Valid reports whether s is one of the four lifecycle values.
func (s RequestStatus) Valid() bool {
	switch s {
	case Idle, Loading, Succeeded, Failed:
		return true
	}
	return false
}

func (s RequestStatus) String() string {
	if s == "" {
		return string(Idle)
	}
	return string(s)
}

// Flags are the derived UI flags for a resource.
type Flags struct {
	IsIdle    bool
	IsLoading bool
	HasError  bool
	IsLoaded  bool
	IsEmpty   bool
}

// Derive computes flags from a lifecycle status and the data attached to it.
// IsEmpty is only ever true for a succeeded resource.
func Derive(s RequestStatus, data any) Flags {
	return flags(s, IsEmptyShape(data))
}

// DeriveList is Derive for slice data without reflection.
func DeriveList[T any](s RequestStatus, list []T) Flags {
	return flags(s, len(list) == 0)
}

// DeriveItem is Derive for a single optional item without reflection.
func DeriveItem[T any](s RequestStatus, item *T) Flags {
	return flags(s, item == nil)
}

func flags(s RequestStatus, empty bool) Flags {
	loaded := s == Succeeded
	return Flags{
		IsIdle:    s == Idle || s == "",
		IsLoading: s == Loading,
		HasError:  s == Failed,
		IsLoaded:  loaded,
		IsEmpty:   loaded && empty,
	}
}

// IsEmptyShape reports whether data carries nothing to show: nil, a nil
// pointer, an empty slice, array, map or channel, or a struct type with no
// fields. Pointers are followed. Any other value is non-empty.
func IsEmptyShape(data any) bool {
	if data == nil {
		return true
	}
	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return true
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Chan:
		return v.IsNil() || v.Len() == 0
	case reflect.Array:
		return v.Len() == 0
	case reflect.Struct:
		return v.NumField() == 0
	case reflect.Func:
		return v.IsNil()
	}
	return false
}
