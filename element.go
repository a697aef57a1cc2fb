package flexrec

import (
	"fmt"
	"reflect"
	"sync"
)

// Releaser is implemented by element types that own resources outside the
// record, such as a handle into another table. When a record is freed, each
// element is read out of its slot in index order and Release is called on it.
type Releaser interface {
	Release()
}

// elemChecks caches the verdict of checkElem per element type.
var elemChecks sync.Map // reflect.Type -> error

// checkElem rejects element types the garbage collector would need to scan.
// Records store elements in raw byte memory that is never scanned, so a
// pointer kept there would not keep its target alive.
func checkElem[T any]() error {
	t := elemType[T]()
	if v, ok := elemChecks.Load(t); ok {
		if v == nil {
			return nil
		}
		return v.(error)
	}
	var err error
	if hasPointers(t) {
		err = fmt.Errorf("%w: %v contains pointers", ErrUnsupportedElement, t)
	}
	elemChecks.Store(t, err)
	return err
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
