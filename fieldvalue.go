package flexrec

import (
	"fmt"
	"unsafe"
)

// FieldValue is an 8-byte untagged union of scalar kinds, laid out like
//
//	union { int64_t long; int32_t int; float f; double d; int8_t byte; uint32_t ref; }
//
// in native byte order. It records no tag: callers track which kind is
// active. The zero value is the "invalid" marker. Setting a narrower kind
// only overwrites that kind's leading bytes, as a C union would.
type FieldValue struct {
	bits uint64
}

// Invalid returns a value holding no meaningful kind.
func Invalid() FieldValue { return FieldValue{} }

// LongValue returns a value whose long member is v.
func LongValue(v int64) FieldValue {
	var f FieldValue
	f.SetLong(v)
	return f
}

// IntValue returns a value whose int member is v.
func IntValue(v int32) FieldValue {
	var f FieldValue
	f.SetInt(v)
	return f
}

// FloatValue returns a value whose float member is v.
func FloatValue(v float32) FieldValue {
	var f FieldValue
	f.SetFloat(v)
	return f
}

// DoubleValue returns a value whose double member is v.
func DoubleValue(v float64) FieldValue {
	var f FieldValue
	f.SetDouble(v)
	return f
}

// ByteValue returns a value whose byte member is v.
func ByteValue(v int8) FieldValue {
	var f FieldValue
	f.SetByte(v)
	return f
}

// ReferenceValue returns a value whose reference member is v.
func ReferenceValue(v uint32) FieldValue {
	var f FieldValue
	f.SetReference(v)
	return f
}

// Getters read the named member from the leading bytes of the storage.
func (f FieldValue) Long() int64       { return *(*int64)(unsafe.Pointer(&f.bits)) }
func (f FieldValue) Int() int32        { return *(*int32)(unsafe.Pointer(&f.bits)) }
func (f FieldValue) Float() float32    { return *(*float32)(unsafe.Pointer(&f.bits)) }
func (f FieldValue) Double() float64   { return *(*float64)(unsafe.Pointer(&f.bits)) }
func (f FieldValue) Byte() int8        { return *(*int8)(unsafe.Pointer(&f.bits)) }
func (f FieldValue) Reference() uint32 { return *(*uint32)(unsafe.Pointer(&f.bits)) }

func (f *FieldValue) SetLong(v int64)       { *(*int64)(unsafe.Pointer(&f.bits)) = v }
func (f *FieldValue) SetInt(v int32)        { *(*int32)(unsafe.Pointer(&f.bits)) = v }
func (f *FieldValue) SetFloat(v float32)    { *(*float32)(unsafe.Pointer(&f.bits)) = v }
func (f *FieldValue) SetDouble(v float64)   { *(*float64)(unsafe.Pointer(&f.bits)) = v }
func (f *FieldValue) SetByte(v int8)        { *(*int8)(unsafe.Pointer(&f.bits)) = v }
func (f *FieldValue) SetReference(v uint32) { *(*uint32)(unsafe.Pointer(&f.bits)) = v }

// Bits returns the raw storage.
func (f FieldValue) Bits() uint64 { return f.bits }

// IsInvalid reports whether every byte of the value is zero.
func (f FieldValue) IsInvalid() bool { return f.bits == 0 }

func (f FieldValue) String() string {
	return fmt.Sprintf("FieldValue(%#016x)", f.bits)
}
