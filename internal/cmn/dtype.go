// Package cmn holds the wire-level types, numeric type system, and error
// taxonomy shared by every stage of the reduction pipeline: fetch, filter,
// array and reduce. It plays the same role here that cmn plays in the
// aistore tree it was adapted from — common low-level types with no
// dependency on any other internal package.
package cmn

import "fmt"

// DType is the enumerated element type of a stored array.
type DType string

const (
	Int32   DType = "int32"
	Int64   DType = "int64"
	Uint32  DType = "uint32"
	Uint64  DType = "uint64"
	Float32 DType = "float32"
	Float64 DType = "float64"
)

// Element is the set of concrete Go numeric types a DType can be reified as.
type Element interface {
	~int32 | ~int64 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// Size returns the element size in bytes for d.
func (d DType) Size() int {
	switch d {
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

func (d DType) Valid() bool {
	switch d {
	case Int32, Int64, Uint32, Uint64, Float32, Float64:
		return true
	default:
		return false
	}
}

func (d DType) String() string { return string(d) }

// UnmarshalJSON enforces the lowercase enum and rejects unknown variants,
// mirroring the strict deny-unknown-fields style of the original decoder.
func (d *DType) UnmarshalJSON(b []byte) error {
	var s string
	if err := jsonUnquote(b, &s); err != nil {
		return err
	}
	dt := DType(s)
	if !dt.Valid() {
		return fmt.Errorf("unknown dtype %q, expected one of int32, int64, uint32, uint64, float32, float64", s)
	}
	*d = dt
	return nil
}

// jsonUnquote decodes a JSON string literal without importing encoding/json
// here; the request body itself is decoded with json-iterator in
// server/handlers.go.
func jsonUnquote(b []byte, out *string) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("invalid dtype literal %q", b)
	}
	*out = string(b[1 : len(b)-1])
	return nil
}

// ByteOrder is the declared endianness of stored bytes.
type ByteOrder string

const (
	BigEndian    ByteOrder = "big"
	LittleEndian ByteOrder = "little"
)

func (b ByteOrder) Valid() bool {
	return b == BigEndian || b == LittleEndian
}

// Order is the in-memory storage order of a multi-dimensional array.
type Order string

const (
	OrderC Order = "C"
	OrderF Order = "F"
)

func (o Order) Valid() bool {
	return o == "" || o == OrderC || o == OrderF
}
