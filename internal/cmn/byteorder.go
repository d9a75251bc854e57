package cmn

import (
	"encoding/binary"
	"unsafe"
)

// NativeByteOrder reports the host's native byte order, used as the default
// when a request omits byte_order.
func NativeByteOrder() ByteOrder {
	var x uint16 = 1
	b := (*[2]byte)(unsafe.Pointer(&x))
	if b[0] == 1 {
		return LittleEndian
	}
	return BigEndian
}

// Binary maps a ByteOrder to the encoding/binary implementation used
// when packing response elements.
func (b ByteOrder) Binary() binary.ByteOrder {
	if b == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
