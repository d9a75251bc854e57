// Package filters implements the decompression and de-filtering stages of
// the decode pipeline: gzip/zlib decompression (via klauspost/compress, the
// teacher's own drop-in replacement for the standard library packages of
// the same name) followed by inverse byte-shuffle. Grounded directly on
// original_source/src/filters/shuffle.rs and compression.rs.
package filters

import "fmt"

// Deshuffle inverts the HDF5/Zarr-style byte shuffle filter. For N = len /
// elementSize elements of elementSize bytes, the byte at output position
// i*elementSize+b is taken from input position b*N+i. The inner loop is
// unrolled for elementSize 4 and 8, matching the ~50% wall-clock
// improvement measured in the reference benchmark suite.
func Deshuffle(data []byte, elementSize int) ([]byte, error) {
	if elementSize < 1 {
		return nil, fmt.Errorf("filters: element_size must be positive, got %d", elementSize)
	}
	if len(data)%elementSize != 0 {
		return nil, fmt.Errorf("filters: data length %d is not a multiple of element_size %d", len(data), elementSize)
	}
	result := make([]byte, len(data))
	numElements := len(data) / elementSize
	destIndex := 0

	switch elementSize {
	case 4:
		for i := 0; i < numElements; i++ {
			srcIndex := i
			result[destIndex] = data[srcIndex]
			srcIndex += numElements
			destIndex++
			result[destIndex] = data[srcIndex]
			srcIndex += numElements
			destIndex++
			result[destIndex] = data[srcIndex]
			srcIndex += numElements
			destIndex++
			result[destIndex] = data[srcIndex]
			destIndex++
		}
	case 8:
		for i := 0; i < numElements; i++ {
			srcIndex := i
			for b := 0; b < 7; b++ {
				result[destIndex] = data[srcIndex]
				srcIndex += numElements
				destIndex++
			}
			result[destIndex] = data[srcIndex]
			destIndex++
		}
	default:
		for i := 0; i < numElements; i++ {
			srcIndex := i
			for b := 0; b < elementSize; b++ {
				result[destIndex] = data[srcIndex]
				srcIndex += numElements
				destIndex++
			}
		}
	}
	return result, nil
}

// Shuffle applies the forward byte shuffle. Not needed by the server on any
// request path, but kept (as in the reference source, gated to its test
// module) because it is the most direct way to build round-trip test
// fixtures for Deshuffle.
func Shuffle(data []byte, elementSize int) ([]byte, error) {
	if elementSize < 1 {
		return nil, fmt.Errorf("filters: element_size must be positive, got %d", elementSize)
	}
	if len(data)%elementSize != 0 {
		return nil, fmt.Errorf("filters: data length %d is not a multiple of element_size %d", len(data), elementSize)
	}
	result := make([]byte, 0, len(data))
	numElements := len(data) / elementSize
	for b := 0; b < elementSize; b++ {
		srcIndex := b
		for i := 0; i < numElements; i++ {
			result = append(result, data[srcIndex])
			srcIndex += elementSize
		}
	}
	return result, nil
}
