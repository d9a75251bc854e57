package cmn

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the error taxonomy that every recoverable failure in the pipeline
// is tagged with. The HTTP layer maps Kind to a status code and writes the
// error's message as a text/plain body; nothing is retried automatically.
type Kind int

const (
	KindValidationError Kind = iota
	KindEmptyArray
	KindShapeInvalid
	KindMinMax
	KindIncompatibleMissing
	KindUnsupportedInterfaceType
	KindForbidden
	KindHTTPRequestError
	KindHTTPContentLengthMissing
	KindS3NoSuchKey
	KindS3GetObject
	KindS3ByteStream
	KindDecompression
	KindFromBytes
	KindInsufficientMemory
	KindChunkCacheError
	KindTryFromInt
)

var kindStatus = map[Kind]int{
	KindValidationError:          http.StatusBadRequest,
	KindEmptyArray:                http.StatusBadRequest,
	KindShapeInvalid:              http.StatusBadRequest,
	KindMinMax:                    http.StatusBadRequest,
	KindIncompatibleMissing:       http.StatusBadRequest,
	KindUnsupportedInterfaceType:  http.StatusBadRequest,
	KindForbidden:                 http.StatusForbidden,
	KindHTTPRequestError:          http.StatusBadGateway,
	KindHTTPContentLengthMissing:  http.StatusBadGateway,
	KindS3NoSuchKey:               http.StatusBadRequest,
	KindS3GetObject:               http.StatusInternalServerError,
	KindS3ByteStream:              http.StatusInternalServerError,
	KindDecompression:             http.StatusBadRequest,
	KindFromBytes:                 http.StatusInternalServerError,
	KindInsufficientMemory:        http.StatusBadRequest,
	KindChunkCacheError:           http.StatusInternalServerError,
	KindTryFromInt:                http.StatusInternalServerError,
}

func (k Kind) Status() int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func (k Kind) String() string {
	switch k {
	case KindValidationError:
		return "ValidationError"
	case KindEmptyArray:
		return "EmptyArray"
	case KindShapeInvalid:
		return "ShapeInvalid"
	case KindMinMax:
		return "MinMax"
	case KindIncompatibleMissing:
		return "IncompatibleMissing"
	case KindUnsupportedInterfaceType:
		return "UnsupportedInterfaceType"
	case KindForbidden:
		return "Forbidden"
	case KindHTTPRequestError:
		return "HTTPRequestError"
	case KindHTTPContentLengthMissing:
		return "HTTPContentLengthMissing"
	case KindS3NoSuchKey:
		return "S3GetObject(NoSuchKey)"
	case KindS3GetObject:
		return "S3GetObject"
	case KindS3ByteStream:
		return "S3ByteStream"
	case KindDecompression:
		return "Decompression"
	case KindFromBytes:
		return "FromBytes"
	case KindInsufficientMemory:
		return "InsufficientMemory"
	case KindChunkCacheError:
		return "ChunkCacheError"
	case KindTryFromInt:
		return "TryFromInt"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type carried through the pipeline. It pairs a
// Kind (which determines HTTP status) with a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// StatusOf maps any error to an HTTP status code. Errors not tagged with a
// Kind (e.g. bugs reaching the handler as plain errors) map to 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.Status()
	}
	return http.StatusInternalServerError
}

// sentinel errors used with errors.Is/errors.Wrap-style wrapping in the
// numeric narrowing code, where constructing a full *Error per comparison
// would be wasteful.
var (
	ErrIncompatibleMissing = NewError(KindIncompatibleMissing, "incompatible missing value")
	ErrEmptyArray          = NewError(KindEmptyArray, "cannot perform operation on empty array or selection")
	ErrShapeInvalid        = NewError(KindShapeInvalid, "invalid array shape")
	ErrMinMax              = NewError(KindMinMax, "undefined order (NaN) encountered during min/max")
	ErrForbidden           = NewError(KindForbidden, "origin authorization denied")
)
