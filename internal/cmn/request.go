package cmn

import (
	"fmt"
	"net/url"
)

// Credentials is HTTP basic auth as presented by the client, forwarded
// unchanged to the storage origin. Zero value means "no auth".
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Empty() bool { return c.Username == "" && c.Password == "" }

// RequestData is the validated POST body accepted by every /v1/* endpoint.
// It is the one schema served at the well-known reductionist-schema path.
// Axis is not decoded from the JSON body (its tag is "-"): Validate sets it
// to AxisAll when unset, so a request decoded from JSON always reduces over
// all axes.
type RequestData struct {
	Source     string         `json:"source"`
	Bucket     string         `json:"bucket"`
	Object     string         `json:"object"`
	DType      DType          `json:"dtype"`
	ByteOrder  *ByteOrder     `json:"byte_order,omitempty"`
	Offset     *uint32        `json:"offset,omitempty"`
	Size       *uint32        `json:"size,omitempty"`
	Shape      []uint32       `json:"shape,omitempty"`
	Order      Order          `json:"order,omitempty"`
	Selection  []Slice        `json:"selection,omitempty"`
	Axis       *ReductionAxes `json:"-"`
	Compression Compression   `json:"compression,omitempty"`
	Filters    []Filter       `json:"filters,omitempty"`
	Missing    *WireMissing   `json:"missing,omitempty"`

	// parsed out of Source at validation time
	SourceURL *url.URL `json:"-"`
}

// Validate checks structural invariants not already enforced by JSON
// decoding (non-empty bucket/object, shape/selection rank match, etc), the
// same role cmn.DlBody.Validate plays for its request type in the teacher.
func (r *RequestData) Validate() error {
	if r.Source == "" {
		return NewError(KindValidationError, "source must not be empty")
	}
	u, err := url.Parse(r.Source)
	if err != nil {
		return NewError(KindValidationError, "invalid source URL: %v", err)
	}
	switch u.Scheme {
	case "http", "https", "s3":
	default:
		return NewError(KindUnsupportedInterfaceType, "unsupported URL scheme %q", u.Scheme)
	}
	r.SourceURL = u

	if r.Bucket == "" {
		return NewError(KindValidationError, "bucket must not be empty")
	}
	if r.Object == "" {
		return NewError(KindValidationError, "object must not be empty")
	}
	if !r.DType.Valid() {
		return NewError(KindValidationError, "unknown dtype %q", r.DType)
	}
	if r.ByteOrder != nil && !r.ByteOrder.Valid() {
		return NewError(KindValidationError, "unknown byte_order %q", *r.ByteOrder)
	}
	if r.Size != nil && *r.Size < 1 {
		return NewError(KindValidationError, "size must be greater than 0")
	}
	if r.Shape != nil && len(r.Shape) == 0 {
		return NewError(KindValidationError, "shape length must be greater than 0")
	}
	if !r.Order.Valid() {
		return NewError(KindValidationError, "unknown order %q", r.Order)
	}
	if r.Selection != nil {
		if len(r.Selection) == 0 {
			return NewError(KindValidationError, "selection length must be greater than 0")
		}
		for i, s := range r.Selection {
			if err := s.Validate(); err != nil {
				return NewError(KindValidationError, "selection[%d]: %v", i, err)
			}
		}
	}
	if r.Shape != nil && r.Selection != nil && len(r.Shape) != len(r.Selection) {
		return NewError(KindValidationError, "shape and selection must have the same length")
	}
	if !r.Compression.Valid() {
		return NewError(KindValidationError, "unknown compression %q", r.Compression)
	}
	for i, f := range r.Filters {
		if err := f.Validate(); err != nil {
			return NewError(KindValidationError, "filters[%d]: %v", i, err)
		}
	}
	if r.Missing != nil {
		if err := r.Missing.Validate(); err != nil {
			return NewError(KindValidationError, "missing: %v", err)
		}
	}
	if r.Axis == nil {
		r.Axis = &ReductionAxes{Kind: AxisAll}
	}
	return nil
}

// EffectiveByteOrder returns the request's declared byte order, defaulting
// to the host's native order when unset.
func (r *RequestData) EffectiveByteOrder() ByteOrder {
	if r.ByteOrder != nil {
		return *r.ByteOrder
	}
	return NativeByteOrder()
}

func (r *RequestData) String() string {
	return fmt.Sprintf("source=%s bucket=%s object=%s dtype=%s", r.Source, r.Bucket, r.Object, r.DType)
}
