package reduce

import (
	"github.com/stackhpc/reductionist-go/internal/array"
	"github.com/stackhpc/reductionist-go/internal/cmn"
)

// prepared bundles the per-request state shared by every operation:
// the typed view, resolved selection, and narrowed missing descriptor.
type prepared[T cmn.Element] struct {
	view    *array.View[T]
	sel     []array.AxisSlice
	missing *cmn.Missing[T]
}

func prepare[T cmn.Element](req *cmn.RequestData, data []byte) (*prepared[T], error) {
	view, err := array.BuildArrayFromBytes[T](data, req.Shape, req.Order)
	if err != nil {
		return nil, err
	}
	sel, err := array.BuildSliceInfo(req.Selection, view.Shape())
	if err != nil {
		return nil, err
	}
	array.ReverseByteOrder(view, sel, req.EffectiveByteOrder())

	var missing *cmn.Missing[T]
	if req.Missing != nil {
		m, err := cmn.NarrowMissing[T](req.Missing)
		if err != nil {
			return nil, err
		}
		missing = &m
	}

	if err := req.Axis.Validate(len(view.Shape())); err != nil {
		return nil, err
	}

	return &prepared[T]{view: view, sel: sel, missing: missing}, nil
}
