package xmlres

import "github.com/jacoelho/ecore/pkg/model"

// Common namespaces and attribute names.
const (
	XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"
	XMINamespace = "http://www.omg.org/XMI"
	XMIVersion   = "2.0"

	xsiPrefix = "xsi"
	xmiPrefix = "xmi"
	hrefAttr  = "href"
)

// saveKind classifies how a feature is written.
type saveKind uint8

const (
	kindTransient saveKind = iota
	kindDataSingle
	kindDataSingleNillable
	kindDataMany
	kindContainSingle
	kindContainSingleUnsettable
	kindContainMany
	kindContainManyUnsettable
	kindHRefSingle
	kindHRefSingleUnsettable
	kindHRefMany
	kindHRefManyUnsettable
)

func classifySave(f model.Feature) saveKind {
	if f.IsTransient() {
		return kindTransient
	}
	many, unsettable := f.IsMany(), f.IsUnsettable()
	switch x := f.(type) {
	case *model.Reference:
		switch {
		case x.IsContainment():
			return pick(many, unsettable, kindContainMany, kindContainManyUnsettable, kindContainSingle, kindContainSingleUnsettable)
		case x.IsContainer():
			return kindTransient
		default:
			return pick(many, unsettable, kindHRefMany, kindHRefManyUnsettable, kindHRefSingle, kindHRefSingleUnsettable)
		}
	case *model.Attribute:
		d := x.DataType()
		switch {
		case d == nil || !d.IsSerializable():
			return kindTransient
		case many:
			return kindDataMany
		case unsettable:
			return kindDataSingleNillable
		default:
			return kindDataSingle
		}
	}
	return kindTransient
}

func pick(many, unsettable bool, m, mu, s, su saveKind) saveKind {
	switch {
	case many && unsettable:
		return mu
	case many:
		return m
	case unsettable:
		return su
	default:
		return s
	}
}

// resourceKind tells where reference targets live relative to the saved
// resource.
type resourceKind uint8

const (
	resourceSkip resourceKind = iota
	resourceCross
	resourceSame
)

// loadKind classifies how a loaded value is stored.
type loadKind uint8

const (
	loadSingle loadKind = iota
	loadMany
	loadManyAdd
	loadManyMove
	loadOther
)

func classifyLoad(f model.Feature) loadKind {
	r, ok := f.(*model.Reference)
	if !ok {
		if f.IsMany() {
			return loadMany
		}
		return loadSingle
	}
	if !f.IsMany() {
		return loadOther
	}
	if op := r.Opposite(); op == nil || op.IsTransient() || !op.IsMany() {
		return loadManyAdd
	}
	return loadManyMove
}
