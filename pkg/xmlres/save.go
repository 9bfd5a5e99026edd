package xmlres

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	ecoreerrors "github.com/jacoelho/ecore/errors"
	"github.com/jacoelho/ecore/internal/xmlbuf"
	"github.com/jacoelho/ecore/pkg/model"
	"github.com/jacoelho/ecore/pkg/resource"
)

type fragmenter interface {
	FragmentOf(o *model.Object) string
}

// saver writes one resource. It keeps per-session caches of feature kinds
// and package prefixes.
type saver struct {
	res           *resource.Resource
	buf           *xmlbuf.Buffer
	kinds         map[model.Feature]saveKind
	packages      map[*model.Package]string
	prefixToURI   map[string]string
	uriToPrefixes map[string][]string
	prefixOrder   []string
	keepDefaults  bool
	xmi           bool
}

func newSaver(res *resource.Resource, opts Options) *saver {
	return &saver{
		res:           res,
		buf:           xmlbuf.New(),
		kinds:         map[model.Feature]saveKind{},
		packages:      map[*model.Package]string{},
		prefixToURI:   map[string]string{},
		uriToPrefixes: map[string][]string{},
		keepDefaults:  opts.KeepDefaults,
		xmi:           opts.XMI,
	}
}

func (s *saver) save(w io.Writer) error {
	roots := s.res.Contents().BasicObjects()
	if len(roots) == 0 {
		return nil
	}
	s.buf.Add(`<?xml version="1.0" encoding="UTF-8"?>`)
	s.buf.AddLine()

	var mark xmlbuf.Mark
	if s.xmi && len(roots) > 1 {
		s.buf.StartElement(xmiPrefix + ":XMI")
		mark = s.saveVersion()
		for _, root := range roots {
			s.buf.StartElement(s.classQName(root.Class()))
			s.saveElementID(root)
			s.saveFeatures(root, false)
		}
		s.buf.EndElement()
	} else {
		if len(roots) > 1 {
			s.res.AddWarning(ecoreerrors.NewDiagnostic(ecoreerrors.ErrUnsavedContent,
				fmt.Sprintf("only the first of %d root objects is saved", len(roots)), s.location()))
		}
		mark = s.saveTopObject(roots[0])
	}

	s.buf.ResetToMark(mark)
	s.saveNamespaces()
	_, err := s.buf.WriteTo(w)
	return err
}

func (s *saver) location() string { return s.res.URI().String() }

func (s *saver) saveTopObject(o *model.Object) xmlbuf.Mark {
	s.buf.StartElement(s.classQName(o.Class()))
	var mark xmlbuf.Mark
	if s.xmi {
		mark = s.saveVersion()
	} else {
		mark = s.buf.Mark()
	}
	s.saveElementID(o)
	s.saveFeatures(o, false)
	return mark
}

func (s *saver) saveVersion() xmlbuf.Mark {
	s.buf.AddAttribute(xmiPrefix+":version", XMIVersion)
	s.declare(xmiPrefix, XMINamespace)
	return s.buf.Mark()
}

func (s *saver) saveNamespaces() {
	for _, p := range s.prefixOrder {
		if p == "" {
			s.buf.AddAttribute("xmlns", s.prefixToURI[p])
			continue
		}
		s.buf.AddAttribute("xmlns:"+p, s.prefixToURI[p])
	}
}

func (s *saver) saveElementID(o *model.Object) {
	if !s.xmi {
		return
	}
	if id := s.res.ID(o); id != "" {
		s.buf.AddAttribute(xmiPrefix+":id", id)
	}
}

func (s *saver) kind(f model.Feature) saveKind {
	k, ok := s.kinds[f]
	if !ok {
		k = classifySave(f)
		s.kinds[f] = k
	}
	return k
}

func (s *saver) shouldSave(o *model.Object, f model.Feature) bool {
	if o.IsSet(f) {
		return true
	}
	a, ok := f.(*model.Attribute)
	return s.keepDefaults && ok && a.HasDefault()
}

// saveFeatures writes the attributes of o, then its element content, and
// closes its element.
func (s *saver) saveFeatures(o *model.Object, attributesOnly bool) {
	var elements []model.Feature
	for _, f := range o.Class().AllFeatures() {
		k := s.kind(f)
		if k == kindTransient || !s.shouldSave(o, f) {
			continue
		}
		switch k {
		case kindDataSingle:
			s.saveDataTypeSingle(o, f)
			continue
		case kindDataSingleNillable:
			if !isNil(o, f) {
				s.saveDataTypeSingle(o, f)
				continue
			}
		case kindContainManyUnsettable, kindDataMany:
			if isEmpty(o, f) {
				s.saveManyEmpty(f)
				continue
			}
		case kindContainSingle, kindContainSingleUnsettable, kindContainMany:
		case kindHRefSingle, kindHRefSingleUnsettable:
			if k == kindHRefSingleUnsettable && isNil(o, f) {
				break
			}
			switch s.resourceKindSingle(o, f) {
			case resourceSame:
				s.saveIDRefSingle(o, f)
				continue
			case resourceSkip:
				continue
			}
		case kindHRefMany, kindHRefManyUnsettable:
			if k == kindHRefManyUnsettable && isEmpty(o, f) {
				s.saveManyEmpty(f)
				continue
			}
			switch s.resourceKindMany(o, f) {
			case resourceSame:
				s.saveIDRefMany(o, f)
				continue
			case resourceSkip:
				continue
			}
		default:
			continue
		}
		if attributesOnly {
			continue
		}
		elements = append(elements, f)
	}
	if len(elements) == 0 {
		s.buf.EndEmptyElement()
		return
	}
	for _, f := range elements {
		switch s.kind(f) {
		case kindDataSingleNillable:
			s.saveNil(f)
		case kindDataMany:
			s.saveDataTypeMany(o, f)
		case kindContainSingle, kindContainSingleUnsettable:
			if isNil(o, f) {
				s.saveNil(f)
				continue
			}
			s.saveContainedSingle(o, f)
		case kindContainMany, kindContainManyUnsettable:
			s.saveContainedMany(o, f)
		case kindHRefSingle, kindHRefSingleUnsettable:
			if isNil(o, f) {
				s.saveNil(f)
				continue
			}
			s.saveHRefSingle(o, f)
		case kindHRefMany, kindHRefManyUnsettable:
			s.saveHRefMany(o, f)
		}
	}
	s.buf.EndElement()
}

func isNil(o *model.Object, f model.Feature) bool {
	return o.GetResolve(f, false) == nil
}

func isEmpty(o *model.Object, f model.Feature) bool {
	return o.List(f).Len() == 0
}

func (s *saver) convert(f model.Feature, v any) (string, bool) {
	d := f.(*model.Attribute).DataType()
	var (
		str string
		err error
	)
	if p := d.Package(); p != nil && p.Factory() != nil {
		str, err = p.Factory().ConvertToString(d, v)
	} else {
		str, err = d.ConvertToString(v)
	}
	if err != nil {
		s.res.AddError(ecoreerrors.NewDiagnostic(ecoreerrors.ErrValueConversion,
			fmt.Sprintf("feature %s: %v", f.Name(), err), s.location()))
		return "", false
	}
	return str, true
}

func (s *saver) saveDataTypeSingle(o *model.Object, f model.Feature) {
	v := o.GetResolve(f, false)
	if v == nil {
		return
	}
	if str, ok := s.convert(f, v); ok {
		s.buf.AddAttribute(f.Name(), str)
	}
}

func (s *saver) saveDataTypeMany(o *model.Object, f model.Feature) {
	for _, v := range o.List(f).Values() {
		if v == nil {
			s.saveNil(f)
			continue
		}
		if str, ok := s.convert(f, v); ok {
			s.buf.AddContent(f.Name(), str)
		}
	}
}

func (s *saver) saveManyEmpty(f model.Feature) {
	s.buf.AddAttribute(f.Name(), "")
}

func (s *saver) saveNil(f model.Feature) {
	s.declare(xsiPrefix, XSINamespace)
	s.buf.AddNil(f.Name())
}

func (s *saver) saveContainedSingle(o *model.Object, f model.Feature) {
	if child, _ := o.GetResolve(f, false).(*model.Object); child != nil {
		s.saveObject(child, f)
	}
}

func (s *saver) saveContainedMany(o *model.Object, f model.Feature) {
	for _, child := range o.List(f).BasicObjects() {
		s.saveObject(child, f)
	}
}

func (s *saver) saveObject(o *model.Object, f model.Feature) {
	if o.IsProxy() || o.DirectResource() != nil {
		s.saveHRef(o, f)
		return
	}
	s.buf.StartElement(f.Name())
	if c := o.Class(); model.Classifier(c) != f.Type() && c != model.EObject {
		s.saveTypeAttribute(c)
	}
	s.saveElementID(o)
	s.saveFeatures(o, false)
}

func (s *saver) saveTypeAttribute(c *model.Class) {
	s.declare(xsiPrefix, XSINamespace)
	s.buf.AddAttribute(xsiPrefix+":type", s.classQName(c))
}

func (s *saver) saveHRefSingle(o *model.Object, f model.Feature) {
	if target, _ := o.GetResolve(f, false).(*model.Object); target != nil {
		s.saveHRef(target, f)
	}
}

func (s *saver) saveHRefMany(o *model.Object, f model.Feature) {
	for _, target := range o.List(f).BasicObjects() {
		s.saveHRef(target, f)
	}
}

func (s *saver) saveHRef(o *model.Object, f model.Feature) {
	href := s.href(o)
	if href == "" {
		return
	}
	s.buf.StartElement(f.Name())
	if t, ok := f.Type().(*model.Class); ok && t != o.Class() && t.IsAbstract() {
		s.saveTypeAttribute(o.Class())
	}
	s.buf.AddAttribute(hrefAttr, href)
	s.buf.EndEmptyElement()
}

func (s *saver) saveIDRefSingle(o *model.Object, f model.Feature) {
	target, _ := o.GetResolve(f, false).(*model.Object)
	if target == nil {
		return
	}
	if id := s.idRef(target); id != "" {
		s.buf.AddAttribute(f.Name(), id)
	}
}

func (s *saver) saveIDRefMany(o *model.Object, f model.Feature) {
	var b strings.Builder
	for i, target := range o.List(f).BasicObjects() {
		id := s.idRef(target)
		if id == "" {
			return
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(id)
	}
	if b.Len() > 0 {
		s.buf.AddAttribute(f.Name(), b.String())
	}
}

func (s *saver) resourceKindSingle(o *model.Object, f model.Feature) resourceKind {
	target, _ := o.GetResolve(f, false).(*model.Object)
	switch {
	case target == nil:
		return resourceSkip
	case target.IsProxy():
		return resourceCross
	}
	if r := target.Resource(); r == nil || r == model.Resource(s.res) {
		return resourceSame
	}
	return resourceCross
}

func (s *saver) resourceKindMany(o *model.Object, f model.Feature) resourceKind {
	targets := o.List(f).BasicObjects()
	if len(targets) == 0 {
		return resourceSkip
	}
	for _, target := range targets {
		if target == nil {
			return resourceSkip
		}
		if target.IsProxy() {
			return resourceCross
		}
		if r := target.Resource(); r != nil && r != model.Resource(s.res) {
			return resourceCross
		}
	}
	return resourceSame
}

func (s *saver) href(o *model.Object) string {
	if o.IsProxy() {
		return o.ProxyURI().String()
	}
	r := o.Resource()
	if r == nil {
		return ""
	}
	fr, ok := r.(fragmenter)
	if !ok {
		return ""
	}
	return r.URI().WithFragment(fr.FragmentOf(o)).String()
}

func (s *saver) idRef(o *model.Object) string {
	frag := s.res.FragmentOf(o)
	if frag == "" {
		return ""
	}
	return "#" + frag
}

func (s *saver) classQName(c *model.Class) string {
	prefix := s.prefix(c.Package(), false)
	if prefix == "" {
		return c.Name()
	}
	return prefix + ":" + c.Name()
}

func (s *saver) declare(prefix, nsURI string) {
	if _, ok := s.prefixToURI[prefix]; ok {
		return
	}
	s.prefixToURI[prefix] = nsURI
	s.prefixOrder = append(s.prefixOrder, prefix)
	s.uriToPrefixes[nsURI] = append(s.uriToPrefixes[nsURI], prefix)
}

// prefix returns the namespace prefix used for p, allocating one on first
// use. A package prefix already bound to another namespace gets a "_N"
// suffix with the smallest free N.
func (s *saver) prefix(p *model.Package, mustHavePrefix bool) string {
	if p == nil {
		return ""
	}
	if prefix, ok := s.packages[p]; ok {
		return prefix
	}
	nsURI := p.NsURI()
	for _, prefix := range s.uriToPrefixes[nsURI] {
		if !mustHavePrefix || prefix != "" {
			s.packages[p] = prefix
			return prefix
		}
	}
	prefix := p.NsPrefix()
	if prefix == "" && mustHavePrefix {
		prefix = "_"
	}
	if bound, ok := s.prefixToURI[prefix]; ok && bound != nsURI {
		i := 1
		for {
			if _, taken := s.prefixToURI[prefix+"_"+strconv.Itoa(i)]; !taken {
				break
			}
			i++
		}
		prefix += "_" + strconv.Itoa(i)
	}
	s.declare(prefix, nsURI)
	s.packages[p] = prefix
	return prefix
}
