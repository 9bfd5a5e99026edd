package xmlres

import (
	"fmt"
	"strings"

	ecoreerrors "github.com/jacoelho/ecore/errors"
	"github.com/jacoelho/ecore/internal/nsstack"
	"github.com/jacoelho/ecore/internal/saxdrive"
	"github.com/jacoelho/ecore/pkg/model"
	"github.com/jacoelho/ecore/pkg/resource"
	"github.com/jacoelho/ecore/pkg/uri"
)

type frameKind uint8

const (
	frameSkip frameKind = iota
	frameObject
	frameData
	frameXMI
)

// frame is the state of one open element.
type frame struct {
	obj   *model.Object
	attr  *model.Attribute
	text  []byte
	kind  frameKind
	isNil bool
}

// proxyRef is a proxy addressing the document being loaded.
type proxyRef struct {
	holder  *model.Object
	feature model.Feature
	proxy   *model.Object
	line    int
	column  int
}

// deferredRef is an id token whose target was not known when it was read.
type deferredRef struct {
	holder  *model.Object
	feature *model.Reference
	id      string
	pos     int
	line    int
	column  int
}

// loader builds a resource's contents from document events. It is driven
// by saxdrive and never blocks.
type loader struct {
	res            *resource.Resource
	packages       *model.Registry
	locator        saxdrive.Locator
	prefixPackages map[string]*model.Package
	ns             nsstack.Stack
	elements       []string
	frames         []frame
	attrs          []saxdrive.Attr
	proxies        []proxyRef
	references     []deferredRef
	xmi            bool
	isPushContext  bool
}

func newLoader(res *resource.Resource, packages *model.Registry, xmi bool) *loader {
	return &loader{
		res:            res,
		packages:       packages,
		prefixPackages: map[string]*model.Package{},
		xmi:            xmi,
	}
}

func (l *loader) SetLocator(loc saxdrive.Locator) { l.locator = loc }

func (l *loader) StartDocument() {
	l.isPushContext = true
	l.ns.Push()
}

func (l *loader) EndDocument() {
	l.ns.Pop()
	l.handleReferences()
}

func (l *loader) StartPrefixMapping(prefix, nsURI string) {
	if l.isPushContext {
		l.ns.Push()
		l.isPushContext = false
	}
	delete(l.prefixPackages, prefix)
	l.ns.Declare(prefix, nsURI)
}

func (l *loader) EndPrefixMapping(string) {}

func (l *loader) StartElement(nsURI, local, qname string, attrs []saxdrive.Attr) {
	if l.isPushContext {
		l.ns.Push()
	}
	l.isPushContext = true
	l.attrs = attrs
	l.elements = append(l.elements, qname)

	prefix, _, _ := nsstack.SplitQName(qname)
	l.processElement(nsURI, prefix, local)
}

func (l *loader) Characters(text string) {
	if n := len(l.frames); n > 0 && l.frames[n-1].kind == frameData {
		l.frames[n-1].text = append(l.frames[n-1].text, text...)
	}
}

func (l *loader) EndElement(_, _, _ string) {
	fr := l.frames[len(l.frames)-1]
	l.frames = l.frames[:len(l.frames)-1]
	if fr.kind == frameData {
		l.finishData(fr)
	}
	l.elements = l.elements[:len(l.elements)-1]
	for _, d := range l.ns.Pop() {
		delete(l.prefixPackages, d.Prefix)
	}
}

// FatalError records the problem that stopped the load.
func (l *loader) FatalError(err *saxdrive.SyntaxError) {
	l.res.AddError(ecoreerrors.NewDiagnosticf(ecoreerrors.ErrFatalSyntax, l.location(), err.Line, err.Column, "%s", err.Msg))
}

func (l *loader) push(fr frame) { l.frames = append(l.frames, fr) }

func (l *loader) processElement(nsURI, prefix, local string) {
	if len(l.frames) == 0 && l.xmi && nsURI == XMINamespace && local == "XMI" {
		l.push(frame{kind: frameXMI})
		return
	}
	if len(l.frames) == 0 || l.frames[len(l.frames)-1].kind == frameXMI {
		o := l.createRoot(prefix, local)
		if o == nil {
			l.push(frame{kind: frameSkip})
			return
		}
		if err := l.res.Contents().Add(o); err != nil {
			l.error(ecoreerrors.ErrFeatureValue, err.Error())
		}
		l.push(frame{kind: frameObject, obj: o})
		return
	}
	l.handleFeature(local)
}

func (l *loader) createRoot(prefix, local string) *model.Object {
	p := l.packageFor(prefix)
	if p == nil {
		nsURI, _ := l.ns.Lookup(prefix)
		l.error(ecoreerrors.ErrUnknownPackage, fmt.Sprintf("Package %s not found", nsURI))
		return nil
	}
	return l.createObject(p, p.Classifier(local), local)
}

func (l *loader) packageFor(prefix string) *model.Package {
	if p, ok := l.prefixPackages[prefix]; ok {
		return p
	}
	nsURI, ok := l.ns.Lookup(prefix)
	if !ok {
		return nil
	}
	p := l.packages.Package(nsURI)
	if p != nil {
		l.prefixPackages[prefix] = p
	}
	return p
}

func (l *loader) createObject(p *model.Package, classifier model.Classifier, name string) *model.Object {
	c, ok := classifier.(*model.Class)
	if !ok || c == nil {
		l.error(ecoreerrors.ErrUnknownClass, fmt.Sprintf("Class %s not found in package %s", name, p.NsURI()))
		return nil
	}
	if c.IsAbstract() {
		l.error(ecoreerrors.ErrAbstractClass, fmt.Sprintf("Class %s is abstract", c.Name()))
		return nil
	}
	factory := c.Package().Factory()
	if factory == nil {
		factory = model.NewDynamicFactory(c.Package())
	}
	o, err := factory.Create(c)
	if err != nil {
		l.error(ecoreerrors.ErrUnknownClass, err.Error())
		return nil
	}
	l.handleAttributes(o)
	return o
}

func (l *loader) createFromFeatureType(r *model.Reference) *model.Object {
	c := r.ReferenceType()
	if c == nil {
		return nil
	}
	return l.createObject(c.Package(), c, c.Name())
}

func (l *loader) createFromTypeName(qname string) *model.Object {
	prefix, name, _ := nsstack.SplitQName(qname)
	p := l.packageFor(prefix)
	if p == nil {
		nsURI, _ := l.ns.Lookup(prefix)
		if nsURI == "" {
			nsURI = prefix
		}
		l.error(ecoreerrors.ErrUnknownPackage, fmt.Sprintf("Package %s not found", nsURI))
		return nil
	}
	return l.createObject(p, p.Classifier(name), name)
}

func (l *loader) handleFeature(local string) {
	top := l.frames[len(l.frames)-1]
	if top.kind != frameObject {
		l.push(frame{kind: frameSkip})
		return
	}
	o := top.obj
	f := o.Class().Feature(local)
	if f == nil {
		l.unknownFeature(local)
		l.push(frame{kind: frameSkip})
		return
	}
	switch f := f.(type) {
	case *model.Attribute:
		l.push(frame{kind: frameData, obj: o, attr: f, isNil: l.isXSINil()})
	case *model.Reference:
		if l.isXSINil() && !f.IsMany() {
			l.setFeatureValue(o, f, nil, -1)
			l.push(frame{kind: frameSkip})
			return
		}
		var child *model.Object
		if t := l.xsiType(); t != "" {
			child = l.createFromTypeName(t)
		} else {
			child = l.createFromFeatureType(f)
		}
		if child == nil {
			l.push(frame{kind: frameSkip})
			return
		}
		l.setFeatureValue(o, f, child, -1)
		if child.IsProxy() {
			l.trackProxy(o, f, child)
		}
		l.push(frame{kind: frameObject, obj: child})
	}
}

func (l *loader) attr(nsURI, local string) (string, bool) {
	for _, a := range l.attrs {
		if a.URI == nsURI && a.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

func (l *loader) xsiType() string {
	if t, ok := l.attr(XSINamespace, "type"); ok {
		return t
	}
	t, _ := l.attr(XMINamespace, "type")
	return t
}

func (l *loader) isXSINil() bool {
	v, _ := l.attr(XSINamespace, "nil")
	return v == "true"
}

func (l *loader) handleAttributes(o *model.Object) {
	for _, a := range l.attrs {
		switch {
		case a.URI == "" && a.Local == hrefAttr:
			l.handleProxy(o, a.Value)
		case a.URI == XSINamespace, a.URI == nsstack.XMLNamespace:
		case a.URI == XMINamespace:
			if a.Local == "id" {
				l.res.SetID(o, a.Value)
			}
		default:
			l.setAttributeValue(o, a.Local, a.Value)
		}
	}
}

func (l *loader) handleProxy(o *model.Object, ref string) {
	o.SetProxyURI(l.res.URI().Resolve(uri.New(ref)))
}

// trackProxy remembers proxies addressing this document so they can be
// replaced once the whole document is known.
func (l *loader) trackProxy(holder *model.Object, f model.Feature, proxy *model.Object) {
	if r, ok := f.(*model.Reference); ok && r.IsContainment() {
		return
	}
	target := proxy.ProxyURI().TrimFragment()
	if !target.IsEmpty() && !target.Equal(l.res.URI().TrimFragment()) {
		return
	}
	line, column := l.position()
	l.proxies = append(l.proxies, proxyRef{holder: holder, feature: f, proxy: proxy, line: line, column: column})
}

func (l *loader) setAttributeValue(o *model.Object, name, value string) {
	f := o.Class().Feature(name)
	if f == nil {
		l.unknownFeature(name)
		return
	}
	switch f := f.(type) {
	case *model.Attribute:
		if !f.IsMany() {
			l.setData(o, f, value)
			return
		}
		if strings.TrimSpace(value) == "" {
			l.set(o, f, []any{})
			return
		}
		for _, tok := range strings.Fields(value) {
			l.addData(o, f, tok)
		}
	case *model.Reference:
		l.setValueFromID(o, f, value)
	}
}

func (l *loader) finishData(fr frame) {
	if fr.isNil {
		if fr.attr.IsMany() {
			if err := fr.obj.List(fr.attr).Add(nil); err != nil {
				l.error(ecoreerrors.ErrFeatureValue, err.Error())
			}
			return
		}
		l.set(fr.obj, fr.attr, nil)
		return
	}
	if fr.attr.IsMany() {
		l.addData(fr.obj, fr.attr, string(fr.text))
		return
	}
	l.setData(fr.obj, fr.attr, string(fr.text))
}

func (l *loader) convert(a *model.Attribute, literal string) (any, bool) {
	d := a.DataType()
	if d == nil {
		return literal, true
	}
	var (
		v   any
		err error
	)
	if p := d.Package(); p != nil && p.Factory() != nil {
		v, err = p.Factory().CreateFromString(d, literal)
	} else {
		v, err = d.ConvertFromString(literal)
	}
	if err != nil {
		l.error(ecoreerrors.ErrValueConversion, fmt.Sprintf("feature %s: %v", a.Name(), err))
		return nil, false
	}
	return v, true
}

func (l *loader) setData(o *model.Object, a *model.Attribute, literal string) {
	if v, ok := l.convert(a, literal); ok {
		l.set(o, a, v)
	}
}

func (l *loader) addData(o *model.Object, a *model.Attribute, literal string) {
	v, ok := l.convert(a, literal)
	if !ok {
		return
	}
	if err := o.List(a).Add(v); err != nil {
		l.error(ecoreerrors.ErrFeatureValue, err.Error())
	}
}

func (l *loader) set(o *model.Object, f model.Feature, v any) {
	if err := o.BasicSet(f, v); err != nil {
		l.error(ecoreerrors.ErrFeatureValue, err.Error())
	}
}

// setValueFromID applies whitespace separated reference tokens: "#id" and
// "id" address this document, "uri#fragment" creates a proxy, and
// "prefix:Type" gives the type of the proxy that follows.
func (l *loader) setValueFromID(o *model.Object, r *model.Reference, ids string) {
	mustAdd, mustResolve := true, true
	if op := r.Opposite(); op != nil {
		mustAdd = op.IsTransient() || r.IsMany()
		mustResolve = mustAdd || !op.IsMany()
	}
	line, column := l.position()
	var (
		pending []deferredRef
		qname   string
		pos     int
	)
	for _, token := range strings.Fields(ids) {
		id := token
		if i := strings.IndexByte(token, '#'); i == 0 {
			id = token[1:]
		} else if i > 0 {
			saved := l.attrs
			l.attrs = nil
			var proxy *model.Object
			if qname == "" {
				proxy = l.createFromFeatureType(r)
			} else {
				proxy = l.createFromTypeName(qname)
			}
			l.attrs = saved
			if proxy != nil {
				l.handleProxy(proxy, token)
				l.setFeatureValue(o, r, proxy, -1)
				l.trackProxy(o, r, proxy)
			}
			qname = ""
			pos++
			continue
		} else if strings.IndexByte(token, ':') >= 0 {
			qname = token
			continue
		}

		if mustResolve {
			if target := l.lookup(id); target != nil {
				l.setFeatureValue(o, r, target, -1)
				qname = ""
				pos++
				continue
			}
		}
		if mustAdd {
			pending = append(pending, deferredRef{holder: o, feature: r, id: id, pos: pos, line: line, column: column})
		}
		qname = ""
		pos++
	}
	if pos == 0 {
		l.setFeatureValue(o, r, nil, -2)
		return
	}
	l.references = append(l.references, pending...)
}

func (l *loader) lookup(id string) *model.Object {
	o, err := l.res.ObjectAt(id)
	if err != nil {
		return nil
	}
	return o
}

// setFeatureValue stores a reference value. pos -1 appends, -2 marks a
// many-valued feature as explicitly empty, any other position places the
// value at that index.
func (l *loader) setFeatureValue(o *model.Object, f model.Feature, v *model.Object, pos int) {
	kind := classifyLoad(f)
	if kind != loadManyAdd && kind != loadManyMove {
		if v == nil {
			l.set(o, f, nil)
		} else {
			l.set(o, f, v)
		}
		return
	}
	list := o.List(f)
	var err error
	switch {
	case pos == -2:
		l.set(o, f, []any{})
	case pos == -1:
		err = list.Add(v)
	default:
		if i := list.IndexOf(v); i >= 0 {
			err = list.Move(i, min(pos, list.Len()-1))
		} else {
			err = list.Insert(min(pos, list.Len()), v)
		}
	}
	if err != nil {
		l.error(ecoreerrors.ErrFeatureValue, err.Error())
	}
}

// handleReferences runs after the document ends. Proxies addressing this
// document are replaced in place first; deferred id references are then
// resolved against the complete document.
func (l *loader) handleReferences() {
	for _, p := range l.proxies {
		target := l.lookup(p.proxy.ProxyURI().Fragment())
		if target == nil {
			l.res.AddWarning(ecoreerrors.NewDiagnosticf(ecoreerrors.ErrUnresolvedReference, l.location(), p.line, p.column,
				"Unresolved reference '%s'", p.proxy.ProxyURI()))
			continue
		}
		p.holder.ReplaceProxy(p.feature, p.proxy, target)
	}
	l.proxies = nil

	for _, ref := range l.references {
		target := l.lookup(ref.id)
		if target == nil {
			l.res.AddError(ecoreerrors.NewDiagnosticf(ecoreerrors.ErrUnresolvedReference, l.location(), ref.line, ref.column,
				"Unresolved reference '%s'", ref.id))
			continue
		}
		l.setFeatureValue(ref.holder, ref.feature, target, ref.pos)
	}
	l.references = nil
}

func (l *loader) unknownFeature(name string) {
	l.error(ecoreerrors.ErrInvalidFeature, fmt.Sprintf("Feature %s not found", name))
}

func (l *loader) location() string { return l.res.URI().String() }

func (l *loader) position() (int, int) {
	if l.locator == nil {
		return 0, 0
	}
	return l.locator.Position()
}

func (l *loader) error(code ecoreerrors.ErrorCode, msg string) {
	line, column := l.position()
	l.res.AddError(ecoreerrors.NewDiagnosticf(code, l.location(), line, column, "%s", msg))
}
