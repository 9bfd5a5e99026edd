package resource

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jacoelho/ecore/pkg/model"
)

// ErrMalformedFragment is returned when a fragment path segment cannot be
// interpreted.
var ErrMalformedFragment = errors.New("malformed fragment")

// FragmentOf returns the fragment addressing o within r: its identifier when
// it has one, otherwise a path such as "//@books.1". It returns "" when o is
// not held by r.
func (r *Resource) FragmentOf(o *model.Object) string {
	if o == nil {
		return ""
	}
	if id, ok := r.objIDs[o]; ok {
		return id
	}
	if id := model.ObjectID(o); id != "" {
		return id
	}
	return r.pathOf(o)
}

// PathOf returns the positional path of o, ignoring identifiers.
func (r *Resource) PathOf(o *model.Object) string {
	if o == nil {
		return ""
	}
	return r.pathOf(o)
}

func (r *Resource) pathOf(o *model.Object) string {
	var segments []string
	x := o
	for x.Container() != nil {
		f := x.ContainingFeature()
		c := x.Container()
		if f.IsMany() {
			idx := c.List(f).IndexOf(x)
			segments = append(segments, "@"+f.Name()+"."+strconv.Itoa(idx))
		} else {
			segments = append(segments, "@"+f.Name())
		}
		x = c
	}
	if x.DirectResource() != model.Resource(r) {
		return ""
	}
	root := ""
	if r.contents.Len() > 1 {
		root = strconv.Itoa(r.contents.IndexOf(x))
	}
	var b strings.Builder
	b.WriteString("/")
	b.WriteString(root)
	for i := len(segments) - 1; i >= 0; i-- {
		b.WriteString("/")
		b.WriteString(segments[i])
	}
	return b.String()
}

// ObjectAt returns the object addressed by fragment. A fragment starting with
// "/" is a path whose first segment is a root index or "?id" and whose other
// segments are "@feature", "@feature.index" or a position among the
// contained objects. Any other fragment is an identifier. A nil object with a
// nil error means the address is well formed but empty.
func (r *Resource) ObjectAt(fragment string) (*model.Object, error) {
	if !strings.HasPrefix(fragment, "/") {
		return r.ObjectByID(strings.TrimPrefix(fragment, "?")), nil
	}
	segments := strings.Split(fragment[1:], "/")
	o, err := r.rootSegment(segments[0])
	if err != nil || o == nil {
		return nil, err
	}
	for _, seg := range segments[1:] {
		o, err = childSegment(o, seg)
		if err != nil || o == nil {
			return nil, err
		}
	}
	return o, nil
}

func (r *Resource) rootSegment(seg string) (*model.Object, error) {
	if strings.HasPrefix(seg, "?") {
		return r.ObjectByID(seg[1:]), nil
	}
	pos := 0
	if seg != "" {
		n, err := strconv.Atoi(seg)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("root segment %q: %w", seg, ErrMalformedFragment)
		}
		pos = n
	}
	if pos >= r.contents.Len() {
		return nil, nil
	}
	return r.contents.Object(pos), nil
}

func childSegment(o *model.Object, seg string) (*model.Object, error) {
	if !strings.HasPrefix(seg, "@") {
		n, err := strconv.Atoi(seg)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("segment %q: %w", seg, ErrMalformedFragment)
		}
		children := o.Contents()
		if n >= len(children) {
			return nil, nil
		}
		return children[n], nil
	}
	name, index := seg[1:], -1
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		n, err := strconv.Atoi(name[dot+1:])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("segment %q: %w", seg, ErrMalformedFragment)
		}
		name, index = name[:dot], n
	}
	f := o.Class().Feature(name)
	if f == nil {
		return nil, fmt.Errorf("segment %q: feature %s of %s: %w", seg, name, o.Class().Name(), ErrMalformedFragment)
	}
	if index < 0 {
		if f.IsMany() {
			return nil, fmt.Errorf("segment %q: many-valued feature needs an index: %w", seg, ErrMalformedFragment)
		}
		target, _ := o.Get(f).(*model.Object)
		return target, nil
	}
	l := o.List(f)
	if l == nil {
		return nil, fmt.Errorf("segment %q: single-valued feature has no index: %w", seg, ErrMalformedFragment)
	}
	if index >= l.Len() {
		return nil, nil
	}
	return l.Object(index), nil
}
