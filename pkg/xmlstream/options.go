package xmlstream

import (
	"io"

	"github.com/jacoelho/ecore/pkg/xmltext"
)

// Option configures the xmlstream reader.
type Option = xmltext.Options

// MaxDepth limits element nesting depth.
func MaxDepth(value int) Option { return xmltext.MaxDepth(value) }

// MaxAttrs limits the number of attributes, namespace declarations included,
// on a start element.
func MaxAttrs(value int) Option { return xmltext.MaxAttrs(value) }

// MaxTokenSize limits the size of a single token in bytes.
func MaxTokenSize(value int) Option { return xmltext.MaxTokenSize(value) }

// MaxQNameInternEntries limits the interned name tables.
func MaxQNameInternEntries(value int) Option { return xmltext.MaxQNameInternEntries(value) }

// WithCharsetReader decodes documents declared in a non-UTF-8 encoding.
func WithCharsetReader(fn func(label string, r io.Reader) (io.Reader, error)) Option {
	return xmltext.WithCharsetReader(fn)
}

func buildOptions(opts ...Option) []xmltext.Options {
	base := []xmltext.Options{
		xmltext.ResolveEntities(true),
		xmltext.CoalesceCharData(true),
		xmltext.EmitComments(false),
		xmltext.EmitPI(false),
		xmltext.EmitDirectives(false),
		xmltext.TrackLineColumn(true),
		xmltext.MaxQNameInternEntries(qnameCacheMaxEntries),
	}
	out := make([]xmltext.Options, 0, len(base)+len(opts))
	out = append(out, base...)
	out = append(out, opts...)
	return out
}

func qnameCacheLimit(opts []xmltext.Options) int {
	merged := xmltext.JoinOptions(opts...)
	if limit, ok := merged.MaxQNameInternEntries(); ok {
		if limit < 0 {
			return 0
		}
		return limit
	}
	return qnameCacheMaxEntries
}
