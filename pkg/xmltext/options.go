package xmltext

import "io"

// Options holds decoder configuration values.
// The zero value means no overrides.
type Options struct {
	charsetReader         func(label string, r io.Reader) (io.Reader, error)
	entityMap             map[string]string
	resolveEntities       bool
	emitComments          bool
	emitPI                bool
	emitDirectives        bool
	trackLineColumn       bool
	coalesceCharData      bool
	maxDepth              int
	maxAttrs              int
	maxTokenSize          int
	maxQNameInternEntries int
	debugPoisonSpans      bool
	bufferSize            int

	charsetReaderSet         bool
	entityMapSet             bool
	resolveEntitiesSet       bool
	emitCommentsSet          bool
	emitPISet                bool
	emitDirectivesSet        bool
	trackLineColumnSet       bool
	coalesceCharDataSet      bool
	maxDepthSet              bool
	maxAttrsSet              bool
	maxTokenSizeSet          bool
	maxQNameInternEntriesSet bool
	debugPoisonSpansSet      bool
	bufferSizeSet            bool
}

// JoinOptions combines multiple option sets into one in declaration order.
// Later options override earlier ones when set.
func JoinOptions(srcs ...Options) Options {
	var merged Options
	for _, src := range srcs {
		merged.merge(src)
	}
	return merged
}

func (opts *Options) merge(src Options) {
	if src.charsetReaderSet {
		opts.charsetReader = src.charsetReader
		opts.charsetReaderSet = true
	}
	if src.entityMapSet {
		opts.entityMap = src.entityMap
		opts.entityMapSet = true
	}
	if src.resolveEntitiesSet {
		opts.resolveEntities = src.resolveEntities
		opts.resolveEntitiesSet = true
	}
	if src.emitCommentsSet {
		opts.emitComments = src.emitComments
		opts.emitCommentsSet = true
	}
	if src.emitPISet {
		opts.emitPI = src.emitPI
		opts.emitPISet = true
	}
	if src.emitDirectivesSet {
		opts.emitDirectives = src.emitDirectives
		opts.emitDirectivesSet = true
	}
	if src.trackLineColumnSet {
		opts.trackLineColumn = src.trackLineColumn
		opts.trackLineColumnSet = true
	}
	if src.coalesceCharDataSet {
		opts.coalesceCharData = src.coalesceCharData
		opts.coalesceCharDataSet = true
	}
	if src.maxDepthSet {
		opts.maxDepth = src.maxDepth
		opts.maxDepthSet = true
	}
	if src.maxAttrsSet {
		opts.maxAttrs = src.maxAttrs
		opts.maxAttrsSet = true
	}
	if src.maxTokenSizeSet {
		opts.maxTokenSize = src.maxTokenSize
		opts.maxTokenSizeSet = true
	}
	if src.maxQNameInternEntriesSet {
		opts.maxQNameInternEntries = src.maxQNameInternEntries
		opts.maxQNameInternEntriesSet = true
	}
	if src.debugPoisonSpansSet {
		opts.debugPoisonSpans = src.debugPoisonSpans
		opts.debugPoisonSpansSet = true
	}
	if src.bufferSizeSet {
		opts.bufferSize = src.bufferSize
		opts.bufferSizeSet = true
	}
}

// WithCharsetReader registers a decoder for non-UTF-8/UTF-16 encodings.
func WithCharsetReader(fn func(label string, r io.Reader) (io.Reader, error)) Options {
	return Options{charsetReader: fn, charsetReaderSet: true}
}

// WithEntityMap configures custom named entity replacements.
func WithEntityMap(values map[string]string) Options {
	if values == nil {
		return Options{entityMapSet: true}
	}
	copyMap := make(map[string]string, len(values))
	for key, value := range values {
		copyMap[key] = value
	}
	return Options{entityMap: copyMap, entityMapSet: true}
}

// ResolveEntities controls whether entity references are expanded.
func ResolveEntities(value bool) Options {
	return Options{resolveEntities: value, resolveEntitiesSet: true}
}

// EmitComments controls whether comment tokens are emitted.
func EmitComments(value bool) Options {
	return Options{emitComments: value, emitCommentsSet: true}
}

// EmitPI controls whether processing instruction tokens are emitted.
func EmitPI(value bool) Options {
	return Options{emitPI: value, emitPISet: true}
}

// EmitDirectives controls whether directive tokens are emitted.
func EmitDirectives(value bool) Options {
	return Options{emitDirectives: value, emitDirectivesSet: true}
}

// TrackLineColumn controls whether line and column tracking is enabled.
func TrackLineColumn(value bool) Options {
	return Options{trackLineColumn: value, trackLineColumnSet: true}
}

// CoalesceCharData merges adjacent text tokens into a single CharData token.
func CoalesceCharData(value bool) Options {
	return Options{coalesceCharData: value, coalesceCharDataSet: true}
}

// MaxDepth limits element nesting depth.
func MaxDepth(value int) Options {
	return Options{maxDepth: value, maxDepthSet: true}
}

// MaxAttrs limits the number of attributes on a start element.
func MaxAttrs(value int) Options {
	return Options{maxAttrs: value, maxAttrsSet: true}
}

// MaxTokenSize limits the maximum size of a single token in bytes.
// Tokens exactly MaxTokenSize bytes long are allowed.
func MaxTokenSize(value int) Options {
	return Options{maxTokenSize: value, maxTokenSizeSet: true}
}

func debugPoisonSpans(value bool) Options {
	return Options{debugPoisonSpans: value, debugPoisonSpansSet: true}
}

func bufferSize(value int) Options {
	return Options{bufferSize: value, bufferSizeSet: true}
}

// MaxQNameInternEntries limits the number of interned element and attribute
// names. Zero means unlimited.
func MaxQNameInternEntries(value int) Options {
	return Options{maxQNameInternEntries: value, maxQNameInternEntriesSet: true}
}

// CharsetReader reports the configured charset reader.
func (opts Options) CharsetReader() (func(label string, r io.Reader) (io.Reader, error), bool) {
	return opts.charsetReader, opts.charsetReaderSet
}

// EntityMap reports the configured custom entities.
func (opts Options) EntityMap() (map[string]string, bool) {
	return opts.entityMap, opts.entityMapSet
}

// ResolveEntities reports whether entity expansion was configured.
func (opts Options) ResolveEntities() (bool, bool) {
	return opts.resolveEntities, opts.resolveEntitiesSet
}

// EmitComments reports whether comment emission was configured.
func (opts Options) EmitComments() (bool, bool) {
	return opts.emitComments, opts.emitCommentsSet
}

// EmitPI reports whether processing instruction emission was configured.
func (opts Options) EmitPI() (bool, bool) {
	return opts.emitPI, opts.emitPISet
}

// EmitDirectives reports whether directive emission was configured.
func (opts Options) EmitDirectives() (bool, bool) {
	return opts.emitDirectives, opts.emitDirectivesSet
}

// TrackLineColumn reports whether line tracking was configured.
func (opts Options) TrackLineColumn() (bool, bool) {
	return opts.trackLineColumn, opts.trackLineColumnSet
}

// CoalesceCharData reports whether text coalescing was configured.
func (opts Options) CoalesceCharData() (bool, bool) {
	return opts.coalesceCharData, opts.coalesceCharDataSet
}

// MaxDepth reports the configured depth limit.
func (opts Options) MaxDepth() (int, bool) {
	return opts.maxDepth, opts.maxDepthSet
}

// MaxAttrs reports the configured attribute limit.
func (opts Options) MaxAttrs() (int, bool) {
	return opts.maxAttrs, opts.maxAttrsSet
}

// MaxTokenSize reports the configured token size limit.
func (opts Options) MaxTokenSize() (int, bool) {
	return opts.maxTokenSize, opts.maxTokenSizeSet
}

// MaxQNameInternEntries reports the configured intern limit.
func (opts Options) MaxQNameInternEntries() (int, bool) {
	return opts.maxQNameInternEntries, opts.maxQNameInternEntriesSet
}

// DebugPoisonSpans reports whether span poisoning was configured.
func (opts Options) DebugPoisonSpans() (bool, bool) {
	return opts.debugPoisonSpans, opts.debugPoisonSpansSet
}

// BufferSize reports the configured read buffer size.
func (opts Options) BufferSize() (int, bool) {
	return opts.bufferSize, opts.bufferSizeSet
}
