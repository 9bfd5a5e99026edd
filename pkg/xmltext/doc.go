// Package xmltext is a streaming XML 1.0 tokenizer. It checks well-formedness
// (tag balance, a single root, duplicate attributes, character ranges) and
// hands out spans into its own buffers instead of allocating per token.
// Namespace resolution is left to callers such as pkg/xmlstream.
package xmltext
