// Package xmlstream provides a namespace-aware streaming XML reader built on
// xmltext. Events expose byte slices with explicit lifetimes: names are stable,
// while attribute values and text are valid until the next call to Next.
package xmlstream
