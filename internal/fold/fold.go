// Package fold provides a case-insensitive string value type.
//
// A fold.String caches the lower-cased form of its text at construction so
// repeated comparisons avoid re-folding. All comparisons and substring
// queries fold both operands: the receiver uses its cached form and the
// plain-string argument is folded at call time, so callers never need to
// normalize case themselves. Two values with the same folded form are equal,
// hash identically, and produce the same Key, which makes the type usable
// for case-insensitive set and map semantics.
package fold

import (
	"hash/fnv"
	"strings"
)

// String is an immutable string with case-insensitive comparison semantics.
// The zero value behaves as the empty string.
type String struct {
	orig  string
	lower string
}

// New creates a String, precomputing the lower-cased form once.
func New(s string) String {
	return String{
		orig:  s,
		lower: strings.ToLower(s),
	}
}

// String returns the original text unchanged.
func (s String) String() string {
	return s.orig
}

// Lower returns the cached lower-cased form without recomputing it.
func (s String) Lower() string {
	return s.lower
}

// Len returns the byte length of the original text.
func (s String) Len() int {
	return len(s.orig)
}

// Equals reports whether s and other are equal ignoring case.
func (s String) Equals(other string) bool {
	return s.lower == strings.ToLower(other)
}

// EqualsFold reports whether two Strings are equal ignoring case.
// Both folded forms are already cached, so no folding happens here.
func (s String) EqualsFold(other String) bool {
	return s.lower == other.lower
}

// Compare returns -1, 0, or +1 comparing the folded forms lexicographically.
func (s String) Compare(other string) int {
	return strings.Compare(s.lower, strings.ToLower(other))
}

// Less reports whether s sorts before other ignoring case.
func (s String) Less(other string) bool {
	return s.Compare(other) < 0
}

// LessOrEqual reports whether s sorts before or equal to other ignoring case.
func (s String) LessOrEqual(other string) bool {
	return s.Compare(other) <= 0
}

// Greater reports whether s sorts after other ignoring case.
func (s String) Greater(other string) bool {
	return s.Compare(other) > 0
}

// GreaterOrEqual reports whether s sorts after or equal to other ignoring case.
func (s String) GreaterOrEqual(other string) bool {
	return s.Compare(other) >= 0
}

// Contains reports whether substr occurs in s ignoring case.
func (s String) Contains(substr string) bool {
	return strings.Contains(s.lower, strings.ToLower(substr))
}

// Count returns the number of non-overlapping instances of substr in s
// ignoring case.
func (s String) Count(substr string) int {
	return strings.Count(s.lower, strings.ToLower(substr))
}

// Index returns the index of the first case-insensitive occurrence of substr
// in s, or -1 if absent.
func (s String) Index(substr string) int {
	return strings.Index(s.lower, strings.ToLower(substr))
}

// LastIndex returns the index of the last case-insensitive occurrence of
// substr in s, or -1 if absent.
func (s String) LastIndex(substr string) int {
	return strings.LastIndex(s.lower, strings.ToLower(substr))
}

// HasPrefix reports whether s begins with prefix ignoring case.
func (s String) HasPrefix(prefix string) bool {
	return strings.HasPrefix(s.lower, strings.ToLower(prefix))
}

// HasSuffix reports whether s ends with suffix ignoring case.
func (s String) HasSuffix(suffix string) bool {
	return strings.HasSuffix(s.lower, strings.ToLower(suffix))
}

// Key returns the folded form for use as a map key. Values that compare
// equal via Equals share the same Key.
func (s String) Key() string {
	return s.lower
}

// Hash returns a 64-bit FNV-1a hash of the folded form. Values that compare
// equal via Equals hash identically.
func (s String) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(s.lower))
	return h.Sum64()
}
