// Package predicterr defines the error kinds surfaced across the predictor
// (7). These are sentinel errors, wrapped with fmt.Errorf("...: %w", ...) at
// the point of failure, following the plain errors.New/fmt.Errorf style used
// throughout the retrieval pack — no custom error-framework type is
// introduced, since none of the example repos reach for one either.
package predicterr

import "errors"

var (
	// ErrDictionaryMismatch: an overlay's embedded dictionary identifier
	// does not match the live dictionary's. Fatal for the overlay load; the
	// dictionary remains usable without it.
	ErrDictionaryMismatch = errors.New("dictionary identifier mismatch")

	// ErrCorruptFile: unexpected EOF, bad record width, negative offsets,
	// or an unknown word-type byte. Fatal for the owning open.
	ErrCorruptFile = errors.New("corrupt file")

	// ErrIO: underlying read/write failure. Propagated to the caller; the
	// predictor remains usable if the static trie is still open.
	ErrIO = errors.New("io failure")

	// ErrInvalidPrefix: attempt to update probabilities on a context that
	// does not exist in the dynamic trie. Programmer error; surfaced.
	ErrInvalidPrefix = errors.New("invalid prefix")
)
