// Package aggregate reassembles streamed generation fragments into a growing
// response string.
package aggregate

import (
	"errors"
	"io"
	"iter"
	"strings"

	"github.com/spherical/docprompt/internal/domain"
)

// Aggregator accumulates fragments for a single generation call. It is not
// safe for concurrent use; each call owns its own instance.
type Aggregator struct {
	buf       strings.Builder
	fragments int
}

// New returns an empty aggregator
func New() *Aggregator {
	return &Aggregator{}
}

// Append adds a fragment verbatim and returns the aggregate so far.
// Empty fragments are ignored.
func (a *Aggregator) Append(fragment string) string {
	if fragment != "" {
		a.buf.WriteString(fragment)
		a.fragments++
	}
	return a.buf.String()
}

// String returns the aggregate so far
func (a *Aggregator) String() string {
	return a.buf.String()
}

// Fragments returns how many non-empty fragments were appended
func (a *Aggregator) Fragments() int {
	return a.fragments
}

// Consume pulls fragments from stream one at a time and yields the full
// concatenation after each non-empty fragment. The sequence ends at io.EOF;
// a stream that produced no text yields "" once so callers always see a
// final value.
// A receive failure is yielded once, together with the aggregate built so
// far, as a GenerationError. The stream is closed when the sequence ends or
// the caller stops ranging over it.
func (a *Aggregator) Consume(stream domain.FragmentStream) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer stream.Close()

		for {
			fragment, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				if a.fragments == 0 {
					yield("", nil)
				}
				return
			}
			if err != nil {
				if !domain.IsType(err, domain.ErrorTypeGeneration) {
					err = domain.GenerationError("stream interrupted", err)
				}
				yield(a.String(), err)
				return
			}
			if fragment == "" {
				continue
			}
			if !yield(a.Append(fragment), nil) {
				return
			}
		}
	}
}

// Collect drains stream and returns the complete response. On failure the
// partial aggregate is returned with the error.
func Collect(stream domain.FragmentStream) (string, error) {
	a := New()
	for _, err := range a.Consume(stream) {
		if err != nil {
			return a.String(), err
		}
	}
	return a.String(), nil
}
