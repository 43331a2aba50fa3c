package llm

import (
	"errors"
	"io"
	"strings"
	"sync"
)

// Stream is a lazy, finite, non-restartable sequence of text fragments.
//
//	for s.Next() {
//		fmt.Print(s.Current())
//	}
//	if err := s.Err(); err != nil { ... }
type Stream struct {
	recv    func() (string, error)
	closeFn func() error

	cur  string
	err  error
	done bool
	once sync.Once
}

// NewStream builds a Stream from a receive function that returns io.EOF at
// the end of the transport, and an optional close function.
func NewStream(recv func() (string, error), closeFn func() error) *Stream {
	return &Stream{recv: recv, closeFn: closeFn}
}

// Next advances to the next non-empty fragment.
func (s *Stream) Next() bool {
	for !s.done {
		frag, err := s.recv()
		if errors.Is(err, io.EOF) {
			s.finish(nil)
			return false
		}
		if err != nil {
			s.finish(err)
			return false
		}
		if frag == "" {
			continue
		}
		s.cur = frag
		return true
	}
	return false
}

// Current returns the fragment produced by the last successful Next.
func (s *Stream) Current() string { return s.cur }

// Err returns the error that ended the stream, if any.
func (s *Stream) Err() error { return s.err }

// Close releases the transport. Iteration stops after Close.
func (s *Stream) Close() error {
	s.done = true
	var err error
	s.once.Do(func() {
		if s.closeFn != nil {
			err = s.closeFn()
		}
	})
	return err
}

func (s *Stream) finish(err error) {
	s.err = err
	_ = s.Close()
}

// Collect drains s into a single string.
func Collect(s *Stream) (string, error) {
	defer s.Close()
	var b strings.Builder
	for s.Next() {
		b.WriteString(s.Current())
	}
	return b.String(), s.Err()
}

// SliceStream replays fixed fragments. It is useful for fakes and for
// serving canned responses through the streaming interface.
func SliceStream(fragments ...string) *Stream {
	i := 0
	return NewStream(func() (string, error) {
		if i >= len(fragments) {
			return "", io.EOF
		}
		f := fragments[i]
		i++
		return f, nil
	}, nil)
}
