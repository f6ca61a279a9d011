// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

// Package envstream implements the environment channel wire protocol:
// a byte stream of NUL-terminated KEY=VALUE records a plugin worker writes
// to report environment mutations back to the host. A record with an empty
// value ("KEY=") means "remove the variable", not "set it to empty".
package envstream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Errors returned by the decoder and encoder.
var (
	// ErrMalformedRecord is returned for a record without a '=' separator
	// or with an empty key. The stream remains decodable after it.
	ErrMalformedRecord = errors.New("envstream: malformed record")
	// ErrTruncatedRecord is returned when the stream ends mid-record.
	ErrTruncatedRecord = errors.New("envstream: truncated record at end of stream")
)

// Mutation is a single decoded environment change.
type Mutation struct {
	Key   string
	Value string
}

// Unset reports whether the mutation removes the variable instead of
// setting it.
func (m Mutation) Unset() bool {
	return m.Value == ""
}

// Environ is the mutable environment table mutations are applied to.
type Environ interface {
	Setenv(key, value string) error
	Unsetenv(key string) error
}

// OSEnviron applies mutations to the process's own environment.
type OSEnviron struct{}

// Setenv sets key in the process environment.
func (OSEnviron) Setenv(key, value string) error { return os.Setenv(key, value) }

// Unsetenv removes key from the process environment.
func (OSEnviron) Unsetenv(key string) error { return os.Unsetenv(key) }

// Apply performs one mutation against env. The key is always unset first;
// it is re-set only when the mutation carries a non-empty value.
func Apply(env Environ, m Mutation) error {
	if err := env.Unsetenv(m.Key); err != nil {
		return fmt.Errorf("unset %s: %w", m.Key, err)
	}
	if m.Unset() {
		return nil
	}
	if err := env.Setenv(m.Key, m.Value); err != nil {
		return fmt.Errorf("set %s: %w", m.Key, err)
	}
	return nil
}

// Decoder reads mutations from an environment channel stream. It buffers
// bytes across reads, so a record split over multiple pipe chunks still
// decodes as one unit.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next mutation from the stream. It returns io.EOF at a
// clean end of stream, ErrTruncatedRecord when the stream ends inside a
// record, and ErrMalformedRecord for a record it cannot parse. After
// ErrMalformedRecord the decoder is positioned at the next record.
func (d *Decoder) Next() (Mutation, error) {
	rec, err := d.r.ReadString('\x00')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if rec == "" {
				return Mutation{}, io.EOF
			}
			return Mutation{}, ErrTruncatedRecord
		}
		return Mutation{}, fmt.Errorf("envstream: read: %w", err)
	}

	rec = strings.TrimSuffix(rec, "\x00")
	key, value, ok := strings.Cut(rec, "=")
	if !ok || key == "" {
		return Mutation{}, fmt.Errorf("%w: %q", ErrMalformedRecord, rec)
	}
	return Mutation{Key: key, Value: value}, nil
}

// Encoder writes mutations to an environment channel stream. Callers must
// Flush before closing the underlying writer.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Set encodes a record that sets key to value. An empty value is rejected
// because the wire format cannot distinguish it from an unset.
func (e *Encoder) Set(key, value string) error {
	if value == "" {
		return fmt.Errorf("envstream: empty value for %s encodes as an unset; use Unset", key)
	}
	if err := validKey(key); err != nil {
		return err
	}
	if strings.ContainsRune(value, '\x00') {
		return fmt.Errorf("envstream: value for %s contains NUL", key)
	}
	return e.write(key + "=" + value)
}

// Unset encodes a record that removes key.
func (e *Encoder) Unset(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	return e.write(key + "=")
}

// Flush writes any buffered records to the underlying writer.
func (e *Encoder) Flush() error {
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("envstream: flush: %w", err)
	}
	return nil
}

func (e *Encoder) write(rec string) error {
	if _, err := e.w.WriteString(rec); err != nil {
		return fmt.Errorf("envstream: write: %w", err)
	}
	if err := e.w.WriteByte('\x00'); err != nil {
		return fmt.Errorf("envstream: write: %w", err)
	}
	return nil
}

func validKey(key string) error {
	if key == "" {
		return fmt.Errorf("envstream: empty key")
	}
	if strings.ContainsAny(key, "=\x00") {
		return fmt.Errorf("envstream: key %q contains '=' or NUL", key)
	}
	return nil
}
