// Package decode turns raw response bytes into text for matching.
package decode

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	UTF8 = "utf-8"
	Auto = "auto"
)

// ErrInvalidUTF8 is returned in strict mode for payloads that are not UTF-8.
var ErrInvalidUTF8 = errors.New("payload is not valid UTF-8")

// Decoder converts payload bytes under a charset assumption. The zero value
// decodes UTF-8 leniently, replacing invalid sequences with U+FFFD.
type Decoder struct {
	charset string
	enc     encoding.Encoding
	strict  bool
}

// New returns a Decoder for charset: "", "utf-8", "auto" (detect per
// payload) or any WHATWG encoding label such as "latin1" or "shift_jis".
// With strict set, UTF-8 payloads with invalid sequences are rejected
// instead of repaired.
func New(charset string, strict bool) (Decoder, error) {
	cs := strings.ToLower(strings.TrimSpace(charset))
	switch cs {
	case "", UTF8, "utf8":
		return Decoder{charset: UTF8, strict: strict}, nil
	case Auto:
		return Decoder{charset: Auto, strict: strict}, nil
	}
	enc, err := htmlindex.Get(cs)
	if err != nil {
		return Decoder{charset: UTF8, strict: strict}, fmt.Errorf("unknown charset %q: %w", charset, err)
	}
	return Decoder{charset: cs, enc: enc, strict: strict}, nil
}

// Charset is the configured charset label.
func (d Decoder) Charset() string {
	if d.charset == "" {
		return UTF8
	}
	return d.charset
}

// Decode returns the payload as text. A non-nil error means the payload could
// not be decoded and must be treated as having no matches.
func (d Decoder) Decode(b []byte) (string, error) {
	switch {
	case d.charset == Auto:
		return d.detect(b)
	case d.enc != nil:
		return decodeWith(d.enc, b)
	}
	return d.utf8(b)
}

func (d Decoder) utf8(b []byte) (string, error) {
	if utf8.Valid(b) {
		return string(b), nil
	}
	if d.strict {
		return "", ErrInvalidUTF8
	}
	return strings.ToValidUTF8(string(b), "�"), nil
}

func (d Decoder) detect(b []byte) (string, error) {
	if len(b) == 0 || utf8.Valid(b) {
		return string(b), nil
	}
	res, err := chardet.NewTextDetector().DetectBest(b)
	if err != nil || res == nil {
		return d.utf8(b)
	}
	enc, err := htmlindex.Get(strings.ToLower(res.Charset))
	if err != nil {
		return d.utf8(b)
	}
	return decodeWith(enc, b)
}

func decodeWith(enc encoding.Encoding, b []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
