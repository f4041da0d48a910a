package source

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// cleanReader strips a leading UTF-8 BOM and replaces invalid UTF-8 bytes
// with '?'. Spreadsheet exports from Windows tools commonly carry both.
type cleanReader struct {
	br         *bufio.Reader
	bomChecked bool
	pending    []byte // tail of a rune that did not fit the last Read
}

func newCleanReader(r io.Reader) *cleanReader {
	return &cleanReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (r *cleanReader) Read(p []byte) (int, error) {
	if !r.bomChecked {
		r.bomChecked = true
		if head, err := r.br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			if _, err := r.br.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}

	n := 0
	for n < len(p) {
		if len(r.pending) > 0 {
			c := copy(p[n:], r.pending)
			r.pending = r.pending[c:]
			n += c
			continue
		}

		ru, size, err := r.br.ReadRune()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}

		if ru == utf8.RuneError && size == 1 {
			p[n] = '?'
			n++
			continue
		}

		var enc [utf8.UTFMax]byte
		w := utf8.EncodeRune(enc[:], ru)
		c := copy(p[n:], enc[:w])
		n += c
		if c < w {
			r.pending = append(r.pending[:0], enc[c:w]...)
		}
	}
	return n, nil
}
