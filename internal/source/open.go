package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"colmerge/internal/schema"
)

// Open opens a local source for a single sequential read.
//
// The returned stream is always UTF-8:
//   - A leading BOM (UTF-8 or UTF-16) is consumed and, for UTF-16, switches
//     decoding accordingly.
//   - When encoding is non-empty it names the source character set using any
//     WHATWG label ("windows-1250", "latin1", "utf-16le", ...).
//
// The caller must Close the result. Open failures and unknown encodings are
// reported as schema.ErrMalformedSource.
func Open(ctx context.Context, path, encoding string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dec, err := decoderFor(encoding)
	if err != nil {
		return nil, schema.Malformed("open", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, schema.Malformed("open", err)
	}

	type rc struct {
		io.Reader
		io.Closer
	}
	return &rc{
		Reader: transform.NewReader(f, unicode.BOMOverride(dec)),
		Closer: f,
	}, nil
}

func decoderFor(label string) (transform.Transformer, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return transform.Nop, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	return enc.NewDecoder(), nil
}

// CharsetReader converts input declared in the named charset to UTF-8. It has
// the signature expected by encoding/xml.Decoder.CharsetReader.
func CharsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(strings.TrimSpace(label))
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
