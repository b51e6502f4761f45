// Package csv reads the header row of delimited text sources.
package csv

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"colmerge/internal/config"
	"colmerge/internal/schema"
)

// ReadHeader reads exactly one record from r and returns its fields verbatim.
//
// Options:
//   - comma: field delimiter (default ',', `\t` for tab)
//   - lazy_quotes: tolerate bare quotes inside fields (default true, so a
//     header such as na"me is returned as written)
//   - trim_space: trim surrounding whitespace from each header (default false)
//
// Blank leading lines are skipped by encoding/csv, so the header is the first
// non-empty record. An empty input or an unparsable first record is
// schema.ErrMalformedSource. Nothing past the header is read.
func ReadHeader(r io.Reader, opt config.Options) ([]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = opt.Rune("comma", ',')
	cr.LazyQuotes = opt.Bool("lazy_quotes", true)
	cr.FieldsPerRecord = -1

	hdr, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, schema.Malformed("no header row", nil)
	}
	if err != nil {
		return nil, schema.Malformed("read header", err)
	}

	if opt.Bool("trim_space", false) {
		for i, h := range hdr {
			hdr[i] = strings.TrimSpace(h)
		}
	}
	return hdr, nil
}
