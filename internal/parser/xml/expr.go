// Package xml extracts column names from report definition documents.
//
// A report definition lists its columns as <saw:column> elements; each column
// carries a formula such as
//
//	<saw:column>
//	  <saw:columnFormula>
//	    <sawx:expr xsi:type="sawx:sqlExpression">"Customer"."Customer Name"</sawx:expr>
//	  </saw:columnFormula>
//	</saw:column>
//
// The formula text, with quotes removed and lower-cased, is the column name.
package xml

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"colmerge/internal/config"
	"colmerge/internal/schema"
	"colmerge/internal/source"
)

// Default namespaces and expression type of report definitions.
const (
	DefaultReportNamespace     = "com.siebel.analytics.web/report/v1.1"
	DefaultExpressionNamespace = "com.siebel.analytics.web/expression/v1.1"
	DefaultXSINamespace        = "http://www.w3.org/2001/XMLSchema-instance"
	DefaultExpressionType      = "sawx:sqlExpression"
)

// Match describes which elements are column expressions.
type Match struct {
	// ReportNamespace is the namespace of the enclosing <column> element.
	ReportNamespace string
	// ExpressionNamespace is the namespace of the <expr> element.
	ExpressionNamespace string
	// XSINamespace qualifies the "type" attribute on <expr>.
	XSINamespace string
	// ExpressionType is compared literally against the attribute value;
	// prefixes inside attribute values are not resolved.
	ExpressionType string
}

// MatchFromOptions builds a Match from parser options, falling back to the
// defaults for any key not set.
func MatchFromOptions(opt config.Options) Match {
	return Match{
		ReportNamespace:     opt.String("report_namespace", DefaultReportNamespace),
		ExpressionNamespace: opt.String("expression_namespace", DefaultExpressionNamespace),
		XSINamespace:        opt.String("xsi_namespace", DefaultXSINamespace),
		ExpressionType:      opt.String("expression_type", DefaultExpressionType),
	}
}

// ReadExpressionColumns streams the document and returns, in document order,
// the normalized text of every matching expression element that sits anywhere
// below a report column element.
//
// Only the expression's leading text (before its first child element) is used.
// Expressions with no text are skipped. Empty documents and documents that are
// not well formed are schema.ErrMalformedSource, even when matches were found
// before the error.
// Declared non-UTF-8 encodings are decoded.
func ReadExpressionColumns(r io.Reader, m Match) ([]schema.Column, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = source.CharsetReader

	var (
		out []schema.Column
		// isColumn records, per open element, whether it is a report column.
		isColumn  []bool
		colDepth  int
		capturing bool
		hasText   bool
		sawRoot   bool
		text      strings.Builder
	)

	finish := func() {
		if capturing && hasText {
			out = append(out, schema.Expression(text.String()))
		}
		capturing = false
		hasText = false
		text.Reset()
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, schema.Malformed("parse xml", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			// A child element ends the expression's leading text.
			finish()
			sawRoot = true

			col := t.Name.Space == m.ReportNamespace && t.Name.Local == "column"
			isColumn = append(isColumn, col)
			if col {
				colDepth++
				continue
			}
			if colDepth > 0 && m.isExpression(t) {
				capturing = true
			}

		case xml.CharData:
			if capturing {
				text.Write(t)
				hasText = true
			}

		case xml.EndElement:
			finish()
			n := len(isColumn) - 1
			if isColumn[n] {
				colDepth--
			}
			isColumn = isColumn[:n]
		}
	}

	if !sawRoot {
		return nil, schema.Malformed("no root element", nil)
	}
	if out == nil {
		out = []schema.Column{}
	}
	return out, nil
}

func (m Match) isExpression(t xml.StartElement) bool {
	if t.Name.Space != m.ExpressionNamespace || t.Name.Local != "expr" {
		return false
	}
	for _, a := range t.Attr {
		if a.Name.Space == m.XSINamespace && a.Name.Local == "type" {
			return a.Value == m.ExpressionType
		}
	}
	return false
}
