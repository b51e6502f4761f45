package extract

import (
	"context"

	"colmerge/internal/config"
	csvparser "colmerge/internal/parser/csv"
	jsonparser "colmerge/internal/parser/json"
	xmlparser "colmerge/internal/parser/xml"
	"colmerge/internal/schema"
	"colmerge/internal/source"
)

func init() {
	Register(source.FormatDelimited, func(opt config.Options) Extractor { return delimited{opt: opt} })
	Register(source.FormatMarkupExpression, func(opt config.Options) Extractor {
		return markup{match: xmlparser.MatchFromOptions(opt)}
	})
	Register(source.FormatHierarchicalRecord, func(opt config.Options) Extractor { return records{opt: opt} })
}

// delimited returns the header row verbatim.
type delimited struct{ opt config.Options }

func (d delimited) Extract(ctx context.Context, src source.Source) ([]schema.Column, error) {
	rc, err := source.Open(ctx, src.Path, d.opt.String("encoding", ""))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	hdr, err := csvparser.ReadHeader(rc, d.opt)
	if err != nil {
		return nil, err
	}
	return schema.Columns(hdr...), nil
}

// markup returns normalized column expressions. The character set comes from
// the XML declaration, so no encoding option is applied here.
type markup struct{ match xmlparser.Match }

func (m markup) Extract(ctx context.Context, src source.Source) ([]schema.Column, error) {
	rc, err := source.Open(ctx, src.Path, "")
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return xmlparser.ReadExpressionColumns(rc, m.match)
}

// records returns the keys of the first record verbatim.
type records struct{ opt config.Options }

func (r records) Extract(ctx context.Context, src source.Source) ([]schema.Column, error) {
	rc, err := source.Open(ctx, src.Path, r.opt.String("encoding", ""))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	keys, err := jsonparser.ReadFirstRecordKeys(rc)
	if err != nil {
		return nil, err
	}
	return schema.Columns(keys...), nil
}
