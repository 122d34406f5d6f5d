// Package feed reads product rows from a CSV input file.
package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"imagefeed/internal/models"
)

const (
	nameColumn = "product_name"
	urlsColumn = "image_urls"
)

// Reader streams Rows out of a CSV document. The header row must name a
// product_name column and an image_urls column; anything else in the
// schema is ignored.
type Reader struct {
	csv     *csv.Reader
	nameIdx int
	urlsIdx int
}

func NewReader(r io.Reader) (*Reader, error) {
	const op = "feed.NewReader"

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", op, err)
	}

	nameIdx, urlsIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(strings.ToLower(col)) {
		case nameColumn:
			nameIdx = i
		case urlsColumn:
			urlsIdx = i
		}
	}
	if nameIdx < 0 || urlsIdx < 0 {
		return nil, fmt.Errorf("%s: header must contain %q and %q columns", op, nameColumn, urlsColumn)
	}

	return &Reader{csv: cr, nameIdx: nameIdx, urlsIdx: urlsIdx}, nil
}

// Next returns the next row of the feed, or io.EOF when the input is
// exhausted. The URL cell is split on commas with surrounding
// whitespace trimmed; empty entries are dropped.
func (r *Reader) Next() (models.Row, error) {
	const op = "feed.Next"

	record, err := r.csv.Read()
	if err == io.EOF {
		return models.Row{}, io.EOF
	}
	if err != nil {
		return models.Row{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(record) <= r.nameIdx || len(record) <= r.urlsIdx {
		return models.Row{}, fmt.Errorf("%s: record has %d fields, need %d", op, len(record), max(r.nameIdx, r.urlsIdx)+1)
	}

	var urls []string
	for _, u := range strings.Split(record[r.urlsIdx], ",") {
		u = strings.TrimSpace(u)
		if u != "" {
			urls = append(urls, u)
		}
	}

	return models.Row{
		ProductName: strings.TrimSpace(record[r.nameIdx]),
		ImageURLs:   urls,
	}, nil
}
