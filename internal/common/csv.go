package common

import (
	"bufio"
	"io"
	"strings"
)

// CSVWriter writes rows where every field is double-quoted and embedded
// quotes are doubled. encoding/csv only quotes fields that need it, which
// spreadsheet imports of the export do not expect.
type CSVWriter struct {
	w   *bufio.Writer
	err error
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: bufio.NewWriter(w)}
}

func QuoteCSVField(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func (c *CSVWriter) Write(record []string) error {
	if c.err != nil {
		return c.err
	}
	for i, field := range record {
		if i > 0 {
			if c.err = c.w.WriteByte(','); c.err != nil {
				return c.err
			}
		}
		if _, c.err = c.w.WriteString(QuoteCSVField(field)); c.err != nil {
			return c.err
		}
	}
	_, c.err = c.w.WriteString("\n")
	return c.err
}

func (c *CSVWriter) Flush() error {
	if c.err != nil {
		return c.err
	}
	return c.w.Flush()
}
