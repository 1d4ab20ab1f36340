package campaign

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/pkg/errors"
)

// RawHeader lists the columns expected in the raw dataset.
var RawHeader = mustHeader(RawCampaignRecord{})

// ProcessedHeader lists the columns written to the processed dataset, in order.
var ProcessedHeader = mustHeader(ProcessedRecord{})

func mustHeader(v interface{}) []string {
	h, err := csvutil.Header(v, "csv")
	if err != nil {
		panic(err)
	}
	return h
}

// ReadRaw decodes every row of the raw dataset found in r and calls fn for each one.
// Row numbers start at 1 for the first data row.
// An error is returned if the header is missing any of the columns in RawHeader.
func ReadRaw(r io.Reader, fn func(row int, rec RawCampaignRecord) error) error {
	dec, err := newDecoder(r, RawHeader)
	if err != nil {
		return err
	}
	for row := 1; ; row++ {
		var rec RawCampaignRecord
		if err := dec.Decode(&rec); err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrapf(err, "error decoding raw row %v", row)
		}
		if err := fn(row, rec); err != nil {
			return err
		}
	}
}

// ReadProcessed decodes every row of the processed dataset found in r and calls fn for each one.
// Values that cannot be coerced are null in rec and reported to fn as *TypeCoercionError.
func ReadProcessed(r io.Reader, fn func(row int, rec ProcessedRecord, coercionErrs []error) error) error {
	dec, err := newDecoder(r, ProcessedHeader)
	if err != nil {
		return err
	}
	for row := 1; ; row++ {
		var txt ProcessedText
		if err := dec.Decode(&txt); err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrapf(err, "error decoding processed row %v", row)
		}
		rec, errs := txt.Coerce()
		if err := fn(row, rec, errs); err != nil {
			return err
		}
	}
}

var utf8Bom = []byte{0xEF, 0xBB, 0xBF}

// skipBom drops a leading UTF-8 byte order mark as written by spreadsheet exports.
func skipBom(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8Bom)); err == nil && bytes.Equal(b, utf8Bom) {
		_, _ = br.Discard(len(utf8Bom))
	}
	return br
}

func newDecoder(r io.Reader, required []string) (*csvutil.Decoder, error) {
	cr := csv.NewReader(skipBom(r))
	cr.ReuseRecord = true
	dec, err := csvutil.NewDecoder(cr)
	if err == io.EOF {
		return nil, errors.New("dataset is empty: no header row found")
	} else if err != nil {
		return nil, errors.Wrap(err, "error reading dataset header")
	}
	found := make(map[string]struct{}, len(dec.Header()))
	for _, h := range dec.Header() {
		found[h] = struct{}{}
	}
	for _, h := range required {
		if _, ok := found[h]; !ok {
			return nil, errors.Errorf("dataset header is missing column %q", h)
		}
	}
	return dec, nil
}

// ProcessedWriter encodes ProcessedRecords as CSV. The header is written on creation.
type ProcessedWriter struct {
	w   *csv.Writer
	enc *csvutil.Encoder
}

func NewProcessedWriter(w io.Writer) (*ProcessedWriter, error) {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(ProcessedRecord{}); err != nil {
		return nil, errors.Wrap(err, "error writing processed header")
	}
	return &ProcessedWriter{w: cw, enc: enc}, nil
}

func (p *ProcessedWriter) Write(rec ProcessedRecord) error {
	return p.enc.Encode(rec)
}

// Flush writes any buffered rows to the underlying writer.
func (p *ProcessedWriter) Flush() error {
	p.w.Flush()
	return p.w.Error()
}
