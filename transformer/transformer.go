// Package transformer converts the raw campaign dataset into the processed dataset.
package transformer

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/relloyd/campaignpipe/aws/s3"
	"github.com/relloyd/campaignpipe/campaign"
	"github.com/relloyd/campaignpipe/file"
	"github.com/relloyd/campaignpipe/helper"
	"github.com/relloyd/campaignpipe/logger"
)

// S3GetterFactory returns a Getter for the bucket.
type S3GetterFactory func(bucket string, region string) (s3.Getter, error)

type Options struct {
	RawPath       string `errorTxt:"raw dataset path" mandatory:"yes"`
	ProcessedPath string `errorTxt:"processed dataset path" mandatory:"yes"`
	S3Region      string
	// NewS3Getter is used for s3:// input paths. Defaults to the AWS SDK client.
	NewS3Getter S3GetterFactory
}

type Stats struct {
	RowsRead         int            `json:"rowsRead" yaml:"rowsRead"`
	RowsWritten      int            `json:"rowsWritten" yaml:"rowsWritten"`
	CoercionFailures map[string]int `json:"coercionFailures" yaml:"coercionFailures"` // count of values set to null per column
}

type Transformer struct {
	log  logger.Logger
	opts Options
}

func NewTransformer(log logger.Logger, opts Options) *Transformer {
	if opts.NewS3Getter == nil {
		opts.NewS3Getter = func(bucket string, region string) (s3.Getter, error) {
			return s3.NewBasicClient(bucket, region, "")
		}
	}
	return &Transformer{log: log, opts: opts}
}

// Run reads the raw dataset, coerces types, derives metrics and replaces the processed dataset.
// The processed file is only replaced if every row was written.
func (t *Transformer) Run(ctx context.Context) (*Stats, error) {
	if err := helper.ValidateStructIsPopulated(t.opts); err != nil {
		return nil, err
	}
	t.log.Info("transforming ", t.opts.RawPath, " to ", t.opts.ProcessedPath)
	in, err := t.openInput(ctx)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	out, err := file.NewAtomicFileOutput(t.log, t.opts.ProcessedPath)
	if err != nil {
		return nil, err
	}
	defer out.Cleanup()
	w, err := campaign.NewProcessedWriter(out)
	if err != nil {
		return nil, err
	}
	stats := &Stats{CoercionFailures: make(map[string]int)}
	err = campaign.ReadRaw(in, func(row int, rec campaign.RawCampaignRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.RowsRead++
		p, errs := campaign.Process(rec)
		for _, e := range errs { // for each value that was set to null...
			var ce *campaign.TypeCoercionError
			if errors.As(e, &ce) {
				stats.CoercionFailures[ce.Column]++
			}
			t.log.Debug("row ", row, ": ", e)
		}
		if err := w.Write(p); err != nil {
			return errors.Wrapf(err, "error writing processed row %v", row)
		}
		stats.RowsWritten++
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error transforming %v", t.opts.RawPath)
	}
	if err = w.Flush(); err != nil {
		return nil, errors.Wrap(err, "error flushing processed dataset")
	}
	if err = out.Commit(); err != nil {
		return nil, err
	}
	t.logStats(stats)
	return stats, nil
}

func (t *Transformer) logStats(stats *Stats) {
	t.log.Info("transform complete: rows read = ", stats.RowsRead, ", rows written = ", stats.RowsWritten)
	cols := make([]string, 0, len(stats.CoercionFailures))
	for k := range stats.CoercionFailures {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	for _, c := range cols {
		t.log.Info("column ", c, ": ", stats.CoercionFailures[c], " value(s) could not be coerced and were set to null")
	}
}

// openInput opens the raw dataset from a local path or an s3:// URL.
func (t *Transformer) openInput(ctx context.Context) (io.ReadCloser, error) {
	if !s3.IsS3URL(t.opts.RawPath) {
		f, err := os.Open(t.opts.RawPath)
		if os.IsNotExist(err) {
			return nil, &campaign.MissingInputError{Path: t.opts.RawPath, Err: err}
		} else if err != nil {
			return nil, errors.Wrapf(err, "error opening %v", t.opts.RawPath)
		}
		return f, nil
	}
	obj, err := s3.ParseS3URL(t.opts.RawPath)
	if err != nil {
		return nil, err
	}
	getter, err := t.opts.NewS3Getter(obj.Bucket, t.opts.S3Region)
	if err != nil {
		return nil, err
	}
	t.log.Debug("fetching ", obj)
	b, err := getter.Get(ctx, obj.Key)
	if err == s3.ErrKeyNotFound {
		return nil, &campaign.MissingInputError{Path: t.opts.RawPath, Err: err}
	} else if err != nil {
		return nil, err
	}
	return ioutil.NopCloser(bytes.NewReader(b)), nil
}
