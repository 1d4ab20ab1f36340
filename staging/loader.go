// Package staging reloads the staging table from the processed dataset.
package staging

import (
	"context"
	"os"
	"sort"

	om "github.com/cevaris/ordered_map"
	"github.com/pkg/errors"
	"github.com/relloyd/campaignpipe/campaign"
	"github.com/relloyd/campaignpipe/constants"
	"github.com/relloyd/campaignpipe/helper"
	"github.com/relloyd/campaignpipe/logger"
	"github.com/relloyd/campaignpipe/rdbms"
	"github.com/relloyd/campaignpipe/rdbms/shared"
)

type Options struct {
	InputPath  string `errorTxt:"processed dataset path" mandatory:"yes"`
	Connection string `errorTxt:"staging connection name" mandatory:"yes"`
	Table      string `errorTxt:"staging table" mandatory:"yes"`
	// BatchSize is the number of rows held in memory before they are sent to the database.
	BatchSize int
	// TxtBatchNumRows is the number of rows per multi-row INSERT statement.
	TxtBatchNumRows int
	// Mapping of processed column to staging column. Defaults to ColumnMapping().
	Mapping *om.OrderedMap
}

type Loader struct {
	log     logger.Logger
	opts    Options
	factory shared.ConnectionFactory
}

func NewLoader(log logger.Logger, opts Options, factory shared.ConnectionFactory) *Loader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = constants.StagingBatchSizeDefault
	}
	if opts.TxtBatchNumRows <= 0 {
		opts.TxtBatchNumRows = constants.StagingTxtBatchNumRowsDefault
	}
	if opts.TxtBatchNumRows > opts.BatchSize {
		opts.TxtBatchNumRows = opts.BatchSize
	}
	if opts.Mapping == nil {
		opts.Mapping = ColumnMapping()
	}
	return &Loader{log: log, opts: opts, factory: factory}
}

// Load replaces the contents of the staging table with the rows of the processed dataset.
// All rows are removed and inserted within one transaction so a failure leaves the previous
// contents in place. It returns the number of rows loaded.
func (l *Loader) Load(ctx context.Context) (rowsLoaded int, err error) {
	if err = helper.ValidateStructIsPopulated(l.opts); err != nil {
		return 0, err
	}
	st, err := rdbms.ParseSchemaTable(l.opts.Table)
	if err != nil {
		return 0, err
	}
	getters, err := getValueGetters(l.opts.Mapping)
	if err != nil {
		return 0, err
	}
	l.log.Debug("staging column mapping: ", helper.OrderedMapToTokens(l.opts.Mapping))
	// Open the input before touching the database.
	in, err := os.Open(l.opts.InputPath)
	if os.IsNotExist(err) {
		return 0, &campaign.MissingInputError{Path: l.opts.InputPath, Err: err}
	} else if err != nil {
		return 0, errors.Wrapf(err, "error opening %v", l.opts.InputPath)
	}
	defer in.Close()
	db, err := l.factory.Open(ctx, l.opts.Connection)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = db.Close()
	}()
	dml := db.GetDmlGenerator()
	gen, err := dml.NewInsertGenerator(&shared.SqlStatementGeneratorConfig{
		Log:          l.log,
		OutputSchema: st.Schema,
		OutputTable:  st.Table,
		TargetCols:   l.opts.Mapping,
	})
	if err != nil {
		return 0, err
	}
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "error starting staging transaction")
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				l.log.Warn("error rolling back staging transaction: ", rbErr)
			} else {
				l.log.Info("staging transaction rolled back; ", st, " is unchanged")
			}
		}
	}()
	truncateSql := dml.TruncateStatement(st.Schema, st.Table)
	l.log.Debug("executing: ", truncateSql)
	if _, err = tx.ExecContext(ctx, truncateSql); err != nil {
		return 0, errors.Wrapf(err, "error removing rows from %v", st)
	}
	// Read and insert rows in batches.
	b := &batchWriter{log: l.log, tx: tx, gen: gen, txtBatchNumRows: l.opts.TxtBatchNumRows}
	pending := make([][]interface{}, 0, l.opts.BatchSize)
	coercionFailures := make(map[string]int)
	err = campaign.ReadProcessed(in, func(row int, rec campaign.ProcessedRecord, errs []error) error {
		for _, e := range errs { // for each value that was set to null...
			var ce *campaign.TypeCoercionError
			if errors.As(e, &ce) {
				coercionFailures[ce.Column]++
			}
			l.log.Debug("row ", row, ": ", e)
		}
		values := make([]interface{}, len(getters))
		for idx, g := range getters {
			values[idx] = g(&rec)
		}
		pending = append(pending, values)
		if len(pending) >= l.opts.BatchSize { // if the batch is full...
			if err := b.write(ctx, pending); err != nil {
				return errors.Wrapf(err, "error loading batch ending at row %v", row)
			}
			pending = pending[:0]
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "error loading %v into %v", l.opts.InputPath, st)
	}
	if err = b.write(ctx, pending); err != nil {
		return 0, errors.Wrapf(err, "error loading final batch into %v", st)
	}
	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "error committing staging transaction")
	}
	committed = true
	l.log.Info("loaded ", b.rowsWritten, " rows into ", st)
	l.logCoercionFailures(coercionFailures)
	return b.rowsWritten, nil
}

func (l *Loader) logCoercionFailures(counts map[string]int) {
	cols := make([]string, 0, len(counts))
	for k := range counts {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	for _, c := range cols {
		l.log.Info("column ", c, ": ", counts[c], " value(s) could not be coerced and were loaded as NULL")
	}
}

// batchWriter executes rows as multi-row INSERT statements of at most txtBatchNumRows rows.
type batchWriter struct {
	log             logger.Logger
	tx              shared.Transacter
	gen             shared.SqlStmtTxtBatcher
	txtBatchNumRows int
	batchNum        int
	rowsWritten     int
}

func (b *batchWriter) write(ctx context.Context, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	b.batchNum++
	for start := 0; start < len(rows); start += b.txtBatchNumRows {
		end := start + b.txtBatchNumRows
		if end > len(rows) {
			end = len(rows)
		}
		b.gen.InitBatch(end - start)
		for _, values := range rows[start:end] {
			if _, err := b.gen.AddValuesToBatch(values); err != nil {
				return err
			}
		}
		if _, err := b.tx.ExecContext(ctx, b.gen.GetStatement(), b.gen.GetValues()...); err != nil {
			return err
		}
	}
	b.rowsWritten += len(rows)
	b.log.Debug("batch ", b.batchNum, ": inserted ", len(rows), " rows (total ", b.rowsWritten, ")")
	return nil
}
