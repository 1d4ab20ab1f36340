package shared

import (
	"strings"

	h "github.com/relloyd/campaignpipe/helper"

	"github.com/pkg/errors"
)

// SqlInsertTxtBatch implements interface SqlStmtTxtBatcher
// and is able to generate multi-row INSERT statements with batches of rows supplied.
type SqlInsertTxtBatch struct {
	SqlStatementGeneratorConfig // mandatory to be populated.
	sqlCoreCfg
	ColList []string // list of columns extracted from SqlStatementGeneratorConfig.
}

// NewInsertGenerator creates a new SqlStmtTxtBatcher.
// Configure defaults in SqlStatementGeneratorConfig.
func (d *DmlGeneratorTxtBatch) NewInsertGenerator(cfg *SqlStatementGeneratorConfig) (SqlStmtTxtBatcher, error) {
	if err := FixSqlStatementGeneratorConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "error creating INSERT generator")
	}
	if cfg.BindStyle == "" {
		cfg.BindStyle = d.BindStyle
	}
	cfg.Log.Debug("Creating NewInsertGenerator")
	o := &SqlInsertTxtBatch{SqlStatementGeneratorConfig: *cfg}
	if err := o.setupSqlStatement(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *SqlInsertTxtBatch) setupSqlStatement() (err error) {
	// Build the list of column names.
	o.ColList, err = h.OrderedMapValuesToStringSlice(o.TargetCols)
	if err != nil {
		return errors.Wrap(err, "error building INSERT column list")
	}
	// Populate the SQL template.
	o.sqlStmtTemplate = `insert into <SCHEMA><SEPARATOR><TABLE> (<TGT-COLS>) values <VALUES>`
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<SCHEMA>", o.OutputSchema, 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<SEPARATOR>", o.SchemaSeparator, 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TABLE>", o.OutputTable, 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TGT-COLS>", strings.Join(o.ColList, ","), 1)
	o.Log.Debug("setup INSERT generator with SQL (VALUES pending): ", o.sqlStmtTemplate)
	return nil
}

func (o *SqlInsertTxtBatch) InitBatch(batchSize int) {
	o.batchSize = batchSize
	o.rowsInBatch = 0
	// Allocate a new buffer to hold all values (args) to exec.
	o.sqlValues = make([]interface{}, 0, o.batchSize*len(o.ColList)) // many values per row in a batch.
}

func (o *SqlInsertTxtBatch) AddValuesToBatch(values []interface{}) (batchIsFull bool, err error) {
	if o.rowsInBatch >= o.batchSize {
		err = errors.New("no more rows allowed in INSERT batch")
		batchIsFull = true
		return
	}
	if len(values) != len(o.ColList) {
		err = errors.New("the number of values supplied does not match the number of table columns")
		return
	}
	// Append values to buffer.
	o.sqlValues = append(o.sqlValues, values...)
	o.rowsInBatch++                  // keep track of how close we are to the batch limit.
	if o.rowsInBatch < o.batchSize { // if the batch has room for more values...
		batchIsFull = false // set batch is NOT full
	} else {
		batchIsFull = true // set batch is full - caller should exec SQL.
	}
	return
}

func (o *SqlInsertTxtBatch) GetValues() []interface{} {
	return o.sqlValues
}

func (o *SqlInsertTxtBatch) GetRowCount() int {
	return o.rowsInBatch
}

// GetStatement returns the INSERT for the rows added so far.
// The SQL is cached while the number of rows per batch stays the same.
func (o *SqlInsertTxtBatch) GetStatement() string {
	if o.sqlStmt == "" || o.previousNumRowsInBatch != o.rowsInBatch { // if we need to generate SQL...
		o.sqlStmt = strings.Replace(o.sqlStmtTemplate, "<VALUES>", getValuesRows(o.BindStyle, o.rowsInBatch, len(o.ColList)), 1)
		o.previousNumRowsInBatch = o.rowsInBatch
		o.Log.Debug("SQL batch INSERT generated statement: ", o.sqlStmt)
	} // else we have the same number of rows and can use cached SQL...
	return o.sqlStmt
}
