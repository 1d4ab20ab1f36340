package shared

import (
	"fmt"
	"strings"

	om "github.com/cevaris/ordered_map"
	"github.com/relloyd/campaignpipe/logger"
)

// Bind variable styles supported by the SQL text generators.
const (
	BindStyleDollar   = "$" // $1, $2, ... e.g. PostgreSQL.
	BindStyleQuestion = "?" // ?, ?, ... e.g. SQLite.
)

type DmlGeneratorTxtBatch struct {
	BindStyle string
	// UseDelete causes TruncateStatement to return a DELETE for databases without a transactional TRUNCATE.
	UseDelete bool
}

func (d *DmlGeneratorTxtBatch) TruncateStatement(schema string, table string) string {
	name := table
	if schema != "" {
		name = schema + "." + table
	}
	if d.UseDelete {
		return fmt.Sprintf("delete from %v", name)
	}
	return fmt.Sprintf("truncate table %v", name)
}

type SqlStatementGeneratorConfig struct {
	Log             logger.Logger
	OutputSchema    string
	SchemaSeparator string
	OutputTable     string
	TargetCols      *om.OrderedMap // ordered map of: key = record field name; value = target table column name
	BindStyle       string         // defaults to the style of the DmlGenerator.
}

type sqlCoreCfg struct {
	sqlStmt                string
	sqlStmtTemplate        string
	sqlValues              []interface{} // slice to hold data values for all rows in batch
	batchSize              int
	rowsInBatch            int
	previousNumRowsInBatch int
}

// getBindVariable returns the bind variable text for 1-based position idx.
func getBindVariable(style string, idx int) string {
	switch style {
	case BindStyleQuestion:
		return "?"
	default:
		return fmt.Sprintf("$%v", idx)
	}
}

// getValuesRows returns "( b1,b2 ),( b3,b4 )" for numRows rows of numCols bind variables.
func getValuesRows(style string, numRows int, numCols int) string {
	allRows := strings.Builder{}
	valIdx := 1
	for rowIdx := 0; rowIdx < numRows; rowIdx++ {
		row := make([]string, numCols)
		for idy := 0; idy < numCols; idy++ {
			row[idy] = getBindVariable(style, valIdx)
			valIdx++
		}
		if rowIdx > 0 {
			allRows.WriteString(",")
		}
		allRows.WriteString(fmt.Sprintf("( %v )", strings.Join(row, ",")))
	}
	return allRows.String()
}
