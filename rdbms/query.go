package rdbms

import (
	"context"

	"github.com/pkg/errors"
	"github.com/relloyd/campaignpipe/logger"
	"github.com/relloyd/campaignpipe/rdbms/shared"
)

type SqlResultHandler interface {
	HandleHeader(i []interface{}) error
	HandleRow(i []interface{}) error
}

// SqlQuery executes sqltext and passes the column names and each row to the handler i.
func SqlQuery(ctx context.Context, log logger.Logger, db shared.Connector, sqltext string, i SqlResultHandler) error {
	rows, err := db.QueryContext(ctx, sqltext)
	if err != nil {
		return errors.Wrapf(err, "error during database query using SQL: '%v'", sqltext)
	}
	defer func() {
		_ = rows.Close()
	}()
	cols, err := rows.Columns()
	if err != nil {
		return errors.Wrap(err, "error fetching column names")
	}
	log.Debug("query columns = ", cols)
	// Scan the values dynamically.
	lenCols := len(cols)
	scanPtrs := make([]interface{}, lenCols)
	scanVals := make([]interface{}, lenCols)
	for idx := 0; idx < lenCols; idx++ { // for each column...
		scanPtrs[idx] = &scanVals[idx] // save the value.
	}
	// Build and send the header.
	header := make([]interface{}, lenCols)
	for idx := range cols {
		header[idx] = cols[idx]
	}
	if err = i.HandleHeader(header); err != nil {
		return err
	}
	// Send the rows via callback interface.
	for rows.Next() {
		if err = ctx.Err(); err != nil { // quit if asked to, else continue...
			return err
		}
		if err = rows.Scan(scanPtrs...); err != nil {
			return errors.Wrap(err, "error scanning row")
		}
		// Make a new row.
		row := make([]interface{}, lenCols)
		for idx := range scanVals { // for each value...
			if b, ok := scanVals[idx].([]byte); ok { // copy driver-owned bytes.
				row[idx] = string(b)
			} else {
				row[idx] = scanVals[idx]
			}
		}
		// Send the row.
		if err = i.HandleRow(row); err != nil {
			return err
		}
	}
	return rows.Err()
}
