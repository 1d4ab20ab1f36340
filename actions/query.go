package actions

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/relloyd/campaignpipe/helper"
	"github.com/relloyd/campaignpipe/logger"
	"github.com/relloyd/campaignpipe/rdbms"
	"github.com/relloyd/campaignpipe/rdbms/shared"
)

type QueryConfig struct {
	Factory     shared.ConnectionFactory
	Connection  string `errorTxt:"connection name" mandatory:"yes"`
	Query       string `errorTxt:"query" mandatory:"yes"`
	PrintHeader bool
	DryRun      bool
}

// sqlHandler writes query results to w as CSV.
type sqlHandler struct {
	w           *csv.Writer
	printHeader bool
}

func (s *sqlHandler) HandleHeader(i []interface{}) error {
	if s.printHeader {
		if err := s.w.Write(helper.InterfaceToString(i)); err != nil {
			return fmt.Errorf("error outputting SQL header: %v", err)
		}
	}
	return nil
}

func (s *sqlHandler) HandleRow(i []interface{}) error {
	if err := s.w.Write(helper.InterfaceToString(i)); err != nil {
		return fmt.Errorf("error outputting SQL row: %v", err)
	}
	return nil
}

// RunQuery executes cfg.Query against the named connection and writes the rows to out as CSV.
func RunQuery(ctx context.Context, log logger.Logger, cfg *QueryConfig, out io.Writer) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	if cfg.DryRun {
		_, err := fmt.Fprintln(out, cfg.Query)
		return err
	}
	db, err := cfg.Factory.Open(ctx, cfg.Connection)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()
	h := sqlHandler{w: csv.NewWriter(out), printHeader: cfg.PrintHeader}
	err = rdbms.SqlQuery(ctx, log, db, cfg.Query, &h)
	h.w.Flush()
	if err != nil {
		return err
	}
	return h.w.Error()
}
