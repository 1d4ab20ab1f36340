package actions

import (
	"context"

	"github.com/relloyd/campaignpipe/config"
	"github.com/relloyd/campaignpipe/helper"
	"github.com/relloyd/campaignpipe/logger"
	"github.com/relloyd/campaignpipe/rdbms"
	"github.com/relloyd/campaignpipe/rdbms/shared"
	"github.com/relloyd/campaignpipe/warehouse"
)

type ExecSqlConfig struct {
	Config     *config.Config `errorTxt:"config" mandatory:"yes"`
	Factory    shared.ConnectionFactory
	Connection string `errorTxt:"connection name" mandatory:"yes"`
	ScriptPath string `errorTxt:"script" mandatory:"yes"`
	RunId      string
}

// RunExecSql runs one script through the warehouse script runner with the configured params.
func RunExecSql(ctx context.Context, log logger.Logger, cfg *ExecSqlConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	factory := cfg.Factory
	if factory == nil {
		factory = rdbms.NewConnectionFactory(log, cfg.Config)
	}
	return warehouse.NewScriptRunner(log, factory, ScriptParams(cfg.Config, cfg.RunId)).
		Run(ctx, cfg.Connection, cfg.ScriptPath)
}
