package actions

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/campaignpipe/config"
	"github.com/relloyd/campaignpipe/constants"
	"github.com/relloyd/campaignpipe/logger"
	"github.com/relloyd/campaignpipe/pipeline"
	"github.com/relloyd/campaignpipe/rdbms"
	"github.com/relloyd/campaignpipe/rdbms/shared"
	"github.com/relloyd/campaignpipe/staging"
	"github.com/relloyd/campaignpipe/transformer"
	"github.com/relloyd/campaignpipe/warehouse"
)

// PipeConfig holds what is needed to build the marketing pipeline.
type PipeConfig struct {
	Config *config.Config `errorTxt:"config" mandatory:"yes"`
	// Factory opens named connections. Defaults to an rdbms.ConnectionFactory over Config.
	Factory shared.ConnectionFactory
	// Sleeper is used between retry attempts. Defaults to a timer.
	Sleeper pipeline.Sleeper
	// NewS3Getter is used when the raw dataset is on S3. Defaults to the AWS SDK client.
	NewS3Getter transformer.S3GetterFactory
}

// NewMarketingPipeline returns the pipeline:
// transform -> load_staging -> load_dimensions -> load_fact -> refresh_kpis
func NewMarketingPipeline(log logger.Logger, pc *PipeConfig) *pipeline.Pipeline {
	cfg := pc.Config
	factory := pc.Factory
	if factory == nil {
		factory = rdbms.NewConnectionFactory(log, cfg)
	}
	retry := pipeline.RetryPolicy{MaxRetries: cfg.Retry.MaxRetries, Delay: cfg.RetryDelay()}
	p := pipeline.NewPipeline(log, constants.PipelineName)
	if pc.Sleeper != nil {
		p.SetSleeper(pc.Sleeper)
	}
	// scriptTask runs one warehouse script with the run id of the current run.
	scriptTask := func(fn func(ctx context.Context, runner warehouse.ScriptExecutor) error) pipeline.TaskFunc {
		return func(ctx context.Context) error {
			runId, _ := pipeline.RunIdFromContext(ctx)
			return fn(ctx, warehouse.NewScriptRunner(log, factory, ScriptParams(cfg, runId)))
		}
	}
	p.AddTask(pipeline.Task{
		Name:  constants.TaskTransform,
		Retry: &retry,
		Run: func(ctx context.Context) error {
			_, err := newTransformer(log, pc).Run(ctx)
			return err
		},
	})
	p.AddTask(pipeline.Task{
		Name:     constants.TaskLoadStaging,
		Upstream: []string{constants.TaskTransform},
		Retry:    &retry,
		Run: func(ctx context.Context) error {
			_, err := newStagingLoader(log, cfg, factory).Load(ctx)
			return err
		},
	})
	p.AddTask(pipeline.Task{
		Name:     constants.TaskLoadDimensions,
		Upstream: []string{constants.TaskLoadStaging},
		Retry:    &retry,
		Run: scriptTask(func(ctx context.Context, runner warehouse.ScriptExecutor) error {
			return newWarehouseLoader(cfg, runner).LoadDimensions(ctx)
		}),
	})
	p.AddTask(pipeline.Task{
		Name:     constants.TaskLoadFact,
		Upstream: []string{constants.TaskLoadDimensions},
		Retry:    &retry,
		Run: scriptTask(func(ctx context.Context, runner warehouse.ScriptExecutor) error {
			return newWarehouseLoader(cfg, runner).LoadFact(ctx)
		}),
	})
	p.AddTask(pipeline.Task{
		Name:     constants.TaskRefreshKpis,
		Upstream: []string{constants.TaskLoadFact},
		Retry:    &retry,
		Run: scriptTask(func(ctx context.Context, runner warehouse.ScriptExecutor) error {
			k := &warehouse.KPIRefresher{Runner: runner, Connection: cfg.Warehouse.Connection, KpiViewsScript: cfg.Warehouse.KpiViewsScript}
			return k.Refresh(ctx)
		}),
	})
	return p
}

// ScriptParams returns the values substituted into warehouse scripts.
// Configured params are applied first so that staging_table and run_id always reflect this run.
func ScriptParams(cfg *config.Config, runId string) map[string]string {
	params := make(map[string]string, len(cfg.Warehouse.Params)+2)
	for k, v := range cfg.Warehouse.Params {
		params[k] = v
	}
	params[constants.SqlParamStagingTable] = cfg.Staging.Table
	if runId != "" {
		params[constants.SqlParamRunId] = runId
	}
	return params
}

func newTransformer(log logger.Logger, pc *PipeConfig) *transformer.Transformer {
	return transformer.NewTransformer(log, transformer.Options{
		RawPath:       pc.Config.Transform.RawPath,
		ProcessedPath: pc.Config.Transform.ProcessedPath,
		S3Region:      pc.Config.Transform.S3Region,
		NewS3Getter:   pc.NewS3Getter,
	})
}

func newStagingLoader(log logger.Logger, cfg *config.Config, factory shared.ConnectionFactory) *staging.Loader {
	return staging.NewLoader(log, staging.Options{
		InputPath:       cfg.StagingInputPath(),
		Connection:      cfg.Staging.Connection,
		Table:           cfg.Staging.Table,
		BatchSize:       cfg.Staging.BatchSize,
		TxtBatchNumRows: cfg.Staging.TxtBatchNumRows,
	}, factory)
}

func newWarehouseLoader(cfg *config.Config, runner warehouse.ScriptExecutor) *warehouse.Loader {
	return &warehouse.Loader{
		Runner:               runner,
		Connection:           cfg.Warehouse.Connection,
		LoadDimensionsScript: cfg.Warehouse.LoadDimensionsScript,
		LoadFactScript:       cfg.Warehouse.LoadFactScript,
	}
}

// RunPipeline executes the marketing pipeline once and writes the run report to out in the given format.
// The report is written even when the run fails.
func RunPipeline(ctx context.Context, log logger.Logger, pc *PipeConfig, out io.Writer, format string) (*pipeline.RunReport, error) {
	if pc == nil || pc.Config == nil {
		return nil, fmt.Errorf("nil pointer for pipe config supplied")
	}
	if err := pc.Config.Validate(); err != nil {
		return nil, err
	}
	p := NewMarketingPipeline(log, pc)
	report, runErr := p.Run(ctx, pipeline.Trigger{Time: time.Now(), Source: "cli"})
	if report == nil {
		return nil, runErr
	}
	if out != nil {
		b, err := report.Format(format)
		if err != nil {
			return report, err
		}
		if _, err = fmt.Fprintln(out, string(b)); err != nil {
			return report, errors.Wrap(err, "unable to write run report")
		}
	}
	return report, runErr
}

// RunTransform runs the transformer on its own.
func RunTransform(ctx context.Context, log logger.Logger, pc *PipeConfig) (*transformer.Stats, error) {
	if pc == nil || pc.Config == nil {
		return nil, fmt.Errorf("nil pointer for pipe config supplied")
	}
	return newTransformer(log, pc).Run(ctx)
}

// RunLoadStaging runs the staging loader on its own.
func RunLoadStaging(ctx context.Context, log logger.Logger, pc *PipeConfig) (int, error) {
	if pc == nil || pc.Config == nil {
		return 0, fmt.Errorf("nil pointer for pipe config supplied")
	}
	factory := pc.Factory
	if factory == nil {
		factory = rdbms.NewConnectionFactory(log, pc.Config)
	}
	return newStagingLoader(log, pc.Config, factory).Load(ctx)
}
