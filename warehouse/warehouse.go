package warehouse

import (
	"context"
)

// ScriptExecutor runs a SQL script against a named connection.
type ScriptExecutor interface {
	Run(ctx context.Context, connectionName string, scriptPath string) error
}

// Loader populates the dimension and fact tables from staging.
type Loader struct {
	Runner               ScriptExecutor
	Connection           string
	LoadDimensionsScript string
	LoadFactScript       string
}

func (l *Loader) LoadDimensions(ctx context.Context) error {
	return l.Runner.Run(ctx, l.Connection, l.LoadDimensionsScript)
}

func (l *Loader) LoadFact(ctx context.Context) error {
	return l.Runner.Run(ctx, l.Connection, l.LoadFactScript)
}

// KPIRefresher rebuilds the KPI views.
type KPIRefresher struct {
	Runner         ScriptExecutor
	Connection     string
	KpiViewsScript string
}

func (k *KPIRefresher) Refresh(ctx context.Context) error {
	return k.Runner.Run(ctx, k.Connection, k.KpiViewsScript)
}
