// Package warehouse executes the SQL scripts that load the dimensional model and refresh the KPI views.
package warehouse

import (
	"context"
	"io/ioutil"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/campaignpipe/campaign"
	"github.com/relloyd/campaignpipe/logger"
	"github.com/relloyd/campaignpipe/rdbms/shared"
)

var reScriptParam = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ScriptRunner executes SQL script files as one unit of work.
type ScriptRunner struct {
	log     logger.Logger
	factory shared.ConnectionFactory
	params  map[string]string
}

// NewScriptRunner returns a ScriptRunner that replaces ${name} in scripts with params[name].
func NewScriptRunner(log logger.Logger, factory shared.ConnectionFactory, params map[string]string) *ScriptRunner {
	p := make(map[string]string, len(params))
	for k, v := range params {
		p[k] = v
	}
	return &ScriptRunner{log: log, factory: factory, params: p}
}

// Run executes the script at scriptPath against the named connection inside one transaction.
// Unresolved parameters are an error and nothing is executed.
func (r *ScriptRunner) Run(ctx context.Context, connectionName string, scriptPath string) error {
	b, err := ioutil.ReadFile(scriptPath)
	if os.IsNotExist(err) {
		return &campaign.MissingInputError{Path: scriptPath, Err: err}
	} else if err != nil {
		return errors.Wrapf(err, "error reading script %v", scriptPath)
	}
	sqlText, err := SubstituteParams(string(b), r.params)
	if err != nil {
		return errors.Wrapf(err, "error preparing script %v", scriptPath)
	}
	if strings.TrimSpace(sqlText) == "" {
		r.log.Warn("script ", scriptPath, " is empty; nothing to execute")
		return nil
	}
	db, err := r.factory.Open(ctx, connectionName)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return errors.Wrapf(err, "error starting transaction for script %v", scriptPath)
	}
	r.log.Info("executing script ", scriptPath, " on connection ", connectionName)
	if _, err = tx.ExecContext(ctx, sqlText); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.log.Warn("error rolling back script ", scriptPath, ": ", rbErr)
		}
		return errors.Wrapf(err, "error executing script %v", scriptPath)
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrapf(err, "error committing script %v", scriptPath)
	}
	r.log.Info("script ", scriptPath, " complete")
	return nil
}

// SubstituteParams replaces every ${name} in sqlText with params[name].
// It returns an error naming all parameters that have no value.
func SubstituteParams(sqlText string, params map[string]string) (string, error) {
	missing := make(map[string]struct{})
	out := reScriptParam.ReplaceAllStringFunc(sqlText, func(m string) string {
		name := reScriptParam.FindStringSubmatch(m)[1]
		v, ok := params[name]
		if !ok {
			missing[name] = struct{}{}
			return m
		}
		return v
	})
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for k := range missing {
			names = append(names, k)
		}
		sort.Strings(names)
		return "", errors.Errorf("unresolved script parameters: %v", strings.Join(names, ", "))
	}
	return out, nil
}
