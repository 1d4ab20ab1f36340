package rdbms

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/relloyd/campaignpipe/constants"
	"github.com/relloyd/campaignpipe/logger"
	"github.com/relloyd/campaignpipe/rdbms/shared"
)

// supportedConnectionTypes is a map where keys are the supported connections based on values in module constants.
var supportedConnectionTypes = map[string]struct{}{
	constants.ConnectionTypePostgres: {},
	constants.ConnectionTypeSqlite:   {},
}

// IsSupportedConnection returns true if it can look up the supplied connection type in map of supported
// connections supportedConnectionTypes.
func IsSupportedConnection(connectionType string) bool {
	_, ok := supportedConnectionTypes[connectionType]
	return ok
}

// OpenDbConnection opens a database connection using the supplied ConnectionDetails struct in c.
func OpenDbConnection(ctx context.Context, log logger.Logger, c shared.ConnectionDetails) (db shared.Connector, err error) {
	log.Debug("opening connection type ", c.Type, " with logicalName ", c.LogicalName) // don't log password details in c.Data!
	switch c.Type {
	case constants.ConnectionTypePostgres:
		db, err = newConnectionWithDsn(ctx, log, shared.GetDsnConnectionDetails(&c))
	case constants.ConnectionTypeSqlite:
		db, err = newSqliteConnection(ctx, log, c.Data[shared.DefaultConnectionKeyNames.Path])
	default:
		err = fmt.Errorf("unsupported database type, %q", c.Type)
	}
	return
}

func newConnectionWithDsn(ctx context.Context, log logger.Logger, d *shared.DsnConnectionDetails) (shared.Connector, error) {
	log.Info("Opening database connection: ", d)
	u, err := d.Parse()
	if err != nil { // if the DSN could not be parsed...
		return nil, errors.Wrapf(err, "error parsing DSN %q", d)
	}
	// Create the new Connector.
	conn := &shared.HpConnection{
		Dml:    &shared.DmlGeneratorTxtBatch{BindStyle: shared.BindStyleDollar},
		DbType: constants.ConnectionTypePostgres,
	}
	// Open the connection.
	conn.DbSql, err = sql.Open(u.Driver, u.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening connection to %v", d)
	}
	// Test the connection.
	if err = conn.DbSql.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "error connecting to %v", d)
	}
	log.Info("Successful connection to: ", d)
	return conn, nil
}

func newSqliteConnection(ctx context.Context, log logger.Logger, path string) (shared.Connector, error) {
	if path == "" {
		return nil, errors.New("missing path for sqlite3 connection")
	}
	log.Info("Opening sqlite3 database: ", path)
	conn := &shared.HpConnection{
		Dml:    &shared.DmlGeneratorTxtBatch{BindStyle: shared.BindStyleQuestion, UseDelete: true},
		DbType: constants.ConnectionTypeSqlite,
	}
	var err error
	conn.DbSql, err = sql.Open(constants.ConnectionTypeSqlite, path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening sqlite3 database %v", path)
	}
	if err = conn.DbSql.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "error connecting to sqlite3 database %v", path)
	}
	return conn, nil
}

// ConnectionFactory implements shared.ConnectionFactory by loading ConnectionDetails by name
// and opening a new connection on every call.
type ConnectionFactory struct {
	log    logger.Logger
	getter shared.ConnectionGetter
}

func NewConnectionFactory(log logger.Logger, getter shared.ConnectionGetter) *ConnectionFactory {
	return &ConnectionFactory{log: log, getter: getter}
}

func (f *ConnectionFactory) Open(ctx context.Context, connectionName string) (shared.Connector, error) {
	c, err := f.getter.LoadConnection(connectionName)
	if err != nil {
		return nil, errors.Wrapf(err, "error loading connection %q", connectionName)
	}
	return OpenDbConnection(ctx, f.log, c)
}
