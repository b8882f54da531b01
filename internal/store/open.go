package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/db"
)

// Drivers accepted by Open.
const (
	DriverMongo    = "mongo"
	DriverOxiDB    = "oxidb"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Driver string

	MongoURL string
	Database string

	OxiDBHost     string
	OxiDBPort     int
	OxiDBPoolSize int

	SQLitePath  string
	PostgresURL string

	Timeout time.Duration
}

// Open connects to the configured backend.
func Open(ctx context.Context, opts Options, log *zap.Logger) (Database, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch opts.Driver {
	case DriverMongo, "":
		return NewMongo(connectCtx, opts.MongoURL, opts.Database, timeout)
	case DriverOxiDB:
		pool, err := db.NewPool(connectCtx, opts.OxiDBHost, opts.OxiDBPort, opts.OxiDBPoolSize, timeout, log)
		if err != nil {
			return nil, err
		}
		return NewOxiDB(pool), nil
	case DriverSQLite:
		return NewSQLite(connectCtx, opts.SQLitePath)
	case DriverPostgres:
		return NewPostgres(connectCtx, opts.PostgresURL)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", opts.Driver)
	}
}
