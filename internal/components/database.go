package components

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // sqlite driver

	"greenscreen/internal/component"
	"greenscreen/internal/dict"
	"greenscreen/internal/logging"
)

// DatabaseType is the database component's type string.
const DatabaseType = "database"

// Database reads or writes one parameterized statement against a SQL
// provider. Only sqlite is wired; the provider switch is where others
// would land.
type Database struct{}

// NewDatabase returns a database component instance.
func NewDatabase() *Database { return &Database{} }

// Type returns the component-type string.
func (d *Database) Type() string { return DatabaseType }

type databaseConfig struct {
	Provider string `json:"provider"`
	// DSN is the driver connection string; for sqlite, a file path.
	DSN   string `json:"dsn"`
	Mode  string `json:"mode,omitempty"` // "read" (default) or "write"
	Query string `json:"query"`
	// Params are positional statement parameters, resolved against the
	// dictionary before binding. Binding, not splicing: values never enter
	// the SQL text.
	Params []string `json:"params,omitempty"`
	// RowsKey, when set on a read, stores the whole result as a serialized
	// JSON row list under this dictionary key, ready for foreach.
	RowsKey        string `json:"rows_key,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

func (c databaseConfig) timeout() time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return 30 * time.Second
}

// Execute runs the statement. Reads put the first row's columns into the
// output data and the dictionary; writes report rows_affected.
func (d *Database) Execute(ctx context.Context, cfg component.Configuration, data dict.Dictionary) *component.Result {
	log := logging.Get(logging.CategoryComponent)

	var conf databaseConfig
	if err := cfg.Decode(&conf); err != nil {
		return component.Fail(component.CodeConfigError, err.Error())
	}
	if conf.DSN == "" || conf.Query == "" {
		return component.Fail(component.CodeConfigError, "dsn and query are required")
	}
	if conf.Provider != "sqlite" {
		return component.Failf(component.CodeUnsupportedProvider, "unsupported provider %q", conf.Provider)
	}
	mode := conf.Mode
	if mode == "" {
		mode = "read"
	}
	if mode != "read" && mode != "write" {
		return component.Failf(component.CodeConfigError, "unknown mode %q", conf.Mode)
	}

	db, err := sql.Open("sqlite", data.Resolve(conf.DSN))
	if err != nil {
		return component.Fail(component.CodeConnectionError, data.Redact(err.Error()))
	}
	defer db.Close()

	opCtx, cancel := context.WithTimeout(ctx, conf.timeout())
	defer cancel()

	if err := db.PingContext(opCtx); err != nil {
		return component.Fail(component.CodeConnectionError, data.Redact(err.Error()))
	}

	args := make([]interface{}, len(conf.Params))
	for i, p := range conf.Params {
		args[i] = data.Resolve(p)
	}

	if mode == "write" {
		res, err := db.ExecContext(opCtx, conf.Query, args...)
		if err != nil {
			return component.Fail(component.CodeQueryError, data.Redact(err.Error()))
		}
		affected, _ := res.RowsAffected()
		out := map[string]string{"rows_affected": fmt.Sprintf("%d", affected)}
		log.Debugw("database write", "rows_affected", affected)
		return component.Success(out)
	}

	rows, err := db.QueryContext(opCtx, conf.Query, args...)
	if err != nil {
		return component.Fail(component.CodeQueryError, data.Redact(err.Error()))
	}
	defer rows.Close()

	records, err := scanAll(rows)
	if err != nil {
		return component.Fail(component.CodeQueryError, data.Redact(err.Error()))
	}
	if len(records) == 0 {
		return component.Fail(component.CodeNoRowsReturned, "query returned no rows")
	}

	out := map[string]string{}
	for k, v := range records[0] {
		out[k] = v
		data.Set(k, v)
	}
	if conf.RowsKey != "" {
		serialized, err := json.Marshal(records)
		if err != nil {
			return component.Fail(component.CodeQueryError, err.Error())
		}
		out[conf.RowsKey] = string(serialized)
		data.Set(conf.RowsKey, string(serialized))
	}
	log.Debugw("database read", "rows", len(records))
	return component.Success(out)
}

// scanAll drains the cursor into string-valued row maps.
func scanAll(rows *sql.Rows) ([]map[string]string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]string
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(map[string]string, len(cols))
		for i, col := range cols {
			rec[col] = stringifyColumn(values[i])
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func stringifyColumn(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

var _ component.Component = (*Database)(nil)
