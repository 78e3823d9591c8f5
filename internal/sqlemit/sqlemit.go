// Package sqlemit connects to the target SQL Server instance and inserts
// mapped rows, grounded on the original ingestion core's
// execute_sql_server_inserts/parse_insert_columns/
// build_param_values_from_query/is_connection_error, reimplemented
// against github.com/denisenkom/go-mssqldb (the pure-Go TDS driver this
// pack carries in its sqldef-sqldef adapter) in place of the original's
// tiberius client.
package sqlemit

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"

	_ "github.com/denisenkom/go-mssqldb"

	apperrors "github.com/RyugaHideki7/visor/pkg/errors"
	"github.com/RyugaHideki7/visor/pkg/types"
)

// connectionErrorMarkers mirrors the original's is_connection_error
// substring list exactly: any of these, found case-insensitively in a
// driver error, classifies the failure as transient (the file is
// restored to its source directory for the next sweep) rather than
// permanent (the file is rejected). The list is kept sorted.
var connectionErrorMarkers = []string{
	"code: 18456",
	"code: 4060",
	"connection",
	"impossible d'ouvrir la base de données",
	"la connexion a échoué",
	"login failed",
	"network",
	"refused",
	"target machine actively refused",
	"tcp provider",
	"timeout",
	"échec de l'ouverture de session",
}

// IsTransient reports whether err looks like a connection-level failure
// rather than a statement-level (permanent) one.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range connectionErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Emitter holds a lazily-opened *sql.DB to the configured SQL Server
// instance. A single Emitter is shared by every line's file processor;
// database/sql pools connections internally.
type Emitter struct {
	mu  sync.Mutex
	db  *sql.DB
	dsn string
}

func New() *Emitter {
	return &Emitter{}
}

// Connect (re)opens the database handle if the configuration changed
// since the last call, mirroring the original's per-file fresh-connect
// behavior but reusing the pool across files when the config is stable.
func (e *Emitter) Connect(cfg *types.SQLServerConfig) error {
	if !cfg.Enabled {
		return apperrors.Of(apperrors.KindSQLConfig, "sqlemit", "connect", "sql server is disabled", nil)
	}
	if cfg.Server == "" || cfg.Username == "" || cfg.Password == "" {
		return apperrors.Of(apperrors.KindSQLConfig, "sqlemit", "connect", "sql server connection is incompletely configured", nil)
	}

	dsn := buildDSN(cfg)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db != nil && e.dsn == dsn {
		return nil
	}
	if e.db != nil {
		e.db.Close()
	}

	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return apperrors.Of(apperrors.KindSQLTransient, "sqlemit", "connect", "failed to open sql server connection", err)
	}
	db.SetMaxOpenConns(5)

	e.db = db
	e.dsn = dsn
	return nil
}

func buildDSN(cfg *types.SQLServerConfig) string {
	host := cfg.Server
	port := "1433"
	if i := strings.LastIndex(cfg.Server, ":"); i >= 0 {
		host = cfg.Server[:i]
		port = cfg.Server[i+1:]
	}

	q := url.Values{}
	q.Set("encrypt", "true")
	q.Set("TrustServerCertificate", "true")
	q.Set("dial timeout", "10")
	q.Set("connection timeout", "10")
	if cfg.Database != "" {
		q.Set("database", cfg.Database)
	}

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     fmt.Sprintf("%s:%s", host, port),
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Close releases the underlying connection pool.
func (e *Emitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}

// ColumnsFromTemplate parses the column list out of an
// "INSERT INTO table (col1, col2, ...) VALUES (...)" template, exactly
// as the original's parse_insert_columns: locate "insert" case
// insensitively, find the first '(' after it, find ") values" (case
// insensitively), and split the substring between on commas.
func ColumnsFromTemplate(query string) []string {
	lower := strings.ToLower(query)
	insertIdx := strings.Index(lower, "insert")
	if insertIdx < 0 {
		return nil
	}
	openIdx := strings.Index(query[insertIdx:], "(")
	if openIdx < 0 {
		return nil
	}
	openIdx += insertIdx

	valuesIdx := strings.Index(strings.ToLower(query[openIdx:]), ") values")
	if valuesIdx < 0 {
		return nil
	}
	closeIdx := openIdx + valuesIdx

	between := query[openIdx+1 : closeIdx]
	rawCols := strings.Split(between, ",")

	cols := make([]string, 0, len(rawCols))
	for _, c := range rawCols {
		c = strings.TrimSpace(c)
		c = strings.Trim(c, "[]")
		if c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

// OrderedValues builds the positional parameter slice for query: if the
// template's column list can be parsed, values are ordered to match it
// (dropping any trailing columns with no bound placeholder, such as a
// literal getdate()); otherwise it falls back to the mapping
// declaration order, matching the original's fallback behavior.
func OrderedValues(query string, mapped map[string]string, declarationOrder []string) []interface{} {
	columns := ColumnsFromTemplate(query)
	placeholders := strings.Count(query, "@P")

	if len(columns) > 0 {
		values := make([]interface{}, 0, len(columns))
		for i, col := range columns {
			if i >= placeholders {
				break
			}
			values = append(values, mapped[col])
		}
		return values
	}

	values := make([]interface{}, 0, len(declarationOrder))
	for i, field := range declarationOrder {
		if i >= placeholders {
			break
		}
		values = append(values, mapped[field])
	}
	return values
}

// Insert executes query against the connected database with the values
// resolved from mapped, stopping at (and returning) the first error, per
// this domain's "no per-row retry" rule.
func (e *Emitter) Insert(ctx context.Context, query string, mappings []types.MappingRow, mapped map[string]string) error {
	e.mu.Lock()
	db := e.db
	e.mu.Unlock()
	if db == nil {
		return apperrors.Of(apperrors.KindSQLConfig, "sqlemit", "insert", "not connected", nil)
	}

	declarationOrder := make([]string, 0, len(mappings))
	for _, m := range mappings {
		declarationOrder = append(declarationOrder, m.SQLField)
	}

	values := OrderedValues(query, mapped, declarationOrder)

	_, err := db.ExecContext(ctx, query, values...)
	if err == nil {
		return nil
	}
	if IsTransient(err) {
		return apperrors.Of(apperrors.KindSQLTransient, "sqlemit", "insert", "sql server connection error", err)
	}
	return apperrors.Of(apperrors.KindSQLPermanent, "sqlemit", "insert", "sql server rejected statement", err)
}
