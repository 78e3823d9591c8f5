// Package store wraps the embedded SQLite configuration database: lines,
// their mapping tables, SQL Server connection settings, query templates,
// and the production-data/logs audit tables. Grounded on the embedded
// SQLite engine pattern from the retrieved pack (WAL mode, additive
// migrations, a single *sql.DB shared under a connection cap).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/RyugaHideki7/visor/pkg/types"
)

// Store is the handle every other component uses to read and write the
// embedded configuration database.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the SQLite database at path, running
// schema creation and additive migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(5)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the underlying database connection is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS lines (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			prefix TEXT NOT NULL,
			interval_check INTEGER DEFAULT 60,
			interval_alert INTEGER DEFAULT 120,
			archived_path TEXT,
			rejected_path TEXT,
			log_path TEXT,
			active INTEGER DEFAULT 1,
			site TEXT,
			unite TEXT,
			flag_dec TEXT,
			code_ligne TEXT,
			file_format TEXT DEFAULT 'ATEIS',
			last_file_time DATETIME,
			etat_actuel TEXT DEFAULT 'ARRET',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS mappings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			line_id INTEGER NOT NULL,
			sort_order INTEGER DEFAULT 0,
			sql_field TEXT NOT NULL,
			file_column TEXT,
			parameter TEXT,
			transformation TEXT,
			description TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS model_mappings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			format_name TEXT NOT NULL,
			sort_order INTEGER DEFAULT 0,
			sql_field TEXT NOT NULL,
			file_column TEXT,
			parameter TEXT,
			transformation TEXT,
			description TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS sql_queries (
			format_name TEXT PRIMARY KEY,
			query_template TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sql_server_config (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			server TEXT,
			database TEXT,
			username TEXT,
			password TEXT,
			enabled INTEGER DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS production_data (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			line_id INTEGER,
			filename TEXT,
			processed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			status TEXT,
			message TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			line_id INTEGER,
			level TEXT,
			source TEXT,
			message TEXT,
			details TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`INSERT OR IGNORE INTO sql_server_config (id, enabled) VALUES (1, 0)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}

	// Additive migrations for columns introduced after the initial
	// release; errors are swallowed because sqlite has no "IF NOT
	// EXISTS" clause for ALTER TABLE ADD COLUMN and the column may
	// already be present.
	migrations := []string{
		`ALTER TABLE lines ADD COLUMN rejected_path TEXT`,
		`ALTER TABLE lines ADD COLUMN log_path TEXT`,
		`ALTER TABLE lines ADD COLUMN file_format TEXT DEFAULT 'ATEIS'`,
		`ALTER TABLE lines ADD COLUMN etat_actuel TEXT DEFAULT 'ARRET'`,
		`ALTER TABLE lines ADD COLUMN last_file_time DATETIME`,
	}
	for _, stmt := range migrations {
		s.db.Exec(stmt) //nolint:errcheck
	}

	return s.seedDefaults()
}

func (s *Store) seedDefaults() error {
	for _, fmtName := range []string{types.FormatATEIS, types.FormatLogitron} {
		var count int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM model_mappings WHERE format_name = ?`, fmtName).Scan(&count); err != nil {
			return err
		}
		if count == 0 {
			if err := s.saveModelMappings(fmtName, defaultMappingsFor(fmtName)); err != nil {
				return err
			}
		}

		var qcount int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM sql_queries WHERE format_name = ?`, fmtName).Scan(&qcount); err != nil {
			return err
		}
		if qcount == 0 {
			if _, err := s.db.Exec(`INSERT INTO sql_queries (format_name, query_template) VALUES (?, ?)`, fmtName, defaultQueryFor(fmtName)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ListActiveLines returns every line with active = true.
func (s *Store) ListActiveLines(ctx context.Context) ([]*types.Line, error) {
	return s.queryLines(ctx, `WHERE active = 1`)
}

// ListLines returns every configured line, ordered newest-first.
func (s *Store) ListLines(ctx context.Context) ([]*types.Line, error) {
	return s.queryLines(ctx, ``)
}

func (s *Store) queryLines(ctx context.Context, whereClause string) ([]*types.Line, error) {
	query := `SELECT id, name, path, prefix, interval_check, interval_alert,
		COALESCE(archived_path,''), COALESCE(rejected_path,''), COALESCE(log_path,''),
		active, COALESCE(site,''), COALESCE(unite,''), COALESCE(flag_dec,''), COALESCE(code_ligne,''),
		COALESCE(file_format,'ATEIS'), last_file_time, COALESCE(etat_actuel,'ARRET'), created_at
		FROM lines ` + whereClause + ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*types.Line
	for rows.Next() {
		l := &types.Line{}
		var lastFileTime sql.NullTime
		if err := rows.Scan(&l.ID, &l.Name, &l.Path, &l.Prefix, &l.IntervalCheck, &l.IntervalAlert,
			&l.ArchivedPath, &l.RejectedPath, &l.LogPath, &l.Active, &l.Site, &l.Unite, &l.FlagDec,
			&l.CodeLigne, &l.FileFormat, &lastFileTime, &l.EtatActuel, &l.CreatedAt); err != nil {
			return nil, err
		}
		if lastFileTime.Valid {
			l.LastFileTime = &lastFileTime.Time
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// GetLine loads a single line by ID.
func (s *Store) GetLine(ctx context.Context, id int64) (*types.Line, error) {
	lines, err := s.queryLines(ctx, fmt.Sprintf("WHERE id = %d", id))
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, sql.ErrNoRows
	}
	return lines[0], nil
}

// UpdateLineStats records the outcome of the most recent file processed
// for a line, mirroring the original's update_line_stats.
func (s *Store) UpdateLineStats(ctx context.Context, lineID int64, success bool) error {
	state := types.StatusErreur
	if success {
		state = types.StatusMarche
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE lines SET last_file_time = ?, etat_actuel = ? WHERE id = ?`,
		time.Now(), state, lineID)
	return err
}

// ModelMappings loads the ordered mapping rows for a file format, the
// only mapping source the ingestion core consults.
func (s *Store) ModelMappings(ctx context.Context, formatName string) ([]types.MappingRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, format_name, sort_order, sql_field, COALESCE(file_column,''), COALESCE(parameter,''), COALESCE(transformation,''), COALESCE(description,'')
		 FROM model_mappings WHERE format_name = ? ORDER BY sort_order, id`, formatName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.MappingRow
	for rows.Next() {
		var m types.MappingRow
		if err := rows.Scan(&m.ID, &m.FormatName, &m.SortOrder, &m.SQLField, &m.FileColumn, &m.Parameter, &m.Transformation, &m.Description); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) saveModelMappings(formatName string, rows []types.MappingRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM model_mappings WHERE format_name = ?`, formatName); err != nil {
		return err
	}
	for i, m := range rows {
		order := m.SortOrder
		if order == 0 {
			order = i
		}
		if _, err := tx.Exec(
			`INSERT INTO model_mappings (format_name, sort_order, sql_field, file_column, parameter, transformation, description)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			formatName, order, m.SQLField, m.FileColumn, m.Parameter, m.Transformation, m.Description); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// QueryTemplate loads the INSERT statement registered for formatName.
func (s *Store) QueryTemplate(ctx context.Context, formatName string) (string, error) {
	var q string
	err := s.db.QueryRowContext(ctx, `SELECT query_template FROM sql_queries WHERE format_name = ?`, formatName).Scan(&q)
	return q, err
}

// SQLServerConfig loads the single-row SQL Server connection settings.
func (s *Store) SQLServerConfig(ctx context.Context) (*types.SQLServerConfig, error) {
	cfg := &types.SQLServerConfig{}
	var server, database, username, password sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT server, database, username, password, enabled FROM sql_server_config WHERE id = 1`).
		Scan(&server, &database, &username, &password, &cfg.Enabled)
	if err != nil {
		return nil, err
	}
	cfg.Server = server.String
	cfg.Database = database.String
	cfg.Username = username.String
	cfg.Password = password.String
	return cfg, nil
}

// RecordProduction appends the audit row for a processed file.
func (s *Store) RecordProduction(ctx context.Context, rec *types.ProductionDataRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO production_data (line_id, filename, processed_at, status, message) VALUES (?, ?, ?, ?, ?)`,
		rec.LineID, rec.Filename, rec.ProcessedAt, rec.Status, rec.Message)
	return err
}

// AddLog appends a row to the logs table surfaced by the dashboard.
func (s *Store) AddLog(ctx context.Context, lineID int64, level, source, message, details string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (line_id, level, source, message, details, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		lineID, level, source, message, details, time.Now())
	return err
}

// LastProcessed returns the most recent production_data.processed_at for
// a line, or nil if the line has never produced a record.
func (s *Store) LastProcessed(ctx context.Context, lineID int64) (*time.Time, error) {
	var t sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT processed_at FROM production_data WHERE line_id = ? ORDER BY processed_at DESC LIMIT 1`, lineID).Scan(&t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !t.Valid {
		return nil, nil
	}
	return &t.Time, nil
}

// CountSuccessSince counts SUCCESS production_data rows for a line with
// processed_at on or after since.
func (s *Store) CountSuccessSince(ctx context.Context, lineID int64, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM production_data WHERE line_id = ? AND status = 'SUCCESS' AND processed_at >= ?`,
		lineID, since).Scan(&n)
	return n, err
}
