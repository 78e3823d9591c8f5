// Package types defines the domain model shared across the ingestion
// pipeline: production lines, their field mappings, query templates, and
// the records written back to the config store as files are processed.
package types

import "time"

// Line is a single production-line watch configuration.
type Line struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Path          string     `json:"path"`
	Prefix        string     `json:"prefix"`
	IntervalCheck int        `json:"interval_check"` // minutes before MARCHE degrades to ALERTE
	IntervalAlert int        `json:"interval_alert"` // minutes before ALERTE degrades to ARRET
	ArchivedPath  string     `json:"archived_path,omitempty"`
	RejectedPath  string     `json:"rejected_path,omitempty"`
	LogPath       string     `json:"log_path,omitempty"`
	Active        bool       `json:"active"`
	Site          string     `json:"site,omitempty"`
	Unite         string     `json:"unite,omitempty"`
	FlagDec       string     `json:"flag_dec,omitempty"`
	CodeLigne     string     `json:"code_ligne,omitempty"`
	FileFormat    string     `json:"file_format"` // "ATEIS" or "LOGITRON"
	LastFileTime  *time.Time `json:"last_file_time,omitempty"`
	EtatActuel    string     `json:"etat_actuel"` // MARCHE / ALERTE / ARRET / ERREUR
	CreatedAt     time.Time  `json:"created_at"`
}

// Format returns the line's configured file format, defaulting to ATEIS
// the same way the original ingestion core treats an unset format.
func (l *Line) Format() string {
	if l.FileFormat == "" {
		return "ATEIS"
	}
	return l.FileFormat
}

// MappingRow describes how a single output SQL column is populated:
// either copied (and transformed) from a file column, or derived from a
// line-level parameter.
type MappingRow struct {
	ID             int64  `json:"id"`
	LineID         int64  `json:"line_id,omitempty"`
	FormatName     string `json:"format_name,omitempty"`
	SortOrder      int    `json:"sort_order"`
	SQLField       string `json:"sql_field"`
	FileColumn     string `json:"file_column,omitempty"`
	Parameter      string `json:"parameter,omitempty"`
	Transformation string `json:"transformation,omitempty"`
	Description    string `json:"description,omitempty"`
}

// QueryTemplate is the parameterized INSERT statement used for a format.
type QueryTemplate struct {
	FormatName    string `json:"format_name"`
	QueryTemplate string `json:"query_template"`
}

// ProductionDataRecord is the audit row written once per processed file.
type ProductionDataRecord struct {
	ID          int64     `json:"id"`
	LineID      int64     `json:"line_id"`
	Filename    string    `json:"filename"`
	ProcessedAt time.Time `json:"processed_at"`
	Status      string    `json:"status"` // SUCCESS / ERROR
	Message     string    `json:"message"`
}

// LogRecord is a single entry in the logs table surfaced by the dashboard.
type LogRecord struct {
	ID        int64     `json:"id"`
	LineID    int64     `json:"line_id,omitempty"`
	Level     string    `json:"level"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SQLServerConfig is the single-row connection configuration for the
// target SQL Server instance.
type SQLServerConfig struct {
	Server   string `json:"server"`
	Database string `json:"database,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
	Enabled  bool   `json:"enabled"`
}

// ParameterSet resolves line-level parameter names (site, unite,
// flag_dec, code_ligne, ...) for mapping rows whose value does not come
// from the file itself.
type ParameterSet struct {
	Site      string
	Unite     string
	FlagDec   string
	CodeLigne string
}

// ParameterSetFromLine builds a ParameterSet applying the same defaults
// the mapper falls back to when a line leaves a field unset.
func ParameterSetFromLine(l *Line) ParameterSet {
	ps := ParameterSet{
		Site:      l.Site,
		Unite:     l.Unite,
		FlagDec:   l.FlagDec,
		CodeLigne: l.CodeLigne,
	}
	if ps.Unite == "" {
		ps.Unite = "unité"
	}
	if ps.FlagDec == "" {
		ps.FlagDec = "1"
	}
	return ps
}

// DashboardLine is the per-line snapshot served to dashboard clients.
type DashboardLine struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Site           string     `json:"site,omitempty"`
	Active         bool       `json:"active"`
	PendingFiles   int        `json:"pending_files"`
	ErrorFiles     int        `json:"error_files"`
	LastProcessed  *time.Time `json:"last_processed,omitempty"`
	TotalProcessed int        `json:"total_processed"`
	Status         string     `json:"status"`
}

// Dashboard statuses.
const (
	StatusMarche = "MARCHE"
	StatusAlerte = "ALERTE"
	StatusArret  = "ARRET"
	StatusErreur = "ERREUR"
)

// Recognized file formats.
const (
	FormatATEIS    = "ATEIS"
	FormatLogitron = "LOGITRON"
)
