// Package fileproc implements the per-file state machine: settle,
// quarantine, parse, map, emit, dispose. Grounded line-for-line on the
// original ingestion core's stock::processor::process_file.
package fileproc

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/RyugaHideki7/visor/internal/auditlog"
	vencoding "github.com/RyugaHideki7/visor/internal/encoding"
	"github.com/RyugaHideki7/visor/internal/mapping"
	"github.com/RyugaHideki7/visor/internal/metrics"
	"github.com/RyugaHideki7/visor/internal/sqlemit"
	"github.com/RyugaHideki7/visor/internal/store"
	apperrors "github.com/RyugaHideki7/visor/pkg/errors"
	"github.com/RyugaHideki7/visor/pkg/types"
)

const quarantineDirName = "visor_temp"

// recognizedExtensions are the only extensions a line's watcher and
// processor will pick up, matched case-insensitively.
var recognizedExtensions = []string{".TMP", ".CSV", ".TXT"}

// Processor drives the full file lifecycle for every line.
type Processor struct {
	store   *store.Store
	emitter *sqlemit.Emitter
	audit   *auditlog.Logger
	logger  *logrus.Logger

	settleDelay time.Duration
}

func New(st *store.Store, emitter *sqlemit.Emitter, audit *auditlog.Logger, logger *logrus.Logger, settleDelay time.Duration) *Processor {
	return &Processor{store: st, emitter: emitter, audit: audit, logger: logger, settleDelay: settleDelay}
}

// Recognized reports whether filename matches the line's prefix and a
// recognized extension, case-insensitively — the same predicate the
// directory watcher and the dashboard's pending-file count both use.
func Recognized(filename, prefix string) bool {
	upper := strings.ToUpper(filename)
	if !strings.Contains(upper, strings.ToUpper(prefix)) {
		return false
	}
	for _, ext := range recognizedExtensions {
		if strings.HasSuffix(upper, ext) {
			return true
		}
	}
	return false
}

// ProcessFile runs the complete state machine for a single discovered
// file belonging to line.
func (p *Processor) ProcessFile(ctx context.Context, line *types.Line, path string) error {
	start := time.Now()
	defer func() {
		metrics.FileProcessingDuration.WithLabelValues(line.Name).Observe(time.Since(start).Seconds())
	}()

	correlationID := uuid.NewString()
	log := p.logger.WithFields(logrus.Fields{"line": line.Name, "correlation_id": correlationID})

	if _, err := os.Stat(path); err != nil {
		return nil // file vanished before we got to it; nothing to do
	}

	filename := filepath.Base(path)
	if !Recognized(filename, line.Prefix) {
		return nil
	}
	log = log.WithField("file", filename)

	time.Sleep(p.settleDelay)

	if locked(path) {
		log.Warn("file is locked, deferring")
		return apperrors.ErrFileLocked
	}

	content, err := vencoding.ReadFile(path)
	if err != nil {
		p.logAndRecordFailure(ctx, line, filename, "Lecture du fichier impossible", err)
		return err
	}

	quarantinePath, err := p.quarantine(line, path, filename)
	if err != nil {
		p.logAndRecordFailure(ctx, line, filename, "Mise en quarantaine impossible", err)
		return err
	}

	log.Debug("processing quarantined file")
	result := p.process(ctx, line, quarantinePath, filename, content)
	p.finalize(ctx, line, filename, quarantinePath, result)

	return result.err
}

func locked(path string) bool {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return true
	}
	f.Close()
	return false
}

// quarantine moves the settled file into <source>/visor_temp/ so the
// watcher's own directory scan never re-discovers it mid-processing.
func (p *Processor) quarantine(line *types.Line, path, filename string) (string, error) {
	dir := filepath.Join(filepath.Dir(path), quarantineDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperrors.Of(apperrors.KindDisposeIO, "fileproc", "quarantine", "failed to create quarantine directory", err)
	}

	dest := filepath.Join(dir, fmt.Sprintf("visor_processing_%d_%s", line.ID, filename))
	if err := os.Rename(path, dest); err != nil {
		os.RemoveAll(dir)
		return "", apperrors.Of(apperrors.KindDisposeIO, "fileproc", "quarantine", "failed to move file to quarantine", err)
	}
	return dest, nil
}

type outcome struct {
	err        error
	hadError   bool
	rowCount   int
	sample     map[string]string
	message    string
	restored   bool
}

func (p *Processor) process(ctx context.Context, line *types.Line, quarantinePath, filename, content string) outcome {
	format := line.Format()

	mappings, err := p.store.ModelMappings(ctx, format)
	if err != nil || len(mappings) == 0 {
		return outcome{
			err:      apperrors.ErrNoMapping,
			hadError: true,
			message:  fmt.Sprintf("Aucun mapping configuré pour le modèle %s", format),
		}
	}

	records, err := parseCSV(content)
	if err != nil {
		return outcome{err: apperrors.Of(apperrors.KindParse, "fileproc", "parse", "failed to parse csv content", err), hadError: true, message: "Fichier invalide"}
	}

	params := types.ParameterSetFromLine(line)

	var sample map[string]string
	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		fieldValues := mapping.MapRecord(record, mappings, params)
		row := make(map[string]string, len(fieldValues))
		for _, fv := range fieldValues {
			row[fv.Field] = fv.Value
		}
		if sample == nil {
			sample = row
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return outcome{err: apperrors.ErrParse, hadError: true, message: "Fichier vide ou format invalide", sample: sample}
	}

	insertErr := p.insertAll(ctx, line, format, mappings, rows)
	if insertErr != nil {
		appErr, _ := insertErr.(*apperrors.AppError)
		if appErr != nil && appErr.Kind == apperrors.KindSQLTransient {
			restored := p.tryRestore(line, quarantinePath, filename)
			return outcome{err: insertErr, hadError: true, sample: sample, rowCount: len(rows), restored: restored,
				message: fmt.Sprintf("Connexion SQL Server indisponible: %v", insertErr)}
		}
		return outcome{err: insertErr, hadError: true, sample: sample, rowCount: len(rows),
			message: fmt.Sprintf("Erreur SQL Server: %v", insertErr)}
	}

	return outcome{rowCount: len(rows), sample: sample}
}

func (p *Processor) insertAll(ctx context.Context, line *types.Line, format string, mappings []types.MappingRow, rows []map[string]string) error {
	cfg, err := p.store.SQLServerConfig(ctx)
	if err != nil || !cfg.Enabled {
		return apperrors.ErrSQLConfig
	}
	if err := p.emitter.Connect(cfg); err != nil {
		return err
	}

	query, err := p.store.QueryTemplate(ctx, format)
	if err != nil || query == "" {
		return apperrors.ErrSQLConfig
	}

	for _, row := range rows {
		err := p.emitter.Insert(ctx, query, mappings, row)
		if err != nil {
			p.audit.LogSQL(line.Name, line.LogPath, query, row, false, err.Error())
			metrics.SQLErrorsTotal.WithLabelValues(line.Name, classify(err)).Inc()
			return err // stop at first row error, no per-row retry
		}
		metrics.SQLInsertsTotal.WithLabelValues(line.Name).Inc()
	}
	p.audit.LogSQL(line.Name, line.LogPath, query, nil, true, "")
	return nil
}

func classify(err error) string {
	if sqlemit.IsTransient(err) {
		return "transient"
	}
	return "permanent"
}

func (p *Processor) tryRestore(line *types.Line, quarantinePath, filename string) bool {
	originalPath := filepath.Join(line.Path, filename)
	if err := os.Rename(quarantinePath, originalPath); err != nil {
		p.logger.WithFields(logrus.Fields{"line": line.Name, "file": filename, "error": err}).Error("failed to restore file after transient sql error")
		return false
	}
	p.cleanupQuarantineDir(quarantinePath)
	return true
}

func (p *Processor) cleanupQuarantineDir(quarantinePath string) {
	dir := filepath.Dir(quarantinePath)
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) == 0 {
		os.Remove(dir)
	}
}

// finalize records the production_data row, updates line stats, and
// disposes of the file (archive/reject/delete), unless the file was
// already restored to its source directory for a retry.
func (p *Processor) finalize(ctx context.Context, line *types.Line, filename, quarantinePath string, result outcome) {
	if result.restored {
		p.audit.LogLigne(line.Name, line.LogPath, result.message, "WARNING")
		p.store.AddLog(ctx, line.ID, string(apperrors.SeverityWarning), "SQLServer", "fichier restauré pour nouvelle tentative", result.message)
		p.store.UpdateLineStats(ctx, line.ID, false)
		return
	}

	status := "SUCCESS"
	if result.hadError {
		status = "ERROR"
	}

	messageJSON, _ := json.Marshal(map[string]interface{}{
		"rows":   result.rowCount,
		"sample": result.sample,
		"error":  result.message,
	})

	p.store.RecordProduction(ctx, &types.ProductionDataRecord{
		LineID: line.ID, Filename: filename, ProcessedAt: time.Now(), Status: status, Message: string(messageJSON),
	})
	p.store.UpdateLineStats(ctx, line.ID, !result.hadError)

	metrics.FilesProcessedTotal.WithLabelValues(line.Name, strings.ToLower(status)).Inc()

	if result.hadError {
		p.audit.LogLigne(line.Name, line.LogPath, result.message, "ERROR")
		p.store.AddLog(ctx, line.ID, string(apperrors.SeverityError), "FileProcessor", result.message, "")
		p.disposeError(line, quarantinePath, filename)
		return
	}

	p.audit.LogLigne(line.Name, line.LogPath, fmt.Sprintf("succès - %d enregistrements", result.rowCount), "INFO")
	p.store.AddLog(ctx, line.ID, string(apperrors.SeverityInfo), "FileProcessor", fmt.Sprintf("%d enregistrements traités", result.rowCount), "")
	p.disposeSuccess(line, quarantinePath, filename)
}

func (p *Processor) disposeError(line *types.Line, quarantinePath, filename string) {
	defer p.cleanupQuarantineDir(quarantinePath)

	if line.RejectedPath == "" {
		os.Remove(quarantinePath)
		return
	}
	if err := os.MkdirAll(line.RejectedPath, 0o755); err != nil {
		os.Remove(quarantinePath)
		return
	}
	dest := timestampedPath(line.RejectedPath, filename)
	if err := os.Rename(quarantinePath, dest); err != nil {
		os.Remove(quarantinePath)
	}
}

func (p *Processor) disposeSuccess(line *types.Line, quarantinePath, filename string) {
	defer p.cleanupQuarantineDir(quarantinePath)

	if line.ArchivedPath == "" {
		os.Remove(quarantinePath)
		return
	}
	if err := os.MkdirAll(line.ArchivedPath, 0o755); err != nil {
		os.Remove(quarantinePath)
		return
	}
	dest := timestampedPath(line.ArchivedPath, filename)
	if err := os.Rename(quarantinePath, dest); err != nil {
		os.Remove(quarantinePath)
	}
}

func timestampedPath(dir, filename string) string {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, time.Now().Format("20060102_150405"), ext))
}

func (p *Processor) logAndRecordFailure(ctx context.Context, line *types.Line, filename, message string, cause error) {
	p.logger.WithFields(logrus.Fields{"line": line.Name, "file": filename, "error": cause}).Error(message)
	p.audit.LogLigne(line.Name, line.LogPath, fmt.Sprintf("%s: %v", message, cause), "ERROR")
	p.store.AddLog(ctx, line.ID, string(apperrors.SeverityError), "FileProcessor", message, cause.Error())
	p.store.UpdateLineStats(ctx, line.ID, false)
}

// parseCSV splits content into ';'-delimited records with no header row
// and a flexible field count, matching the original's csv::ReaderBuilder
// configuration.
func parseCSV(content string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		record, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return records, err
		}
		records = append(records, record)
	}
	return records, nil
}
