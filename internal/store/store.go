// Package store persists scan records in SQLite. Detail arrays are stored
// as JSON text columns and timestamps as unix seconds.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pagepulse/pagepulse/internal/logging"
	"github.com/pagepulse/pagepulse/internal/model"

	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed schema.sql
var schemaFS embed.FS

var (
	// ErrNotFound is returned when no scan exists for the given id.
	ErrNotFound = errors.New("scan not found")

	// ErrTerminal is returned when a state transition targets a scan that
	// already completed or failed.
	ErrTerminal = errors.New("scan already in a terminal state")
)

// Store wraps the SQLite database holding scan records.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// New opens (creating if needed) the scan database under storageRoot and
// applies the schema.
func New(storageRoot string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		return nil, errors.New("store: nil logger provided")
	}

	if err := os.MkdirAll(storageRoot, 0755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	dbPath := filepath.Join(storageRoot, "pagepulse.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info("store initialized", logging.Field{Key: "path", Value: dbPath})

	return &Store{
		db:     db,
		logger: logger.With(logging.Field{Key: "component", Value: "store"}),
	}, nil
}

// applySchema sets pragmas and executes the embedded schema.
func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new pending scan for the URL and returns it.
func (s *Store) Create(ctx context.Context, url string) (*model.Scan, error) {
	now := time.Now().UTC()
	scan := &model.Scan{
		ID:        uuid.New().String(),
		URL:       url,
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (id, url, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		scan.ID, scan.URL, string(scan.Status), now.Unix(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("insert scan: %w", err)
	}

	s.logger.Debug("scan created",
		logging.Field{Key: "id", Value: scan.ID},
		logging.Field{Key: "url", Value: url})

	return scan, nil
}

const scanColumns = `id, url, cms_type, status, failed_step,
	lighthouse_performance, lighthouse_accessibility, lighthouse_seo,
	cta_score, cta_details, form_friction_score, form_details,
	trust_signals, mobile_issues, readability_score, image_issues,
	schema_detected, screenshot_path, created_at, updated_at`

// Get returns the scan with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*model.Scan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE id = ?`, id)

	scan, err := s.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query scan %s: %w", id, err)
	}
	return scan, nil
}

// List returns scans newest first. A non-positive limit returns all rows.
func (s *Store) List(ctx context.Context, limit int) ([]*model.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	scans := []*model.Scan{}
	for rows.Next() {
		scan, err := s.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		scans = append(scans, scan)
	}
	return scans, rows.Err()
}

// PendingIDs returns the ids of all pending scans, oldest first. Used at
// startup to recover scans whose queue slot was lost in a shutdown.
func (s *Store) PendingIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM scans WHERE status = ? ORDER BY created_at, id`,
		string(model.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("list pending scans: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetProcessing transitions a scan to processing. Terminal scans are left
// untouched and reported via ErrTerminal.
func (s *Store) SetProcessing(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET status = ?, updated_at = ?
		 WHERE id = ? AND status NOT IN (?, ?)`,
		string(model.StatusProcessing), time.Now().UTC().Unix(),
		id, string(model.StatusCompleted), string(model.StatusFailed))
	if err != nil {
		return fmt.Errorf("set processing: %w", err)
	}
	return s.checkTransition(ctx, res, id)
}

// SaveResults writes a completed run's accumulated results and marks the
// scan completed, in one statement. Terminal scans are never overwritten.
func (s *Store) SaveResults(ctx context.Context, id string, result *model.AnalysisResult) error {
	ctaDetails, err := marshalDetails(result.CTADetails)
	if err != nil {
		return fmt.Errorf("marshal cta details: %w", err)
	}
	formDetails, err := marshalDetails(result.FormDetails)
	if err != nil {
		return fmt.Errorf("marshal form details: %w", err)
	}
	trustSignals, err := marshalDetails(result.TrustSignals)
	if err != nil {
		return fmt.Errorf("marshal trust signals: %w", err)
	}
	mobileIssues, err := marshalDetails(result.MobileIssues)
	if err != nil {
		return fmt.Errorf("marshal mobile issues: %w", err)
	}
	imageIssues, err := marshalDetails(result.ImageIssues)
	if err != nil {
		return fmt.Errorf("marshal image issues: %w", err)
	}
	schemaDetected, err := marshalDetails(result.SchemaDetected)
	if err != nil {
		return fmt.Errorf("marshal schema entries: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET
			status = ?,
			failed_step = NULL,
			lighthouse_performance = ?,
			lighthouse_accessibility = ?,
			lighthouse_seo = ?,
			cta_score = ?,
			cta_details = ?,
			form_friction_score = ?,
			form_details = ?,
			trust_signals = ?,
			mobile_issues = ?,
			readability_score = ?,
			image_issues = ?,
			schema_detected = ?,
			screenshot_path = ?,
			updated_at = ?
		 WHERE id = ? AND status NOT IN (?, ?)`,
		string(model.StatusCompleted),
		nullableInt(result.LighthousePerformance),
		nullableInt(result.LighthouseAccessibility),
		nullableInt(result.LighthouseSEO),
		nullableInt(result.CTAScore),
		ctaDetails,
		nullableInt(result.FormFrictionScore),
		formDetails,
		trustSignals,
		mobileIssues,
		nullableInt(result.ReadabilityScore),
		imageIssues,
		schemaDetected,
		nullableString(result.ScreenshotPath),
		time.Now().UTC().Unix(),
		id, string(model.StatusCompleted), string(model.StatusFailed))
	if err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	return s.checkTransition(ctx, res, id)
}

// SetFailed marks a scan failed at the given step. Terminal scans are left
// untouched and reported via ErrTerminal.
func (s *Store) SetFailed(ctx context.Context, id, step string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET status = ?, failed_step = ?, updated_at = ?
		 WHERE id = ? AND status NOT IN (?, ?)`,
		string(model.StatusFailed), step, time.Now().UTC().Unix(),
		id, string(model.StatusCompleted), string(model.StatusFailed))
	if err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return s.checkTransition(ctx, res, id)
}

// FailIfStale fails one processing scan whose last update is older than
// staleAfter, recording "timeout" as the failed step. It reports whether
// the row changed.
func (s *Store) FailIfStale(ctx context.Context, id string, staleAfter time.Duration) (bool, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET status = ?, failed_step = 'timeout', updated_at = ?
		 WHERE id = ? AND status = ? AND updated_at < ?`,
		string(model.StatusFailed), now.Unix(),
		id, string(model.StatusProcessing), now.Add(-staleAfter).Unix())
	if err != nil {
		return false, fmt.Errorf("fail stale scan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkStaleAsFailed fails every processing scan whose last update is older
// than staleAfter and returns how many rows changed.
func (s *Store) MarkStaleAsFailed(ctx context.Context, staleAfter time.Duration) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET status = ?, failed_step = 'timeout', updated_at = ?
		 WHERE status = ? AND updated_at < ?`,
		string(model.StatusFailed), now.Unix(),
		string(model.StatusProcessing), now.Add(-staleAfter).Unix())
	if err != nil {
		return 0, fmt.Errorf("mark stale scans: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes the scan row, or returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete scan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// checkTransition disambiguates a zero-row update: either the scan does not
// exist or it is already terminal.
func (s *Store) checkTransition(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM scans WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s", ErrTerminal, id, status)
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanRow(row rowScanner) (*model.Scan, error) {
	var (
		scan                            model.Scan
		status                          string
		cmsType, failedStep, screenshot sql.NullString
		lhPerf, lhAccess, lhSEO         sql.NullInt64
		ctaScore, formScore, readScore  sql.NullInt64
		ctaDetails, formDetails         sql.NullString
		trustSignals, mobileIssues      sql.NullString
		imageIssues, schemaDetected     sql.NullString
		createdAt, updatedAt            int64
	)

	err := row.Scan(
		&scan.ID, &scan.URL, &cmsType, &status, &failedStep,
		&lhPerf, &lhAccess, &lhSEO,
		&ctaScore, &ctaDetails, &formScore, &formDetails,
		&trustSignals, &mobileIssues, &readScore, &imageIssues,
		&schemaDetected, &screenshot, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	scan.Status = model.Status(status)
	scan.CMSType = stringPtr(cmsType)
	scan.FailedStep = stringPtr(failedStep)
	scan.LighthousePerformance = intPtr(lhPerf)
	scan.LighthouseAccessibility = intPtr(lhAccess)
	scan.LighthouseSEO = intPtr(lhSEO)
	scan.CTAScore = intPtr(ctaScore)
	scan.FormFrictionScore = intPtr(formScore)
	scan.ReadabilityScore = intPtr(readScore)
	scan.ScreenshotPath = stringPtr(screenshot)
	scan.CreatedAt = time.Unix(createdAt, 0).UTC()
	scan.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	s.decodeColumn(scan.ID, "cta_details", ctaDetails, &scan.CTADetails)
	s.decodeColumn(scan.ID, "form_details", formDetails, &scan.FormDetails)
	s.decodeColumn(scan.ID, "trust_signals", trustSignals, &scan.TrustSignals)
	s.decodeColumn(scan.ID, "mobile_issues", mobileIssues, &scan.MobileIssues)
	s.decodeColumn(scan.ID, "image_issues", imageIssues, &scan.ImageIssues)
	s.decodeColumn(scan.ID, "schema_detected", schemaDetected, &scan.SchemaDetected)

	return &scan, nil
}

// decodeColumn unmarshals a JSON detail column. A corrupt column is logged
// and surfaces as an empty field rather than failing the whole read.
func (s *Store) decodeColumn(id, column string, col sql.NullString, dst any) {
	if !col.Valid || col.String == "" {
		return
	}
	if err := json.Unmarshal([]byte(col.String), dst); err != nil {
		s.logger.Warn("corrupt detail column",
			logging.Field{Key: "id", Value: id},
			logging.Field{Key: "column", Value: column},
			logging.Field{Key: "error", Value: err.Error()})
	}
}

func marshalDetails(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
