package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ReportDB handles SQLite persistence of report metadata.
type ReportDB struct {
	db *sql.DB
}

// ReportRecord is one row of report metadata.
type ReportRecord struct {
	JobID       string    `json:"job_id"`
	RequestName string    `json:"request_name"`
	SourceType  string    `json:"source_type"`
	Verdict     string    `json:"verdict"`
	Confidence  int       `json:"confidence"`
	WordCount   int       `json:"word_count"`
	Duration    float64   `json:"duration"`
	GDriveURL   string    `json:"gdrive_url"`
	LocalPath   string    `json:"local_path"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewReportDB opens the report database, creating the schema if needed.
func NewReportDB(dbPath string) (*ReportDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		request_name TEXT NOT NULL,
		source_type TEXT NOT NULL,
		verdict TEXT NOT NULL,
		confidence INTEGER NOT NULL,
		word_count INTEGER,
		duration REAL,
		gdrive_url TEXT,
		local_path TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
	CREATE INDEX IF NOT EXISTS idx_reports_verdict ON reports(verdict);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create table: %v", err)
	}

	return &ReportDB{db: db}, nil
}

// SaveReport inserts one report record.
func (rdb *ReportDB) SaveReport(rec *ReportRecord) error {
	query := `
	INSERT INTO reports (job_id, request_name, source_type, verdict, confidence, word_count, duration, gdrive_url, local_path, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := rdb.db.Exec(query, rec.JobID, rec.RequestName, rec.SourceType,
		rec.Verdict, rec.Confidence, rec.WordCount, rec.Duration,
		rec.GDriveURL, rec.LocalPath, createdAt)
	if err != nil {
		return fmt.Errorf("failed to save report metadata: %v", err)
	}

	return nil
}

// GetReport retrieves one report record by job ID.
func (rdb *ReportDB) GetReport(jobID string) (*ReportRecord, error) {
	query := `
	SELECT job_id, request_name, source_type, verdict, confidence, word_count, duration, gdrive_url, local_path, created_at
	FROM reports WHERE job_id = ?
	`

	var rec ReportRecord
	err := rdb.db.QueryRow(query, jobID).Scan(
		&rec.JobID, &rec.RequestName, &rec.SourceType, &rec.Verdict,
		&rec.Confidence, &rec.WordCount, &rec.Duration, &rec.GDriveURL,
		&rec.LocalPath, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %v", err)
	}

	return &rec, nil
}

// ListReports returns the most recent reports, newest first.
func (rdb *ReportDB) ListReports(limit int) ([]*ReportRecord, error) {
	query := `
	SELECT job_id, request_name, source_type, verdict, confidence, word_count, duration, gdrive_url, local_path, created_at
	FROM reports ORDER BY created_at DESC LIMIT ?
	`

	rows, err := rdb.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %v", err)
	}
	defer rows.Close()

	var reports []*ReportRecord
	for rows.Next() {
		var rec ReportRecord
		if err := rows.Scan(
			&rec.JobID, &rec.RequestName, &rec.SourceType, &rec.Verdict,
			&rec.Confidence, &rec.WordCount, &rec.Duration, &rec.GDriveURL,
			&rec.LocalPath, &rec.CreatedAt); err != nil {
			continue
		}
		reports = append(reports, &rec)
	}

	return reports, nil
}

// Close closes the database connection.
func (rdb *ReportDB) Close() error {
	return rdb.db.Close()
}
