package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"dongmoa/eventworker/internal/event"
)

const schema = `
CREATE TABLE IF NOT EXISTS districts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	name_en TEXT NOT NULL DEFAULT '',
	code TEXT NOT NULL UNIQUE,
	is_active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS data_sources (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	url TEXT NOT NULL,
	district_id INTEGER NOT NULL REFERENCES districts(id),
	is_active INTEGER NOT NULL DEFAULT 1,
	last_collected_at TIMESTAMP,
	config TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	start_at TIMESTAMP NOT NULL,
	end_at TIMESTAMP,
	start_time TEXT NOT NULL DEFAULT '',
	end_time TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	age_min INTEGER NOT NULL DEFAULT 0,
	age_max INTEGER NOT NULL DEFAULT 999,
	target_groups TEXT NOT NULL DEFAULT '[]',
	is_free INTEGER NOT NULL DEFAULT 1,
	fee TEXT NOT NULL DEFAULT '',
	original_url TEXT NOT NULL DEFAULT '',
	registration_url TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '문화',
	organizer TEXT NOT NULL DEFAULT '',
	contact TEXT NOT NULL DEFAULT '',
	district_id INTEGER NOT NULL REFERENCES districts(id),
	data_source_id INTEGER NOT NULL REFERENCES data_sources(id),
	view_count INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_synced_at TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_events_identity
	ON events(title, start_at) WHERE is_active = 1;

CREATE TABLE IF NOT EXISTS collection_logs (
	id TEXT PRIMARY KEY,
	data_source_id INTEGER NOT NULL REFERENCES data_sources(id),
	status TEXT NOT NULL,
	events_collected INTEGER NOT NULL DEFAULT 0,
	events_added INTEGER NOT NULL DEFAULT 0,
	events_updated INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP NOT NULL
);
`

// SQLiteStore implements Store on a sqlite database file
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database and applies the
// schema.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma foreign_keys: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma journal_mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for health checks
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Districts

func (s *SQLiteStore) ListDistricts(ctx context.Context) ([]*event.District, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, name_en, code, is_active FROM districts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list districts: %w", err)
	}
	defer rows.Close()

	var districts []*event.District
	for rows.Next() {
		var d event.District
		if err := rows.Scan(&d.ID, &d.Name, &d.NameEn, &d.Code, &d.IsActive); err != nil {
			return nil, fmt.Errorf("scan district: %w", err)
		}
		districts = append(districts, &d)
	}
	return districts, rows.Err()
}

func (s *SQLiteStore) CreateDistrict(ctx context.Context, d *event.District) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO districts (name, name_en, code, is_active) VALUES (?, ?, ?, ?)`,
		d.Name, d.NameEn, d.Code, d.IsActive)
	if err != nil {
		return fmt.Errorf("insert district %q: %w", d.Code, err)
	}
	d.ID, err = res.LastInsertId()
	return err
}

// Sources

const sourceColumns = `s.id, s.name, s.kind, s.url, s.district_id, s.is_active,
	s.last_collected_at, s.config, s.created_at,
	d.id, d.name, d.name_en, d.code, d.is_active`

func scanSource(scanner interface{ Scan(...any) error }) (*event.SourceDescriptor, error) {
	var src event.SourceDescriptor
	var district event.District
	var lastCollected sql.NullTime
	err := scanner.Scan(
		&src.ID, &src.Name, &src.Kind, &src.URL, &src.DistrictID, &src.IsActive,
		&lastCollected, &src.Config, &src.CreatedAt,
		&district.ID, &district.Name, &district.NameEn, &district.Code, &district.IsActive,
	)
	if err != nil {
		return nil, err
	}
	if lastCollected.Valid {
		src.LastCollectedAt = &lastCollected.Time
	}
	src.District = &district
	return &src, nil
}

func (s *SQLiteStore) querySources(ctx context.Context, where string, args ...any) ([]*event.SourceDescriptor, error) {
	query := `SELECT ` + sourceColumns + `
		FROM data_sources s JOIN districts d ON d.id = s.district_id ` + where
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []*event.SourceDescriptor
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func (s *SQLiteStore) ListSources(ctx context.Context, districtID int64) ([]*event.SourceDescriptor, error) {
	if districtID > 0 {
		return s.querySources(ctx, `WHERE s.district_id = ? ORDER BY s.created_at DESC`, districtID)
	}
	return s.querySources(ctx, `ORDER BY s.created_at DESC`)
}

func (s *SQLiteStore) ListEnabledSources(ctx context.Context) ([]*event.SourceDescriptor, error) {
	return s.querySources(ctx, `WHERE s.is_active = 1 AND d.is_active = 1 ORDER BY s.id`)
}

func (s *SQLiteStore) GetSource(ctx context.Context, id int64) (*event.SourceDescriptor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sourceColumns+`
		FROM data_sources s JOIN districts d ON d.id = s.district_id WHERE s.id = ?`, id)
	src, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get source %d: %w", id, err)
	}
	return src, nil
}

func (s *SQLiteStore) CreateSource(ctx context.Context, src *event.SourceDescriptor) error {
	src.CreatedAt = time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO data_sources (name, kind, url, district_id, is_active, config, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		src.Name, src.Kind, src.URL, src.DistrictID, src.IsActive, src.Config, src.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert source %q: %w", src.Name, err)
	}
	src.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) UpdateSource(ctx context.Context, src *event.SourceDescriptor) error {
	// Kind is immutable; it is deliberately absent from the SET list
	_, err := s.db.ExecContext(ctx,
		`UPDATE data_sources SET name = ?, url = ?, district_id = ?, is_active = ?, config = ?
		 WHERE id = ?`,
		src.Name, src.URL, src.DistrictID, src.IsActive, src.Config, src.ID)
	if err != nil {
		return fmt.Errorf("update source %d: %w", src.ID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteSource(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM data_sources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete source %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) TouchSourceCollected(ctx context.Context, id int64, at time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE data_sources SET last_collected_at = ? WHERE id = ?`, at, id); err != nil {
		return fmt.Errorf("touch source %d: %w", id, err)
	}
	return nil
}

// Events

func (s *SQLiteStore) FindEventByIdentity(ctx context.Context, title string, startAt time.Time) (*event.PersistedEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, start_at, end_at, start_time, end_time,
			location, address, age_min, age_max, target_groups, is_free, fee,
			original_url, registration_url, image_url, category, organizer,
			contact, district_id, data_source_id, view_count, is_active,
			created_at, updated_at, last_synced_at
		FROM events WHERE title = ? AND start_at = ? AND is_active = 1`,
		title, startAt)

	var ev event.PersistedEvent
	var endAt, lastSynced sql.NullTime
	var targetGroups string
	err := row.Scan(
		&ev.ID, &ev.Title, &ev.Description, &ev.StartAt, &endAt, &ev.StartTime, &ev.EndTime,
		&ev.Location, &ev.Address, &ev.AgeMin, &ev.AgeMax, &targetGroups, &ev.IsFree, &ev.Fee,
		&ev.OriginalURL, &ev.RegistrationURL, &ev.ImageURL, &ev.Category, &ev.Organizer,
		&ev.Contact, &ev.DistrictID, &ev.DataSourceID, &ev.ViewCount, &ev.IsActive,
		&ev.CreatedAt, &ev.UpdatedAt, &lastSynced,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find event by identity: %w", err)
	}
	if endAt.Valid {
		ev.EndAt = &endAt.Time
	}
	if lastSynced.Valid {
		ev.LastSyncedAt = &lastSynced.Time
	}
	if targetGroups != "" {
		_ = json.Unmarshal([]byte(targetGroups), &ev.TargetGroups)
	}
	return &ev, nil
}

func (s *SQLiteStore) InsertEvent(ctx context.Context, ev *event.PersistedEvent) error {
	targetGroups, err := json.Marshal(ev.TargetGroups)
	if err != nil {
		return fmt.Errorf("marshal target groups: %w", err)
	}
	now := time.Now()
	ev.CreatedAt = now
	ev.UpdatedAt = now
	ev.IsActive = true

	var endAt any
	if ev.EndAt != nil {
		endAt = *ev.EndAt
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO events (title, description, start_at, end_at, start_time, end_time,
			location, address, age_min, age_max, target_groups, is_free, fee,
			original_url, registration_url, image_url, category, organizer, contact,
			district_id, data_source_id, view_count, is_active, created_at, updated_at, last_synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 1, ?, ?, ?)`,
		ev.Title, ev.Description, ev.StartAt, endAt, ev.StartTime, ev.EndTime,
		ev.Location, ev.Address, ev.AgeMin, ev.AgeMax, string(targetGroups), ev.IsFree, ev.Fee,
		ev.OriginalURL, ev.RegistrationURL, ev.ImageURL, ev.Category, ev.Organizer, ev.Contact,
		ev.DistrictID, ev.DataSourceID, ev.CreatedAt, ev.UpdatedAt, now)
	if err != nil {
		return fmt.Errorf("insert event %q: %w", ev.Title, err)
	}
	ev.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) RefreshEvent(ctx context.Context, id int64, description, originalURL string, syncedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE events SET
			description = CASE WHEN ? != '' THEN ? ELSE description END,
			original_url = ?,
			last_synced_at = ?,
			updated_at = ?
		WHERE id = ?`,
		description, description, originalURL, syncedAt, time.Now(), id)
	if err != nil {
		return fmt.Errorf("refresh event %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE is_active = 1`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// Run logs

func (s *SQLiteStore) InsertRunLog(ctx context.Context, log *event.CollectionRunLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collection_logs (id, data_source_id, status, events_collected,
			events_added, events_updated, error_message, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.DataSourceID, log.Status, log.Collected,
		log.Added, log.Updated, log.ErrorMessage, log.StartedAt, log.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListRunLogs(ctx context.Context, limit int) ([]*event.CollectionRunLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data_source_id, status, events_collected, events_added,
			events_updated, error_message, started_at, completed_at
		FROM collection_logs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list run logs: %w", err)
	}
	defer rows.Close()

	var logs []*event.CollectionRunLog
	for rows.Next() {
		var l event.CollectionRunLog
		if err := rows.Scan(&l.ID, &l.DataSourceID, &l.Status, &l.Collected,
			&l.Added, &l.Updated, &l.ErrorMessage, &l.StartedAt, &l.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan run log: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
