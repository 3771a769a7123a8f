// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/bcem/threadintel/internal/models"
)

// SQLiteStore is a Store backed by a local SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens or creates the database at path and runs migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	slog.Info("sqlite store initialised", "path", path)
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS email_addresses (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			email      TEXT NOT NULL UNIQUE,
			is_active  BOOLEAN NOT NULL DEFAULT 1,
			is_generic BOOLEAN NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS contacts (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			name         TEXT NOT NULL,
			knowledge    TEXT NOT NULL DEFAULT '',
			needs_review BOOLEAN NOT NULL DEFAULT 0,
			created_at   DATETIME NOT NULL,
			updated_at   DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_contacts_name ON contacts(name);
		CREATE TABLE IF NOT EXISTS contact_emails (
			contact_id       INTEGER NOT NULL REFERENCES contacts(id),
			email_address_id INTEGER NOT NULL REFERENCES email_addresses(id),
			PRIMARY KEY (contact_id, email_address_id)
		);
		CREATE TABLE IF NOT EXISTS email_strings (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			original_string  TEXT NOT NULL UNIQUE,
			name             TEXT NOT NULL,
			email            TEXT NOT NULL,
			email_address_id INTEGER NOT NULL REFERENCES email_addresses(id),
			contact_id       INTEGER NOT NULL REFERENCES contacts(id),
			reviewed         BOOLEAN NOT NULL DEFAULT 0,
			reviewed_at      DATETIME,
			created_at       DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_email_strings_contact ON email_strings(contact_id);
		CREATE TABLE IF NOT EXISTS labels (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			remote_label_id TEXT NOT NULL UNIQUE,
			name            TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS threads (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			remote_thread_id TEXT NOT NULL UNIQUE,
			created_at       DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS emails (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			remote_message_id TEXT NOT NULL UNIQUE,
			thread_id         INTEGER NOT NULL REFERENCES threads(id),
			date              DATETIME NOT NULL,
			subject           TEXT NOT NULL DEFAULT '',
			body              TEXT NOT NULL DEFAULT '',
			snippet           TEXT NOT NULL DEFAULT '',
			sender_id         INTEGER NOT NULL REFERENCES email_strings(id)
		);
		CREATE INDEX IF NOT EXISTS idx_emails_thread ON emails(thread_id, date);
		CREATE TABLE IF NOT EXISTS email_recipients (
			email_id        INTEGER NOT NULL REFERENCES emails(id),
			kind            TEXT NOT NULL,
			position        INTEGER NOT NULL,
			email_string_id INTEGER NOT NULL REFERENCES email_strings(id),
			PRIMARY KEY (email_id, kind, position)
		);
		CREATE TABLE IF NOT EXISTS email_labels (
			email_id INTEGER NOT NULL REFERENCES emails(id),
			position INTEGER NOT NULL,
			label_id INTEGER NOT NULL REFERENCES labels(id),
			PRIMARY KEY (email_id, position)
		);
		CREATE TABLE IF NOT EXISTS thread_summaries (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id    INTEGER NOT NULL REFERENCES threads(id),
			email_id     INTEGER NOT NULL REFERENCES emails(id),
			run_id       TEXT NOT NULL DEFAULT '',
			summary      TEXT NOT NULL,
			action       TEXT NOT NULL,
			rationale    TEXT NOT NULL DEFAULT '',
			participants TEXT NOT NULL DEFAULT '[]',
			created_at   DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_summaries_thread ON thread_summaries(thread_id);
		CREATE INDEX IF NOT EXISTS idx_summaries_email ON thread_summaries(email_id);
	`)
	return err
}

func (s *SQLiteStore) timestamp() time.Time {
	return s.now().UTC()
}

// GetOrCreateEmailAddress implements Store.
func (s *SQLiteStore) GetOrCreateEmailAddress(ctx context.Context, email string, generic bool) (*models.EmailAddress, error) {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO email_addresses (email, is_generic) VALUES (?, ?)
		ON CONFLICT(email) DO NOTHING
	`, email, generic); err != nil {
		return nil, fmt.Errorf("insert email address: %w", err)
	}
	var a models.EmailAddress
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, is_active, is_generic FROM email_addresses WHERE email = ?
	`, email).Scan(&a.ID, &a.Email, &a.IsActive, &a.IsGeneric)
	if err != nil {
		return nil, fmt.Errorf("email address %q: %w", email, sqliteError(err))
	}
	return &a, nil
}

// CreateContact implements Store.
func (s *SQLiteStore) CreateContact(ctx context.Context, name string, addressID int64) (*models.Contact, error) {
	now := s.timestamp()
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO contacts (name, created_at, updated_at) VALUES (?, ?, ?)
		`, name, now, now)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO contact_emails (contact_id, email_address_id) VALUES (?, ?)
		`, id, addressID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create contact: %w", sqliteError(err))
	}
	return &models.Contact{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

// GetContact implements Store.
func (s *SQLiteStore) GetContact(ctx context.Context, id int64) (*models.Contact, error) {
	c, err := scanContact(s.db.QueryRowContext(ctx, `
		SELECT `+contactColumns+` FROM contacts WHERE id = ?
	`, id))
	if err != nil {
		return nil, fmt.Errorf("contact %d: %w", id, sqliteError(err))
	}
	return c, nil
}

// FindContacts implements Store.
func (s *SQLiteStore) FindContacts(ctx context.Context, name, email string) ([]models.Contact, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if email == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+contactColumns+` FROM contacts WHERE name = ? ORDER BY id
		`, name)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT c.id, c.name, c.knowledge, c.needs_review, c.created_at, c.updated_at
			FROM contacts c
			JOIN contact_emails ce ON ce.contact_id = c.id
			JOIN email_addresses a ON a.id = ce.email_address_id
			WHERE c.name = ? AND a.email = ?
			ORDER BY c.id
		`, name, email)
	}
	if err != nil {
		return nil, fmt.Errorf("find contacts: %w", err)
	}
	defer rows.Close()
	return collectSQLContacts(rows)
}

// AddContactEmail implements Store.
func (s *SQLiteStore) AddContactEmail(ctx context.Context, contactID, addressID int64) (bool, error) {
	added := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO contact_emails (contact_id, email_address_id) VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, contactID, addressID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}
		added = true
		_, err = tx.ExecContext(ctx, `UPDATE contacts SET updated_at = ? WHERE id = ?`, s.timestamp(), contactID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("add contact email: %w", sqliteError(err))
	}
	return added, nil
}

// ContactEmails implements Store.
func (s *SQLiteStore) ContactEmails(ctx context.Context, contactID int64) ([]models.EmailAddress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.email, a.is_active, a.is_generic
		FROM email_addresses a
		JOIN contact_emails ce ON ce.email_address_id = a.id
		WHERE ce.contact_id = ?
		ORDER BY a.id
	`, contactID)
	if err != nil {
		return nil, fmt.Errorf("contact emails: %w", err)
	}
	defer rows.Close()

	var out []models.EmailAddress
	for rows.Next() {
		var a models.EmailAddress
		if err := rows.Scan(&a.ID, &a.Email, &a.IsActive, &a.IsGeneric); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateContactKnowledge implements Store.
func (s *SQLiteStore) UpdateContactKnowledge(ctx context.Context, contactID int64, knowledge string) error {
	return s.updateContact(ctx, contactID, `UPDATE contacts SET knowledge = ?, updated_at = ? WHERE id = ?`,
		knowledge, s.timestamp(), contactID)
}

// FlagContactForReview implements Store.
func (s *SQLiteStore) FlagContactForReview(ctx context.Context, contactID int64) error {
	return s.updateContact(ctx, contactID, `UPDATE contacts SET needs_review = 1, updated_at = ? WHERE id = ?`,
		s.timestamp(), contactID)
}

func (s *SQLiteStore) updateContact(ctx context.Context, contactID int64, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update contact %d: %w", contactID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("contact %d: %w", contactID, ErrNotFound)
	}
	return nil
}

// ListContactsNeedingReview implements Store.
func (s *SQLiteStore) ListContactsNeedingReview(ctx context.Context) ([]models.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contactColumns+` FROM contacts WHERE needs_review = 1 ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list review contacts: %w", err)
	}
	defer rows.Close()
	return collectSQLContacts(rows)
}

// GetEmailString implements Store.
func (s *SQLiteStore) GetEmailString(ctx context.Context, original string) (*models.EmailString, error) {
	es, err := scanEmailString(s.db.QueryRowContext(ctx, `
		SELECT `+emailStringColumns+` FROM email_strings WHERE original_string = ?
	`, original))
	if err != nil {
		return nil, fmt.Errorf("email string %q: %w", original, sqliteError(err))
	}
	return es, nil
}

// CreateEmailString implements Store.
func (s *SQLiteStore) CreateEmailString(ctx context.Context, es *models.EmailString) error {
	if es.CreatedAt.IsZero() {
		es.CreatedAt = s.timestamp()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO email_strings
			(original_string, name, email, email_address_id, contact_id, reviewed, reviewed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, es.OriginalString, es.Name, es.Email, es.EmailAddressID, es.ContactID, es.Reviewed, es.ReviewedAt, es.CreatedAt)
	if err != nil {
		return fmt.Errorf("email string %q: %w", es.OriginalString, sqliteError(err))
	}
	es.ID, err = res.LastInsertId()
	return err
}

// ListEmailStringsForContact implements Store.
func (s *SQLiteStore) ListEmailStringsForContact(ctx context.Context, contactID int64) ([]models.EmailString, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+emailStringColumns+` FROM email_strings WHERE contact_id = ? ORDER BY id
	`, contactID)
	if err != nil {
		return nil, fmt.Errorf("list email strings: %w", err)
	}
	defer rows.Close()

	var out []models.EmailString
	for rows.Next() {
		es, err := scanEmailString(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *es)
	}
	return out, rows.Err()
}

// GetOrCreateLabel implements Store.
func (s *SQLiteStore) GetOrCreateLabel(ctx context.Context, remoteID, name string) (*models.Label, error) {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO labels (remote_label_id, name) VALUES (?, ?)
		ON CONFLICT(remote_label_id) DO NOTHING
	`, remoteID, name); err != nil {
		return nil, fmt.Errorf("insert label: %w", err)
	}
	var l models.Label
	err := s.db.QueryRowContext(ctx, `
		SELECT id, remote_label_id, name FROM labels WHERE remote_label_id = ?
	`, remoteID).Scan(&l.ID, &l.RemoteLabelID, &l.Name)
	if err != nil {
		return nil, fmt.Errorf("label %q: %w", remoteID, sqliteError(err))
	}
	return &l, nil
}

// GetOrCreateThread implements Store.
func (s *SQLiteStore) GetOrCreateThread(ctx context.Context, remoteID string) (*models.Thread, bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (remote_thread_id, created_at) VALUES (?, ?)
		ON CONFLICT(remote_thread_id) DO NOTHING
	`, remoteID, s.timestamp())
	if err != nil {
		return nil, false, fmt.Errorf("insert thread: %w", err)
	}
	n, _ := res.RowsAffected()

	var t models.Thread
	err = s.db.QueryRowContext(ctx, `
		SELECT id, remote_thread_id, created_at FROM threads WHERE remote_thread_id = ?
	`, remoteID).Scan(&t.ID, &t.RemoteThreadID, &t.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("thread %q: %w", remoteID, sqliteError(err))
	}
	return &t, n == 1, nil
}

// GetThread implements Store.
func (s *SQLiteStore) GetThread(ctx context.Context, id int64) (*models.ThreadView, error) {
	view := &models.ThreadView{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, remote_thread_id, created_at FROM threads WHERE id = ?
	`, id).Scan(&view.ID, &view.RemoteThreadID, &view.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("thread %d: %w", id, sqliteError(err))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.remote_message_id, e.thread_id, e.date, e.subject, e.body, e.snippet,
		       s.id, s.original_string, s.name, s.email, s.email_address_id,
		       s.contact_id, s.reviewed, s.reviewed_at, s.created_at
		FROM emails e
		JOIN email_strings s ON s.id = e.sender_id
		WHERE e.thread_id = ?
		ORDER BY e.date, e.id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("thread emails: %w", err)
	}
	index := make(map[int64]int)
	for rows.Next() {
		var e models.Email
		sender, err := scanEmailString(rows,
			&e.ID, &e.RemoteMessageID, &e.ThreadID, &e.Date, &e.Subject, &e.Body, &e.Snippet)
		if err != nil {
			rows.Close()
			return nil, err
		}
		e.Sender = *sender
		index[e.ID] = len(view.Emails)
		view.Emails = append(view.Emails, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadRecipients(ctx, id, view, index); err != nil {
		return nil, err
	}
	if err := s.loadLabels(ctx, id, view, index); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *SQLiteStore) loadRecipients(ctx context.Context, threadID int64, view *models.ThreadView, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.email_id, r.kind,
		       s.id, s.original_string, s.name, s.email, s.email_address_id,
		       s.contact_id, s.reviewed, s.reviewed_at, s.created_at
		FROM email_recipients r
		JOIN emails e ON e.id = r.email_id
		JOIN email_strings s ON s.id = r.email_string_id
		WHERE e.thread_id = ?
		ORDER BY r.email_id, r.kind, r.position
	`, threadID)
	if err != nil {
		return fmt.Errorf("thread recipients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			emailID int64
			kind    string
		)
		es, err := scanEmailString(rows, &emailID, &kind)
		if err != nil {
			return err
		}
		e := &view.Emails[index[emailID]]
		if kind == kindTo {
			e.To = append(e.To, *es)
		} else {
			e.Cc = append(e.Cc, *es)
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) loadLabels(ctx context.Context, threadID int64, view *models.ThreadView, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT el.email_id, l.id, l.remote_label_id, l.name
		FROM email_labels el
		JOIN emails e ON e.id = el.email_id
		JOIN labels l ON l.id = el.label_id
		WHERE e.thread_id = ?
		ORDER BY el.email_id, el.position
	`, threadID)
	if err != nil {
		return fmt.Errorf("thread labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			emailID int64
			l       models.Label
		)
		if err := rows.Scan(&emailID, &l.ID, &l.RemoteLabelID, &l.Name); err != nil {
			return err
		}
		e := &view.Emails[index[emailID]]
		e.Labels = append(e.Labels, l)
	}
	return rows.Err()
}

// ListThreadsNeedingSummary implements Store.
func (s *SQLiteStore) ListThreadsNeedingSummary(ctx context.Context, label string, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT x.id FROM (
			SELECT t.id AS id,
			       (SELECT e.id FROM emails e WHERE e.thread_id = t.id
			        ORDER BY e.date DESC, e.id DESC LIMIT 1) AS last_id
			FROM threads t
		) x
		WHERE x.last_id IS NOT NULL
		  AND (? = '' OR EXISTS (
			SELECT 1 FROM email_labels el JOIN labels l ON l.id = el.label_id
			WHERE el.email_id = x.last_id AND l.name = ?))
		  AND NOT EXISTS (SELECT 1 FROM thread_summaries ts WHERE ts.email_id = x.last_id)
		ORDER BY x.id
		LIMIT ?
	`, label, label, limit)
	if err != nil {
		return nil, fmt.Errorf("list threads needing summary: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateEmail implements Store.
func (s *SQLiteStore) CreateEmail(ctx context.Context, e *models.Email) (bool, error) {
	created := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO emails (remote_message_id, thread_id, date, subject, body, snippet, sender_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(remote_message_id) DO NOTHING
		`, e.RemoteMessageID, e.ThreadID, e.Date.UTC(), e.Subject, e.Body, e.Snippet, e.Sender.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return tx.QueryRowContext(ctx, `
				SELECT id FROM emails WHERE remote_message_id = ?
			`, e.RemoteMessageID).Scan(&e.ID)
		}
		if e.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		created = true

		for i, es := range e.To {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO email_recipients (email_id, kind, position, email_string_id) VALUES (?, ?, ?, ?)
			`, e.ID, kindTo, i, es.ID); err != nil {
				return err
			}
		}
		for i, es := range e.Cc {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO email_recipients (email_id, kind, position, email_string_id) VALUES (?, ?, ?, ?)
			`, e.ID, kindCc, i, es.ID); err != nil {
				return err
			}
		}
		for i, l := range e.Labels {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO email_labels (email_id, position, label_id) VALUES (?, ?, ?)
			`, e.ID, i, l.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("create email %s: %w", e.RemoteMessageID, sqliteError(err))
	}
	return created, nil
}

// CreateThreadSummary implements Store.
func (s *SQLiteStore) CreateThreadSummary(ctx context.Context, ts *models.ThreadSummary) error {
	participants, err := encodeParticipants(ts.Participants)
	if err != nil {
		return fmt.Errorf("encode participants: %w", err)
	}
	if ts.Timestamp.IsZero() {
		ts.Timestamp = s.timestamp()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO thread_summaries
			(thread_id, email_id, run_id, summary, action, rationale, participants, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ts.ThreadID, ts.EmailID, ts.RunID, ts.Summary, string(ts.Action), ts.Rationale, string(participants), ts.Timestamp)
	if err != nil {
		return fmt.Errorf("insert thread summary: %w", sqliteError(err))
	}
	ts.ID, err = res.LastInsertId()
	return err
}

// LatestThreadSummary implements Store.
func (s *SQLiteStore) LatestThreadSummary(ctx context.Context, threadID int64) (*models.ThreadSummary, error) {
	ts, err := scanSummary(s.db.QueryRowContext(ctx, `
		SELECT `+summaryColumns+` FROM thread_summaries
		WHERE thread_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, threadID))
	if err != nil {
		return nil, fmt.Errorf("summary for thread %d: %w", threadID, sqliteError(err))
	}
	return ts, nil
}

// ListThreadSummaries implements Store.
func (s *SQLiteStore) ListThreadSummaries(ctx context.Context, threadID int64) ([]models.ThreadSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+summaryColumns+` FROM thread_summaries WHERE thread_id = ? ORDER BY id
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list thread summaries: %w", err)
	}
	defer rows.Close()

	var out []models.ThreadSummary
	for rows.Next() {
		ts, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ts)
	}
	return out, rows.Err()
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func collectSQLContacts(rows *sql.Rows) ([]models.Contact, error) {
	var out []models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// sqliteError maps driver errors onto the package sentinels.
func sqliteError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %s", ErrConflict, se.Error())
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %s", ErrNotFound, se.Error())
		}
	}
	return err
}

var _ Store = (*SQLiteStore)(nil)
