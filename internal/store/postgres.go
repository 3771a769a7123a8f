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
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bcem/threadintel/internal/models"
)

// PostgresStore is a Store backed by a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given Postgres pool.
// It ensures the schema exists on creation.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure postgres schema: %w", err)
	}
	slog.Info("postgres store initialised")
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS email_addresses (
			id         BIGSERIAL PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE,
			is_active  BOOLEAN NOT NULL DEFAULT TRUE,
			is_generic BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE TABLE IF NOT EXISTS contacts (
			id           BIGSERIAL PRIMARY KEY,
			name         TEXT NOT NULL,
			knowledge    TEXT NOT NULL DEFAULT '',
			needs_review BOOLEAN NOT NULL DEFAULT FALSE,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_contacts_name ON contacts(name);
		CREATE TABLE IF NOT EXISTS contact_emails (
			contact_id       BIGINT NOT NULL REFERENCES contacts(id),
			email_address_id BIGINT NOT NULL REFERENCES email_addresses(id),
			PRIMARY KEY (contact_id, email_address_id)
		);
		CREATE TABLE IF NOT EXISTS email_strings (
			id               BIGSERIAL PRIMARY KEY,
			original_string  TEXT NOT NULL UNIQUE,
			name             TEXT NOT NULL,
			email            TEXT NOT NULL,
			email_address_id BIGINT NOT NULL REFERENCES email_addresses(id),
			contact_id       BIGINT NOT NULL REFERENCES contacts(id),
			reviewed         BOOLEAN NOT NULL DEFAULT FALSE,
			reviewed_at      TIMESTAMPTZ,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_email_strings_contact ON email_strings(contact_id);
		CREATE TABLE IF NOT EXISTS labels (
			id              BIGSERIAL PRIMARY KEY,
			remote_label_id TEXT NOT NULL UNIQUE,
			name            TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS threads (
			id               BIGSERIAL PRIMARY KEY,
			remote_thread_id TEXT NOT NULL UNIQUE,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS emails (
			id                BIGSERIAL PRIMARY KEY,
			remote_message_id TEXT NOT NULL UNIQUE,
			thread_id         BIGINT NOT NULL REFERENCES threads(id),
			date              TIMESTAMPTZ NOT NULL,
			subject           TEXT NOT NULL DEFAULT '',
			body              TEXT NOT NULL DEFAULT '',
			snippet           TEXT NOT NULL DEFAULT '',
			sender_id         BIGINT NOT NULL REFERENCES email_strings(id)
		);
		CREATE INDEX IF NOT EXISTS idx_emails_thread ON emails(thread_id, date);
		CREATE TABLE IF NOT EXISTS email_recipients (
			email_id        BIGINT NOT NULL REFERENCES emails(id),
			kind            TEXT NOT NULL,
			position        INT NOT NULL,
			email_string_id BIGINT NOT NULL REFERENCES email_strings(id),
			PRIMARY KEY (email_id, kind, position)
		);
		CREATE TABLE IF NOT EXISTS email_labels (
			email_id BIGINT NOT NULL REFERENCES emails(id),
			position INT NOT NULL,
			label_id BIGINT NOT NULL REFERENCES labels(id),
			PRIMARY KEY (email_id, position)
		);
		CREATE TABLE IF NOT EXISTS thread_summaries (
			id           BIGSERIAL PRIMARY KEY,
			thread_id    BIGINT NOT NULL REFERENCES threads(id),
			email_id     BIGINT NOT NULL REFERENCES emails(id),
			run_id       TEXT NOT NULL DEFAULT '',
			summary      TEXT NOT NULL,
			action       TEXT NOT NULL,
			rationale    TEXT NOT NULL DEFAULT '',
			participants JSONB NOT NULL DEFAULT '[]',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_summaries_thread ON thread_summaries(thread_id);
		CREATE INDEX IF NOT EXISTS idx_summaries_email ON thread_summaries(email_id);
	`)
	return err
}

// GetOrCreateEmailAddress implements Store.
func (s *PostgresStore) GetOrCreateEmailAddress(ctx context.Context, email string, generic bool) (*models.EmailAddress, error) {
	var a models.EmailAddress
	err := s.pool.QueryRow(ctx, `
		INSERT INTO email_addresses (email, is_generic)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, is_active, is_generic
	`, email, generic).Scan(&a.ID, &a.Email, &a.IsActive, &a.IsGeneric)
	if err != nil {
		return nil, fmt.Errorf("upsert email address: %w", err)
	}
	return &a, nil
}

// CreateContact implements Store.
func (s *PostgresStore) CreateContact(ctx context.Context, name string, addressID int64) (*models.Contact, error) {
	var c *models.Contact
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		c, err = scanContact(tx.QueryRow(ctx, `
			INSERT INTO contacts (name) VALUES ($1)
			RETURNING `+contactColumns, name))
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO contact_emails (contact_id, email_address_id) VALUES ($1, $2)
		`, c.ID, addressID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create contact: %w", pgError(err))
	}
	return c, nil
}

// GetContact implements Store.
func (s *PostgresStore) GetContact(ctx context.Context, id int64) (*models.Contact, error) {
	c, err := scanContact(s.pool.QueryRow(ctx, `
		SELECT `+contactColumns+` FROM contacts WHERE id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("contact %d: %w", id, pgError(err))
	}
	return c, nil
}

// FindContacts implements Store.
func (s *PostgresStore) FindContacts(ctx context.Context, name, email string) ([]models.Contact, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if email == "" {
		rows, err = s.pool.Query(ctx, `
			SELECT `+contactColumns+` FROM contacts WHERE name = $1 ORDER BY id
		`, name)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT c.id, c.name, c.knowledge, c.needs_review, c.created_at, c.updated_at
			FROM contacts c
			JOIN contact_emails ce ON ce.contact_id = c.id
			JOIN email_addresses a ON a.id = ce.email_address_id
			WHERE c.name = $1 AND a.email = $2
			ORDER BY c.id
		`, name, email)
	}
	if err != nil {
		return nil, fmt.Errorf("find contacts: %w", err)
	}
	defer rows.Close()
	return collectContacts(rows)
}

// AddContactEmail implements Store.
func (s *PostgresStore) AddContactEmail(ctx context.Context, contactID, addressID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO contact_emails (contact_id, email_address_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, contactID, addressID)
	if err != nil {
		return false, fmt.Errorf("add contact email: %w", pgError(err))
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := s.pool.Exec(ctx, `UPDATE contacts SET updated_at = NOW() WHERE id = $1`, contactID); err != nil {
		return true, fmt.Errorf("touch contact: %w", err)
	}
	return true, nil
}

// ContactEmails implements Store.
func (s *PostgresStore) ContactEmails(ctx context.Context, contactID int64) ([]models.EmailAddress, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.email, a.is_active, a.is_generic
		FROM email_addresses a
		JOIN contact_emails ce ON ce.email_address_id = a.id
		WHERE ce.contact_id = $1
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
func (s *PostgresStore) UpdateContactKnowledge(ctx context.Context, contactID int64, knowledge string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE contacts SET knowledge = $1, updated_at = NOW() WHERE id = $2
	`, knowledge, contactID)
	if err != nil {
		return fmt.Errorf("update knowledge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("contact %d: %w", contactID, ErrNotFound)
	}
	return nil
}

// FlagContactForReview implements Store.
func (s *PostgresStore) FlagContactForReview(ctx context.Context, contactID int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE contacts SET needs_review = TRUE, updated_at = NOW() WHERE id = $1
	`, contactID)
	if err != nil {
		return fmt.Errorf("flag contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("contact %d: %w", contactID, ErrNotFound)
	}
	return nil
}

// ListContactsNeedingReview implements Store.
func (s *PostgresStore) ListContactsNeedingReview(ctx context.Context) ([]models.Contact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+contactColumns+` FROM contacts WHERE needs_review ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list review contacts: %w", err)
	}
	defer rows.Close()
	return collectContacts(rows)
}

// GetEmailString implements Store.
func (s *PostgresStore) GetEmailString(ctx context.Context, original string) (*models.EmailString, error) {
	es, err := scanEmailString(s.pool.QueryRow(ctx, `
		SELECT `+emailStringColumns+` FROM email_strings WHERE original_string = $1
	`, original))
	if err != nil {
		return nil, fmt.Errorf("email string %q: %w", original, pgError(err))
	}
	return es, nil
}

// CreateEmailString implements Store.
func (s *PostgresStore) CreateEmailString(ctx context.Context, es *models.EmailString) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO email_strings
			(original_string, name, email, email_address_id, contact_id, reviewed, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, es.OriginalString, es.Name, es.Email, es.EmailAddressID, es.ContactID, es.Reviewed, es.ReviewedAt,
	).Scan(&es.ID, &es.CreatedAt)
	if err != nil {
		return fmt.Errorf("email string %q: %w", es.OriginalString, pgError(err))
	}
	return nil
}

// ListEmailStringsForContact implements Store.
func (s *PostgresStore) ListEmailStringsForContact(ctx context.Context, contactID int64) ([]models.EmailString, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+emailStringColumns+` FROM email_strings WHERE contact_id = $1 ORDER BY id
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
func (s *PostgresStore) GetOrCreateLabel(ctx context.Context, remoteID, name string) (*models.Label, error) {
	var l models.Label
	err := s.pool.QueryRow(ctx, `
		INSERT INTO labels (remote_label_id, name)
		VALUES ($1, $2)
		ON CONFLICT (remote_label_id) DO UPDATE SET remote_label_id = EXCLUDED.remote_label_id
		RETURNING id, remote_label_id, name
	`, remoteID, name).Scan(&l.ID, &l.RemoteLabelID, &l.Name)
	if err != nil {
		return nil, fmt.Errorf("upsert label: %w", err)
	}
	return &l, nil
}

// GetOrCreateThread implements Store.
func (s *PostgresStore) GetOrCreateThread(ctx context.Context, remoteID string) (*models.Thread, bool, error) {
	var (
		t        models.Thread
		inserted bool
	)
	// xmax is zero only for a row this statement inserted.
	err := s.pool.QueryRow(ctx, `
		INSERT INTO threads (remote_thread_id)
		VALUES ($1)
		ON CONFLICT (remote_thread_id) DO UPDATE SET remote_thread_id = EXCLUDED.remote_thread_id
		RETURNING id, remote_thread_id, created_at, (xmax = 0)
	`, remoteID).Scan(&t.ID, &t.RemoteThreadID, &t.CreatedAt, &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("upsert thread: %w", err)
	}
	return &t, inserted, nil
}

// GetThread implements Store.
func (s *PostgresStore) GetThread(ctx context.Context, id int64) (*models.ThreadView, error) {
	view := &models.ThreadView{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, remote_thread_id, created_at FROM threads WHERE id = $1
	`, id).Scan(&view.ID, &view.RemoteThreadID, &view.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("thread %d: %w", id, pgError(err))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.remote_message_id, e.thread_id, e.date, e.subject, e.body, e.snippet,
		       s.id, s.original_string, s.name, s.email, s.email_address_id,
		       s.contact_id, s.reviewed, s.reviewed_at, s.created_at
		FROM emails e
		JOIN email_strings s ON s.id = e.sender_id
		WHERE e.thread_id = $1
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

func (s *PostgresStore) loadRecipients(ctx context.Context, threadID int64, view *models.ThreadView, index map[int64]int) error {
	rows, err := s.pool.Query(ctx, `
		SELECT r.email_id, r.kind,
		       s.id, s.original_string, s.name, s.email, s.email_address_id,
		       s.contact_id, s.reviewed, s.reviewed_at, s.created_at
		FROM email_recipients r
		JOIN emails e ON e.id = r.email_id
		JOIN email_strings s ON s.id = r.email_string_id
		WHERE e.thread_id = $1
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

func (s *PostgresStore) loadLabels(ctx context.Context, threadID int64, view *models.ThreadView, index map[int64]int) error {
	rows, err := s.pool.Query(ctx, `
		SELECT el.email_id, l.id, l.remote_label_id, l.name
		FROM email_labels el
		JOIN emails e ON e.id = el.email_id
		JOIN labels l ON l.id = el.label_id
		WHERE e.thread_id = $1
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
func (s *PostgresStore) ListThreadsNeedingSummary(ctx context.Context, label string, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.pool.Query(ctx, `
		SELECT x.id FROM (
			SELECT t.id,
			       (SELECT e.id FROM emails e WHERE e.thread_id = t.id
			        ORDER BY e.date DESC, e.id DESC LIMIT 1) AS last_id
			FROM threads t
		) x
		WHERE x.last_id IS NOT NULL
		  AND ($1 = '' OR EXISTS (
			SELECT 1 FROM email_labels el JOIN labels l ON l.id = el.label_id
			WHERE el.email_id = x.last_id AND l.name = $1))
		  AND NOT EXISTS (SELECT 1 FROM thread_summaries ts WHERE ts.email_id = x.last_id)
		ORDER BY x.id
		LIMIT NULLIF($2::int, -1)
	`, label, limit)
	if err != nil {
		return nil, fmt.Errorf("list threads needing summary: %w", err)
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// CreateEmail implements Store.
func (s *PostgresStore) CreateEmail(ctx context.Context, e *models.Email) (bool, error) {
	created := false
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO emails (remote_message_id, thread_id, date, subject, body, snippet, sender_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (remote_message_id) DO NOTHING
			RETURNING id
		`, e.RemoteMessageID, e.ThreadID, e.Date.UTC(), e.Subject, e.Body, e.Snippet, e.Sender.ID).Scan(&e.ID)
		if errors.Is(err, pgx.ErrNoRows) {
			return tx.QueryRow(ctx, `
				SELECT id FROM emails WHERE remote_message_id = $1
			`, e.RemoteMessageID).Scan(&e.ID)
		}
		if err != nil {
			return err
		}
		created = true

		batch := &pgx.Batch{}
		for i, es := range e.To {
			batch.Queue(`INSERT INTO email_recipients (email_id, kind, position, email_string_id) VALUES ($1, $2, $3, $4)`,
				e.ID, kindTo, i, es.ID)
		}
		for i, es := range e.Cc {
			batch.Queue(`INSERT INTO email_recipients (email_id, kind, position, email_string_id) VALUES ($1, $2, $3, $4)`,
				e.ID, kindCc, i, es.ID)
		}
		for i, l := range e.Labels {
			batch.Queue(`INSERT INTO email_labels (email_id, position, label_id) VALUES ($1, $2, $3)`,
				e.ID, i, l.ID)
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return false, fmt.Errorf("create email %s: %w", e.RemoteMessageID, pgError(err))
	}
	return created, nil
}

// CreateThreadSummary implements Store.
func (s *PostgresStore) CreateThreadSummary(ctx context.Context, ts *models.ThreadSummary) error {
	participants, err := encodeParticipants(ts.Participants)
	if err != nil {
		return fmt.Errorf("encode participants: %w", err)
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO thread_summaries
			(thread_id, email_id, run_id, summary, action, rationale, participants)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, ts.ThreadID, ts.EmailID, ts.RunID, ts.Summary, string(ts.Action), ts.Rationale, participants,
	).Scan(&ts.ID, &ts.Timestamp)
	if err != nil {
		return fmt.Errorf("insert thread summary: %w", pgError(err))
	}
	return nil
}

// LatestThreadSummary implements Store.
func (s *PostgresStore) LatestThreadSummary(ctx context.Context, threadID int64) (*models.ThreadSummary, error) {
	ts, err := scanSummary(s.pool.QueryRow(ctx, `
		SELECT `+summaryColumns+` FROM thread_summaries
		WHERE thread_id = $1
		ORDER BY id DESC
		LIMIT 1
	`, threadID))
	if err != nil {
		return nil, fmt.Errorf("summary for thread %d: %w", threadID, pgError(err))
	}
	return ts, nil
}

// ListThreadSummaries implements Store.
func (s *PostgresStore) ListThreadSummaries(ctx context.Context, threadID int64) ([]models.ThreadSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+summaryColumns+` FROM thread_summaries WHERE thread_id = $1 ORDER BY id
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
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func collectContacts(rows pgx.Rows) ([]models.Contact, error) {
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

// pgError maps driver errors onto the package sentinels.
func pgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Detail)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.Detail)
		}
	}
	return err
}

var _ Store = (*PostgresStore)(nil)
