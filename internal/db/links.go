package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/opoerator/drophub/internal/errors"
	"github.com/opoerator/drophub/internal/identity"
)

// DefaultListLimit applies when ListLinks is called with limit <= 0.
const DefaultListLimit = 50

// Link is one successful connect-code verification.
type Link struct {
	ID       string            `json:"id"`
	Identity identity.Identity `json:"identity"`
	UserID   string            `json:"user_id"`
	Channel  string            `json:"channel,omitempty"`
	LinkedAt int64             `json:"linked_at"` // unix seconds
}

// RecordLink inserts l. ID and LinkedAt are filled in when zero.
func RecordLink(ctx context.Context, db *sql.DB, l *Link) error {
	if l.LinkedAt == 0 {
		l.LinkedAt = time.Now().Unix()
	}
	if l.ID == "" {
		entropy := ulid.Monotonic(rand.Reader, 0)
		l.ID = ulid.MustNew(ulid.Timestamp(time.Unix(l.LinkedAt, 0)), entropy).String()
	}

	query := `
		INSERT INTO links (id, identity_type, identity_value, user_id, channel, linked_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		l.ID, string(l.Identity.Kind), l.Identity.Value, l.UserID, toNullString(l.Channel), l.LinkedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListLinks returns the most recent links, newest first.
func ListLinks(ctx context.Context, db *sql.DB, limit int) ([]Link, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `
		SELECT id, identity_type, identity_value, user_id, channel, linked_at
		FROM links
		ORDER BY linked_at DESC, id DESC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	links := []Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		links = append(links, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return links, nil
}

// LatestLink returns the newest link recorded for id.
func LatestLink(ctx context.Context, db *sql.DB, id identity.Identity) (*Link, error) {
	query := `
		SELECT id, identity_type, identity_value, user_id, channel, linked_at
		FROM links
		WHERE identity_type = ? AND identity_value = ?
		ORDER BY linked_at DESC, id DESC
		LIMIT 1
	`
	l, err := scanLink(db.QueryRowContext(ctx, query, string(id.Kind), id.Value))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id.Key())
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return l, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(row scanner) (*Link, error) {
	var (
		l       Link
		kind    string
		channel sql.NullString
	)
	if err := row.Scan(&l.ID, &kind, &l.Identity.Value, &l.UserID, &channel, &l.LinkedAt); err != nil {
		return nil, err
	}
	l.Identity.Kind = identity.Kind(kind)
	l.Channel = channel.String
	return &l, nil
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Journal records connect-code links for the aggregator.
type Journal struct {
	DB *sql.DB
}

// RecordLink stores a link for id.
func (j *Journal) RecordLink(ctx context.Context, id identity.Identity, userID, channel string) error {
	return RecordLink(ctx, j.DB, &Link{Identity: id, UserID: userID, Channel: channel})
}
