package database

import (
	"database/sql"
	"fmt"
	"time"
)

// FeedRepositoryImpl handles database operations for feeds
type FeedRepositoryImpl struct {
	db *DB
}

var _ FeedRepository = (*FeedRepositoryImpl)(nil)

func NewFeedRepository(db *DB) *FeedRepositoryImpl {
	return &FeedRepositoryImpl{db: db}
}

// GetOrCreateFeed inserts the feed unless a record with its id already
// exists, then returns the stored record. The primary key is the derived
// identity, so concurrent duplicate registration results in exactly one row.
// The returned bool reports whether a new record was created.
func (r *FeedRepositoryImpl) GetOrCreateFeed(feed Feed) (*Feed, bool, error) {
	now := time.Now().UTC()

	res, err := r.db.Exec(`
		INSERT INTO feeds (id, link, subscribed, owner, extract_content, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, feed.ID, feed.Link, feed.Owner, feed.ExtractContent, now, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create feed: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read insert result: %w", err)
	}

	stored, err := r.GetFeed(feed.ID)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("feed %s disappeared during get-or-create", feed.ID)
	}

	return stored, inserted > 0, nil
}

func (r *FeedRepositoryImpl) GetFeed(id string) (*Feed, error) {
	return r.scanFeed(r.db.QueryRow(`
		SELECT id, link, subscribed, owner, extract_content, created_at, updated_at
		FROM feeds
		WHERE id = ?
	`, id))
}

func (r *FeedRepositoryImpl) GetFeedByLink(link string) (*Feed, error) {
	return r.scanFeed(r.db.QueryRow(`
		SELECT id, link, subscribed, owner, extract_content, created_at, updated_at
		FROM feeds
		WHERE link = ?
		LIMIT 1
	`, link))
}

// DeleteFeedsByLink removes every feed whose link matches. The store enforces
// uniqueness by id, but deletion targets all matching records as a safety net
// against duplicated rows.
func (r *FeedRepositoryImpl) DeleteFeedsByLink(link string) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM feeds WHERE link = ?`, link)
	if err != nil {
		return 0, fmt.Errorf("failed to delete feeds: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}

	return deleted, nil
}

// ListFeeds returns up to limit feeds in registration order. A non-positive
// limit returns all feeds.
func (r *FeedRepositoryImpl) ListFeeds(limit int) ([]Feed, error) {
	query := `
		SELECT id, link, subscribed, owner, extract_content, created_at, updated_at
		FROM feeds
		ORDER BY created_at, id
	`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := r.scanFeedRow(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, *feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

func (r *FeedRepositoryImpl) SetSubscribed(id string, subscribed bool) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET subscribed = ?, updated_at = ?
		WHERE id = ?
	`, subscribed, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update subscribed flag: %w", err)
	}

	return nil
}

func (r *FeedRepositoryImpl) GetFeedCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM feeds`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *FeedRepositoryImpl) scanFeed(row *sql.Row) (*Feed, error) {
	feed, err := r.scanFeedRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return feed, nil
}

func (r *FeedRepositoryImpl) scanFeedRow(row rowScanner) (*Feed, error) {
	var feed Feed
	var owner sql.NullString

	err := row.Scan(&feed.ID, &feed.Link, &feed.Subscribed, &owner,
		&feed.ExtractContent, &feed.CreatedAt, &feed.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan feed row: %w", err)
	}

	if owner.Valid {
		feed.Owner = &owner.String
	}

	return &feed, nil
}
