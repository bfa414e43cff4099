package database

import (
	"database/sql"
	"fmt"
	"time"
)

// ItemRepositoryImpl handles database operations for ingested items
type ItemRepositoryImpl struct {
	db *DB
}

var _ ItemRepository = (*ItemRepositoryImpl)(nil)

func NewItemRepository(db *DB) *ItemRepositoryImpl {
	return &ItemRepositoryImpl{db: db}
}

// UpsertItem inserts the item unless a record with its id already exists.
// Re-delivery of a known entry only refreshes the retrieved timestamp; every
// other stored field, including created, is left untouched. The returned
// bool reports whether a new record was created.
func (r *ItemRepositoryImpl) UpsertItem(item Item) (bool, error) {
	res, err := r.db.Exec(`
		INSERT INTO items (
			id, feed_id, owner, title, link, content, summary,
			retrieved, created, version, extraction_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.FeedID, item.Owner, item.Title, item.Link, item.Content,
		item.Summary, item.Retrieved, item.Created, item.Version, item.ExtractionStatus)
	if err != nil {
		return false, fmt.Errorf("failed to store item: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	if inserted > 0 {
		return true, nil
	}

	_, err = r.db.Exec(`UPDATE items SET retrieved = ? WHERE id = ?`, item.Retrieved, item.ID)
	if err != nil {
		return false, fmt.Errorf("failed to refresh item: %w", err)
	}

	return false, nil
}

func (r *ItemRepositoryImpl) GetItem(id string) (*Item, error) {
	var item Item
	var feedID, owner, summary, extractionError sql.NullString
	var created, extractedAt sql.NullTime

	err := r.db.QueryRow(`
		SELECT id, feed_id, owner, title, link, content, summary,
		       retrieved, created, version,
		       extraction_status, extracted_at, extraction_error
		FROM items
		WHERE id = ?
	`, id).Scan(&item.ID, &feedID, &owner, &item.Title, &item.Link, &item.Content,
		&summary, &item.Retrieved, &created, &item.Version,
		&item.ExtractionStatus, &extractedAt, &extractionError)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	if feedID.Valid {
		item.FeedID = &feedID.String
	}
	if owner.Valid {
		item.Owner = &owner.String
	}
	if summary.Valid {
		item.Summary = &summary.String
	}
	if created.Valid {
		item.Created = &created.Time
	}
	if extractedAt.Valid {
		item.ExtractedAt = &extractedAt.Time
	}
	item.ExtractionError = extractionError.String

	return &item, nil
}

func (r *ItemRepositoryImpl) GetItemCount(feedID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM items WHERE feed_id = ?`, feedID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}

func (r *ItemRepositoryImpl) GetTotalItemCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get total item count: %w", err)
	}
	return count, nil
}

// GetItemsForExtraction returns items of a feed still waiting for article
// content extraction.
func (r *ItemRepositoryImpl) GetItemsForExtraction(feedID string, limit int) ([]ItemForExtraction, error) {
	rows, err := r.db.Query(`
		SELECT id, link
		FROM items
		WHERE feed_id = ? AND extraction_status = ?
		ORDER BY retrieved
		LIMIT ?
	`, feedID, ExtractionPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for extraction: %w", err)
	}
	defer rows.Close()

	var items []ItemForExtraction
	for rows.Next() {
		var item ItemForExtraction
		if err := rows.Scan(&item.ID, &item.Link); err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

func (r *ItemRepositoryImpl) UpdateExtractedContent(itemID string, content string, extractedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE items
		SET content = ?, extraction_status = ?, extracted_at = ?, extraction_error = ''
		WHERE id = ?
	`, content, ExtractionSuccess, extractedAt, itemID)
	if err != nil {
		return fmt.Errorf("failed to update extracted content: %w", err)
	}

	return nil
}

func (r *ItemRepositoryImpl) UpdateExtractionStatus(itemID string, status string, extractedAt *time.Time, errorMsg string) error {
	_, err := r.db.Exec(`
		UPDATE items
		SET extraction_status = ?, extracted_at = ?, extraction_error = ?
		WHERE id = ?
	`, status, extractedAt, errorMsg, itemID)
	if err != nil {
		return fmt.Errorf("failed to update extraction status: %w", err)
	}

	return nil
}
