package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const itemColumns = `id, run_id, day, event_text, language, title, article, keywords,
	coverage, article_coverage, repaired, title_source, source_url, model, output_path, created_at`

// InsertItem stores a generated news item and returns its ID. Day defaults to today.
func (db *DB) InsertItem(item *NewsItem) (int64, error) {
	var kwJSON *string
	if item.Keywords != nil {
		data, err := json.Marshal(item.Keywords)
		if err != nil {
			return 0, err
		}
		s := string(data)
		kwJSON = &s
	}
	day := item.Day
	if day == "" {
		day = GetToday()
	}

	result, err := db.conn.Exec(
		`INSERT INTO news_items (run_id, day, event_text, language, title, article, keywords,
			coverage, article_coverage, repaired, title_source, source_url, model, output_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.RunID, day, item.EventText, item.Language, item.Title, item.Article, kwJSON,
		item.Coverage, item.ArticleCoverage, boolToInt(item.Repaired), item.TitleSource,
		item.SourceURL, item.Model, item.OutputPath,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting news item: %w", err)
	}
	return result.LastInsertId()
}

// GetItem returns a single item, or nil if it does not exist.
func (db *DB) GetItem(id int64) (*NewsItem, error) {
	row := db.conn.QueryRow("SELECT "+itemColumns+" FROM news_items WHERE id = ?", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns the most recent items first.
func (db *DB) ListItems(limit int) ([]NewsItem, error) {
	rows, err := db.conn.Query(
		"SELECT "+itemColumns+" FROM news_items ORDER BY id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// ListItemsForDay returns the items generated on day (YYYY-MM-DD).
func (db *DB) ListItemsForDay(day string) ([]NewsItem, error) {
	rows, err := db.conn.Query(
		"SELECT "+itemColumns+" FROM news_items WHERE day = ? ORDER BY id DESC", day,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// ListDays returns the days that have items, newest first.
func (db *DB) ListDays() ([]DaySummary, error) {
	rows, err := db.conn.Query(
		"SELECT day, COUNT(*) FROM news_items GROUP BY day ORDER BY day DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []DaySummary
	for rows.Next() {
		var d DaySummary
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// HasSourceURL reports whether an item was already generated from url.
func (db *DB) HasSourceURL(url string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM news_items WHERE source_url = ?", url).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkPublished records that an item was sent to channel. Repeated calls keep
// the first publication.
func (db *DB) MarkPublished(itemID int64, channel, messageID string) error {
	_, err := db.conn.Exec(
		`INSERT OR IGNORE INTO publications (item_id, channel, message_id) VALUES (?, ?, ?)`,
		itemID, channel, messageID,
	)
	return err
}

// IsPublished reports whether an item was already sent to channel.
func (db *DB) IsPublished(itemID int64, channel string) (bool, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM publications WHERE item_id = ? AND channel = ?", itemID, channel,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItems(rows *sql.Rows) ([]NewsItem, error) {
	var items []NewsItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanItem(s scanner) (*NewsItem, error) {
	var item NewsItem
	var kwJSON *string
	var repaired int
	if err := s.Scan(&item.ID, &item.RunID, &item.Day, &item.EventText, &item.Language,
		&item.Title, &item.Article, &kwJSON, &item.Coverage, &item.ArticleCoverage,
		&repaired, &item.TitleSource, &item.SourceURL, &item.Model, &item.OutputPath,
		&item.CreatedAt); err != nil {
		return nil, err
	}
	item.Repaired = repaired != 0
	if kwJSON != nil {
		if err := json.Unmarshal([]byte(*kwJSON), &item.Keywords); err != nil {
			return nil, fmt.Errorf("decoding keywords of item %d: %w", item.ID, err)
		}
	}
	return &item, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
