package database

// InsertFailedRun records an aborted run.
func (db *DB) InsertFailedRun(run *FailedRun) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO failed_runs (run_id, event_text, language, state, reason, source_url)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.EventText, run.Language, run.State, run.Reason, run.SourceURL,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListFailedRuns returns the most recent aborted runs first.
func (db *DB) ListFailedRuns(limit int) ([]FailedRun, error) {
	rows, err := db.conn.Query(
		`SELECT id, run_id, event_text, language, state, reason, source_url, created_at
		FROM failed_runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []FailedRun
	for rows.Next() {
		var r FailedRun
		if err := rows.Scan(&r.ID, &r.RunID, &r.EventText, &r.Language, &r.State,
			&r.Reason, &r.SourceURL, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest any
	}{
		{"SELECT COUNT(*) FROM news_items", &s.Items},
		{"SELECT COUNT(*) FROM news_items WHERE repaired = 1", &s.Repaired},
		{"SELECT COUNT(*) FROM news_items WHERE title_source = 'keywords'", &s.FallbackTitles},
		{"SELECT COUNT(*) FROM failed_runs", &s.FailedRuns},
		{"SELECT COUNT(DISTINCT item_id) FROM publications", &s.Published},
		{"SELECT COUNT(DISTINCT day) FROM news_items", &s.Days},
		{"SELECT COALESCE(AVG(coverage), 0) FROM news_items", &s.AvgCoverage},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}
