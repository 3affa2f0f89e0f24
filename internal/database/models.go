package database

// NewsItem is a stored, successfully assembled news record.
type NewsItem struct {
	ID              int64
	RunID           string
	Day             string
	EventText       string
	Language        string
	Title           string
	Article         string
	Keywords        []string
	Coverage        float64
	ArticleCoverage float64
	Repaired        bool
	TitleSource     string
	SourceURL       *string
	Model           *string
	OutputPath      *string
	CreatedAt       *string
}

// FailedRun records an aborted pipeline run.
type FailedRun struct {
	ID        int64
	RunID     string
	EventText string
	Language  string
	State     string
	Reason    string
	SourceURL *string
	CreatedAt *string
}

// Publication marks an item as sent to a channel.
type Publication struct {
	ItemID      int64
	Channel     string
	MessageID   *string
	PublishedAt *string
}

// DaySummary counts the items generated on one day.
type DaySummary struct {
	Day   string
	Count int
}

// Stats contains aggregate database statistics.
type Stats struct {
	Items          int
	Repaired       int
	FallbackTitles int
	FailedRuns     int
	Published      int
	Days           int
	AvgCoverage    float64
}
