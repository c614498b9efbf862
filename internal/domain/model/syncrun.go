package model

import "time"

// SyncRun records the outcome of one sync-and-generate cycle.
type SyncRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	Found      int
	New        int
	Generated  int
	AutoSent   int
	Skipped    int
	Failed     int
	Message    string
	Error      string
}
