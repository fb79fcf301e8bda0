package model

import "time"

// SweepRecord summarizes one completed sweep. It is persisted in the
// store's history key, newest first.
type SweepRecord struct {
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Fixed     int       `json:"fixed"`
	Warnings  int       `json:"warnings"`
	Score     int       `json:"score"`
}

// StorageStats describes the post-repair size of the store.
type StorageStats struct {
	TotalBytes    int64   `json:"total_bytes"`
	KeyCount      int     `json:"key_count"`
	LargestKey    string  `json:"largest_key,omitempty"`
	LargestBytes  int64   `json:"largest_bytes"`
	CapacityBytes int64   `json:"capacity_bytes"`
	UsedPercent   float64 `json:"used_percent"`
}

// Report is the result of one sweep.
type Report struct {
	SweepID   string         `json:"sweep_id"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration_ns"`
	Actions   []RepairAction `json:"actions"`
	Record    SweepRecord    `json:"record"`
	Storage   *StorageStats  `json:"storage,omitempty"`
}

// Counts returns per-severity totals of the report's actions.
func (r *Report) Counts() Counts {
	return CountActions(r.Actions)
}
