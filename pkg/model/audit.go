package model

import "time"

// AuditRecord is a single line in the repair audit log (JSONL format).
// One record is written per sweep that applied at least one repair.
type AuditRecord struct {
	Timestamp  time.Time      `json:"timestamp"`
	SweepID    string         `json:"sweep_id"`
	Score      int            `json:"score"`
	Actions    []RepairAction `json:"actions"`
	PrevHash   HashValue      `json:"prev_hash"`
	RecordHash HashValue      `json:"record_hash"`
}
