package model

import "time"

// LockRecord is stored next to the store file while a sweep holds the lease.
type LockRecord struct {
	Store       string    `json:"store"`
	HolderNonce string    `json:"holder_nonce"`
	PID         int       `json:"pid"`
	AcquiredAt  time.Time `json:"acquired_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Purpose     string    `json:"purpose,omitempty"`
}

// IsExpired returns true if the lease has expired.
func (l *LockRecord) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}
