// Package audit keeps a hash-chained JSONL log of the repairs each sweep
// applied, so a store's repair history can be checked after the fact.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/studydesk/storedoctor/pkg/errclass"
	"github.com/studydesk/storedoctor/pkg/jsonutil"
	"github.com/studydesk/storedoctor/pkg/model"
)

// FileAppender appends audit records to a JSONL file with hash chain.
type FileAppender struct {
	path string
	mu   sync.Mutex
}

// NewFileAppender creates a new FileAppender.
func NewFileAppender(path string) *FileAppender {
	return &FileAppender{path: path}
}

// Path returns the log file.
func (a *FileAppender) Path() string { return a.path }

// Record appends one record holding the report's fixed actions.
func (a *FileAppender) Record(report *model.Report) error {
	return a.Append(&model.AuditRecord{
		Timestamp: report.Record.Timestamp.UTC(),
		SweepID:   report.SweepID,
		Score:     report.Record.Score,
		Actions:   model.Filter(report.Actions, model.SeverityFixed),
	})
}

// Append links rec to the last record in the log and writes it.
func (a *FileAppender) Append(rec *model.AuditRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}

	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	if err := lockFile(file); err != nil {
		return fmt.Errorf("lock audit log: %w", err)
	}
	defer unlockFile(file)

	prevHash, err := lastRecordHash(file)
	if err != nil {
		return fmt.Errorf("get last record hash: %w", err)
	}

	rec.PrevHash = prevHash
	rec.RecordHash = ""
	recordHash, err := computeRecordHash(rec)
	if err != nil {
		return fmt.Errorf("compute record hash: %w", err)
	}
	rec.RecordHash = recordHash

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	if _, err := file.Seek(0, 2); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}
	return nil
}

// LastRecordHash returns the hash of the last record in the log.
func (a *FileAppender) LastRecordHash() (model.HashValue, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	file, err := os.Open(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	return lastRecordHash(file)
}

func lastRecordHash(file *os.File) (model.HashValue, error) {
	if _, err := file.Seek(0, 0); err != nil {
		return "", fmt.Errorf("seek to start: %w", err)
	}

	var lastHash model.HashValue
	scanner := newScanner(file)
	for scanner.Scan() {
		var record model.AuditRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue // skip malformed lines
		}
		lastHash = record.RecordHash
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan audit log: %w", err)
	}
	return lastHash, nil
}

// Verify walks the log at path and checks every link of the chain. It
// returns the number of records checked. A missing log verifies as empty.
func Verify(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	var prev model.HashValue
	count := 0
	lineNo := 0
	scanner := newScanner(file)
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec model.AuditRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return count, errclass.ErrAuditChainBroken.WithMessagef("line %d: malformed record: %v", lineNo, err)
		}
		if rec.PrevHash != prev {
			return count, errclass.ErrAuditChainBroken.WithMessagef("line %d: prev_hash does not match the preceding record", lineNo)
		}
		want, err := computeRecordHash(&rec)
		if err != nil {
			return count, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if want != rec.RecordHash {
			return count, errclass.ErrAuditChainBroken.WithMessagef("line %d: record_hash mismatch", lineNo)
		}
		prev = rec.RecordHash
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("scan audit log: %w", err)
	}
	return count, nil
}

func newScanner(file *os.File) *bufio.Scanner {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return scanner
}

func computeRecordHash(record *model.AuditRecord) (model.HashValue, error) {
	hashRecord := *record
	hashRecord.RecordHash = ""

	data, err := jsonutil.CanonicalMarshal(&hashRecord)
	if err != nil {
		return "", fmt.Errorf("canonical marshal: %w", err)
	}
	hash := sha256.Sum256(data)
	return model.HashValue(hex.EncodeToString(hash[:])), nil
}
