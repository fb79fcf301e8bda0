package sweep

import (
	"context"
	"unicode/utf16"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/studydesk/storedoctor/internal/store"
	"github.com/studydesk/storedoctor/pkg/model"
)

// DefaultCapacityBytes is the store quota the report measures against.
const DefaultCapacityBytes = 5 * 1024 * 1024

// DefaultWarnRatio is the usage ratio above which the report warns.
const DefaultWarnRatio = 0.8

var printer = message.NewPrinter(language.English)

// reportStorage never mutates the store.
func reportStorage(_ context.Context, env *Env) ([]model.RepairAction, error) {
	stats, err := Measure(env.Store, env.CapacityBytes)
	if err != nil {
		return nil, err
	}
	env.Storage = stats

	ratio := env.WarnRatio
	if ratio <= 0 {
		ratio = DefaultWarnRatio
	}
	sev := model.SeverityInfo
	label := "Storage usage"
	if float64(stats.TotalBytes) > float64(stats.CapacityBytes)*ratio {
		sev = model.SeverityWarning
		label = "Storage nearly full"
	}
	return []model.RepairAction{newAction(PhaseStorage, model.CategoryIntegrity, "usage", sev, label, DescribeStorage(stats))}, nil
}

// Measure sizes every entry of s as UTF-16 text, two bytes per code unit
// of key plus value. A non-positive capacity means DefaultCapacityBytes.
func Measure(s store.Store, capacity int64) (*model.StorageStats, error) {
	if capacity <= 0 {
		capacity = DefaultCapacityBytes
	}
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}

	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	stats := &model.StorageStats{KeyCount: len(keys), CapacityBytes: capacity}
	for _, key := range keys {
		value, ok, err := s.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		size := utf16Bytes(enc, key) + utf16Bytes(enc, value)
		stats.TotalBytes += size
		if size > stats.LargestBytes {
			stats.LargestKey, stats.LargestBytes = key, size
		}
	}
	stats.UsedPercent = float64(stats.TotalBytes) / float64(capacity) * 100
	return stats, nil
}

// DescribeStorage renders stats for humans.
func DescribeStorage(stats *model.StorageStats) string {
	detail := printer.Sprintf("%d bytes across %d keys (%.1f%% of %d)",
		stats.TotalBytes, stats.KeyCount, stats.UsedPercent, stats.CapacityBytes)
	if stats.LargestKey != "" {
		detail += printer.Sprintf("; largest %s at %d bytes", stats.LargestKey, stats.LargestBytes)
	}
	return detail
}

// utf16Bytes counts s as UTF-16, two bytes per code unit.
func utf16Bytes(enc *encoding.Encoder, s string) int64 {
	out, err := enc.String(s)
	if err != nil {
		return int64(2 * len(utf16.Encode([]rune(s))))
	}
	return int64(len(out))
}
