package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeRecords(t *testing.T) {
	merged, added, ok := mergeRecords(`[{"id":2},{"id":3}]`, `[{"id":1},{"id":2}]`)
	assert.True(t, ok)
	assert.Equal(t, 1, added)
	assert.Equal(t, `[{"id":2},{"id":3},{"id":1}]`, merged)

	_, _, ok = mergeRecords(`{}`, `[]`)
	assert.False(t, ok)
	_, _, ok = mergeRecords(`[]`, `{bad`)
	assert.False(t, ok)
}

func TestPreviewList(t *testing.T) {
	assert.Equal(t, "a, b", previewList([]string{"a", "b"}, 6))
	assert.Equal(t, "a, b +2 more", previewList([]string{"a", "b", "c", "d"}, 2))
}

func TestParseSettingInt(t *testing.T) {
	n, ok := parseSettingInt(`"42"`)
	assert.True(t, ok)
	assert.Equal(t, 42.0, n)

	n, ok = parseSettingInt(`1e300`)
	assert.True(t, ok)
	assert.Equal(t, 1e300, n)

	n, ok = parseSettingInt(`-9223372036854775808000`)
	assert.True(t, ok)
	assert.Less(t, n, 0.0)

	_, ok = parseSettingInt(`2.5`)
	assert.False(t, ok)

	_, ok = parseSettingInt(`true`)
	assert.False(t, ok)
	_, ok = parseSettingInt(`"4.2"`)
	assert.False(t, ok)
}
