package main

import (
	"testing"

	"github.com/companyzero/voicememo/internal/assert"
)

func TestHbytes(t *testing.T) {
	assert.DeepEqual(t, hbytes(0), "0B")
	assert.DeepEqual(t, hbytes(999), "999B")
	assert.DeepEqual(t, hbytes(1000), "1.00KB")
	assert.DeepEqual(t, hbytes(1500), "1.50KB")
	assert.DeepEqual(t, hbytes(2_500_000), "2.50MB")
	assert.DeepEqual(t, hbytes(3_000_000_000), "3.00GB")
}

func TestFmtSeconds(t *testing.T) {
	assert.DeepEqual(t, fmtSeconds(0), "0:00")
	assert.DeepEqual(t, fmtSeconds(5), "0:05")
	assert.DeepEqual(t, fmtSeconds(59), "0:59")
	assert.DeepEqual(t, fmtSeconds(60), "1:00")
	assert.DeepEqual(t, fmtSeconds(61*60+1), "61:01")
}

func TestPadName(t *testing.T) {
	assert.DeepEqual(t, padName("ab", 4), "ab  ")
	assert.DeepEqual(t, padName("abcd", 4), "abcd")
	assert.DeepEqual(t, padName("abcdef", 4), "abc…")

	// Wide runes count as two cells.
	assert.DeepEqual(t, padName("日本", 4), "日本")
	assert.DeepEqual(t, padName("日本", 6), "日本  ")
}

func TestClamp(t *testing.T) {
	assert.DeepEqual(t, clamp(5, 0, 10), 5)
	assert.DeepEqual(t, clamp(-1, 0, 10), 0)
	assert.DeepEqual(t, clamp(11, 0, 10), 10)
}

func TestPlural(t *testing.T) {
	assert.DeepEqual(t, plural(1, "memo", "memos"), "memo")
	assert.DeepEqual(t, plural(0, "memo", "memos"), "memos")
	assert.DeepEqual(t, plural(2, "memo", "memos"), "memos")
}
