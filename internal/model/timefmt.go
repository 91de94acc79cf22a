package model

import (
	"strings"
	"time"
)

// TimeLayout is the storage format for timestamps. It is fixed width and UTC
// so string comparison in SQL orders rows chronologically.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// DateLayout is the format of invoice sales dates.
const DateLayout = "2006-01-02"

// UploadPrefix is prepended to stored file names in the invoices table.
const UploadPrefix = "/uploads/"

func FormatTime(t time.Time) string { return t.UTC().Format(TimeLayout) }

// ParseTime accepts TimeLayout and falls back to RFC 3339.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// StoredName strips UploadPrefix from a stored file path.
func StoredName(path string) string {
	return strings.TrimPrefix(path, UploadPrefix)
}
