package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// sanitizeName reduces an uploaded filename to a safe character set: path
// components and control characters are stripped, anything outside
// [A-Za-z0-9._-] becomes '_'. The result never starts with a dot, so keys
// can never masquerade as the hidden temp files the local backend writes.
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsControl(r):
			// dropped
		default:
			b.WriteByte('_')
		}
	}

	return strings.TrimLeft(b.String(), ".")
}

// newKey derives a unique object key from the sanitized original name.
// Every key carries an upload timestamp plus a short random token, so two
// uploads of the same filename never collide and no existence probe (which
// would race against concurrent uploads) is needed.
func newKey(originalName string, now time.Time) string {
	clean := sanitizeName(originalName)
	ext := strings.ToLower(filepath.Ext(clean))
	stem := strings.TrimSuffix(clean, filepath.Ext(clean))
	if stem == "" {
		stem = "file"
	}

	token := strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
	return fmt.Sprintf("%s_%s_%s%s", stem, now.UTC().Format("20060102T150405"), token, ext)
}

// originalNameFromKey recovers the uploaded filename from a generated key
// by dropping the timestamp and random token. Keys not produced by newKey
// (objects placed in the bucket out of band) are returned unchanged.
func originalNameFromKey(key string) string {
	ext := filepath.Ext(key)
	base := strings.TrimSuffix(key, ext)

	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return key
	}
	return strings.Join(parts[:len(parts)-2], "_") + ext
}
