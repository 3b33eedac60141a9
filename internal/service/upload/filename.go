package upload

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"
)

// SanitizeName reduces a client-supplied file name to a safe flat name:
// directory components are dropped and control characters removed.
// It returns "" when nothing usable remains.
func SanitizeName(original string) string {
	name := path.Base(strings.ReplaceAll(original, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}

// StoredName prefixes the sanitized name with the creation time in
// milliseconds, e.g. 1700000000000_report.pdf
func StoredName(created time.Time, sanitized string) string {
	return fmt.Sprintf("%d_%s", created.UnixMilli(), sanitized)
}
