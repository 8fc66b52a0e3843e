package analyses

import (
	"path"
	"regexp"
	"strings"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ArchiveKey object key of the source PDF: policies/{id}/{filename}.
func ArchiveKey(id, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = strings.Trim(unsafeKeyChars.ReplaceAllString(name, "_"), "._")
	if name == "" {
		name = "policy.pdf"
	}
	return path.Join("policies", id, name)
}
