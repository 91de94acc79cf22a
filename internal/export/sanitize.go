package export

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const maxSheetName = 31

var (
	sheetUnsafe  = regexp.MustCompile(`[^A-Za-z0-9_\x{0600}-\x{06FF}]`)
	folderUnsafe = regexp.MustCompile(`[^A-Za-z0-9\x{0600}-\x{06FF} ]`)
	modelUnsafe  = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// sheetNamer hands out worksheet names derived from store names. Names are
// unique ignoring case, as spreadsheet applications require.
type sheetNamer struct {
	used map[string]bool
}

func newSheetNamer(reserved ...string) *sheetNamer {
	n := &sheetNamer{used: map[string]bool{}}
	for _, r := range reserved {
		n.used[strings.ToLower(r)] = true
	}
	return n
}

func (n *sheetNamer) next(label string) string {
	base := truncateRunes(sheetUnsafe.ReplaceAllString(label, "_"), maxSheetName)
	if base == "" {
		base = "Sheet"
	}
	name := base
	for i := 2; n.used[strings.ToLower(name)]; i++ {
		suffix := "_" + strconv.Itoa(i)
		name = truncateRunes(base, maxSheetName-utf8.RuneCountInString(suffix)) + suffix
	}
	n.used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

func safeFolder(s, fallback string) string {
	s = strings.TrimSpace(folderUnsafe.ReplaceAllString(s, "_"))
	if s == "" {
		return fallback
	}
	return s
}

func safeStore(s string) string { return safeFolder(s, "unspecified_store") }

func safeEmployee(s string) string { return safeFolder(s, "unspecified_employee") }

func safeModel(s string) string {
	s = modelUnsafe.ReplaceAllString(strings.TrimSpace(s), "_")
	if s == "" {
		return "unspecified_model"
	}
	return s
}

func safeDate(s string) string {
	s = strings.NewReplacer("/", "-", `\`, "-").Replace(strings.TrimSpace(s))
	if s == "" {
		return "undated"
	}
	return s
}
