package domain

import (
	"sort"
	"strings"
)

func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func sortStrings(s []string) { sort.Strings(s) }
