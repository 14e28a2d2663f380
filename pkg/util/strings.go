package util

import "strings"

func TrimString(s string, length int) string {
	if len(s) <= length {
		return s
	}

	return s[:length]
}

// SplitList splits a comma separated flag value, trimming whitespace and dropping empty entries
func SplitList(value string) []string {
	items := []string{}

	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}
