package nav

import "strings"

// Concordance record identifiers are prefixed by source class: D for
// documentary, L for literary, A for archaeological, V for visual. Anything
// else (including raw uuids) resolves relative to the current route.
var sectionByPrefix = map[byte]string{
	'D': "Documentary",
	'L': "Literary",
	'A': "Archaeological",
	'V': "Visual",
}

// RouteForRecord maps a record identifier to its navigation target.
func RouteForRecord(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "./"
	}
	if section, ok := sectionByPrefix[id[0]]; ok {
		return "/" + section + "/" + id
	}
	return "./" + id
}
