package rdbms

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern matches a bare or double-quoted SQL identifier.
var identifierPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_$]*|"[^"]+")$`)

// SchemaTable holds a table name that is interpolated into generated SQL.
type SchemaTable struct {
	Schema string
	Table  string `errorTxt:"table name" mandatory:"yes"`
}

// ParseSchemaTable splits s of the form [<schema>.]<table> and validates both parts as identifiers.
// A quoted name may contain dots, e.g. "random.table".
func ParseSchemaTable(s string) (SchemaTable, error) {
	s = strings.TrimSpace(s)
	parts := splitIdentifiers(s)
	var st SchemaTable
	switch len(parts) {
	case 1:
		st.Table = parts[0]
	case 2:
		st.Schema, st.Table = parts[0], parts[1]
	default:
		return st, fmt.Errorf("invalid table name %q: expected [<schema>.]<table>", s)
	}
	for _, p := range parts {
		if !identifierPattern.MatchString(p) {
			return SchemaTable{}, fmt.Errorf("invalid table name %q: bad identifier %q", s, p)
		}
	}
	return st, nil
}

// splitIdentifiers splits s on dots that are not inside double quotes.
func splitIdentifiers(s string) []string {
	parts := make([]string, 0, 2)
	inQuotes := false
	start := 0
	for i, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == '.' && !inQuotes:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func (st SchemaTable) String() string {
	if st.Schema == "" {
		return st.Table
	}
	return st.Schema + "." + st.Table
}
