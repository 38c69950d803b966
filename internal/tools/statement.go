package tools

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Statement keywords accepted by execute_query.
const (
	StmtSelect = "SELECT"
	StmtInsert = "INSERT"
	StmtUpdate = "UPDATE"
	StmtDelete = "DELETE"
)

// Classify returns the upper-cased leading keyword of query, skipping
// leading whitespace and comments. It returns "" when there is none.
func Classify(query string) string {
	s := stripLeadingComments(query)
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	if end < 0 {
		end = len(s)
	}
	return strings.ToUpper(s[:end])
}

// IsMutation reports whether kind is INSERT, UPDATE or DELETE.
func IsMutation(kind string) bool {
	switch kind {
	case StmtInsert, StmtUpdate, StmtDelete:
		return true
	}
	return false
}

func stripLeadingComments(s string) string {
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		switch {
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return ""
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s[2:], "*/")
			if i < 0 {
				return ""
			}
			s = s[i+4:]
		default:
			return s
		}
	}
}

// read-only SQL: forbid keywords that modify data or schema
var forbiddenSQLWords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE",
	"GRANT", "REVOKE", "EXEC", "EXECUTE", "MERGE", "REPLACE", "INTO",
}

var (
	sqlLineComment  = regexp.MustCompile(`--[^\n]*`)
	sqlBlockComment = regexp.MustCompile(`/\*[\s\S]*?\*/`)
	forbiddenWordRe = regexp.MustCompile(`(?i)\b(` + strings.Join(forbiddenSQLWords, "|") + `)\b`)
)

// ValidateReadOnlySQL returns an error if sql appears to modify data or schema.
// Comments are stripped first. Only a heuristic; not a full parser.
func ValidateReadOnlySQL(sql string) error {
	cleaned := sqlLineComment.ReplaceAllString(sql, " ")
	cleaned = sqlBlockComment.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return fmt.Errorf("empty SQL after removing comments")
	}
	if loc := forbiddenWordRe.FindStringIndex(cleaned); loc != nil {
		word := strings.ToUpper(cleaned[loc[0]:loc[1]])
		return fmt.Errorf("found %q", word)
	}
	return nil
}
