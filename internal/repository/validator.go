package repository

import (
	"strings"

	"github.com/dataexplorer/core/internal/apperr"
)

// forbiddenKeywords are the top-level SQL keywords that fail with
// ErrForbiddenStatement wherever they occur in a statement, per spec.md
// §4.A.
var forbiddenKeywords = map[string]bool{
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"REPLACE":  true,
	"MERGE":    true,
	"DROP":     true,
	"ALTER":    true,
	"CREATE":   true,
	"TRUNCATE": true,
}

// ValidateReadOnly implements I3/B2/spec.md §9's open-question decision:
// tokenize, collapse whitespace, assert the first keyword is SELECT or
// WITH, and reject any occurrence of a forbidden top-level keyword
// anywhere in the statement — including inside a WITH clause, so a CTE
// fronting a write (`WITH x AS (...) INSERT INTO ...`) is rejected by
// default rather than allowed through on a technicality.
func ValidateReadOnly(sql string) error {
	collapsed := collapseWhitespace(sql)
	if collapsed == "" {
		return apperr.New(apperr.KindForbiddenStatement, "empty statement")
	}

	tokens := tokenize(collapsed)
	if len(tokens) == 0 {
		return apperr.New(apperr.KindForbiddenStatement, "empty statement")
	}

	head := strings.ToUpper(tokens[0])
	if head != "SELECT" && head != "WITH" {
		return apperr.New(apperr.KindForbiddenStatement, "statement must begin with SELECT or WITH, got "+head)
	}

	for _, tok := range tokens {
		upper := strings.ToUpper(strings.Trim(tok, "();,"))
		if forbiddenKeywords[upper] {
			return apperr.New(apperr.KindForbiddenStatement, "forbidden keyword "+upper+" in statement")
		}
	}

	return nil
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func tokenize(s string) []string {
	replacer := strings.NewReplacer("(", " ( ", ")", " ) ", ",", " , ")
	return strings.Fields(replacer.Replace(s))
}
