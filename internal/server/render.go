package server

import (
	"github.com/SedlarDavid/sqltools-mcp/internal/db"
)

// Failure prefixes by operation family.
const (
	prefixQuery  = "Error executing query: "
	prefixSchema = "Error getting schema: "
)

// renderError turns a failed operation into the single text payload the
// client sees. Input problems are reported as "Error: <message>", a missing
// table verbatim, everything else behind prefix.
func renderError(err error, prefix string) string {
	switch db.KindOf(err) {
	case db.KindValidation, db.KindRejected:
		return "Error: " + err.Error()
	case db.KindNotFound:
		return err.Error()
	default:
		return prefix + err.Error()
	}
}

// expected reports whether kind is a caller mistake rather than a fault.
func expected(kind db.Kind) bool {
	switch kind {
	case db.KindValidation, db.KindRejected, db.KindNotFound:
		return true
	}
	return false
}
