package backend

import (
	"context"
	_ "embed"
	"strings"

	"crewdesk/internal/modkit/repokit"
	perr "crewdesk/internal/platform/errors"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema applies the embedded schema. Every statement is idempotent so
// running it on every boot is safe
func EnsureSchema(ctx context.Context, db repokit.TxRunner) error {
	for _, stmt := range splitStatements(schemaSQL) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return perr.FromPostgresf(err, "apply schema")
		}
	}
	return nil
}

// splitStatements breaks a schema script into single statements on top-level
// semicolons. Dollar-quoted bodies and line comments are respected so
// function definitions survive intact
func splitStatements(script string) []string {
	var (
		out      []string
		sb       strings.Builder
		inDollar bool
		i        int
	)
	for i < len(script) {
		// line comments pass through whole
		if !inDollar && strings.HasPrefix(script[i:], "--") {
			end := strings.IndexByte(script[i:], '\n')
			if end < 0 {
				end = len(script) - i
			}
			sb.WriteString(script[i : i+end])
			i += end
			continue
		}
		if strings.HasPrefix(script[i:], "$$") {
			inDollar = !inDollar
			sb.WriteString("$$")
			i += 2
			continue
		}
		c := script[i]
		if c == ';' && !inDollar {
			if stmt := strings.TrimSpace(sb.String()); stmt != "" {
				out = append(out, stmt)
			}
			sb.Reset()
			i++
			continue
		}
		sb.WriteByte(c)
		i++
	}
	if stmt := strings.TrimSpace(sb.String()); stmt != "" {
		out = append(out, stmt)
	}
	return out
}
