// Package db holds the embedded SQL migrations and the migration runner.
package db

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

// MigrationFS embeds the SQL migration files.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS

// UpSQL returns every *.up.sql migration concatenated in version order.
// Integration tests apply it inside a throwaway schema.
func UpSQL() (string, error) {
	names, err := fs.Glob(MigrationFS, "migrations/*.up.sql")
	if err != nil {
		return "", err
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		raw, err := fs.ReadFile(MigrationFS, name)
		if err != nil {
			return "", err
		}
		b.Write(raw)
		b.WriteString("\n")
	}
	return b.String(), nil
}
