package sql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

// ScriptGenerator produces full scripts and simplified migrations.
type ScriptGenerator struct {
	formatter *Formatter
}

// NewScriptGenerator returns a generator for the dialect.
func NewScriptGenerator(dialect models.Dialect) (*ScriptGenerator, error) {
	f, err := NewFormatter(dialect)
	if err != nil {
		return nil, err
	}
	return &ScriptGenerator{formatter: f}, nil
}

// Formatter returns the underlying formatter.
func (g *ScriptGenerator) Formatter() *Formatter {
	return g.formatter
}

// GenerateFullScript renders the whole schema.
func (g *ScriptGenerator) GenerateFullScript(schema *models.Schema, includeDrop bool) string {
	return g.formatter.FormatSchema(schema, includeDrop)
}

// GenerateMigrationScript diffs two schemas by table name only. Added tables
// are created with their foreign keys and indexes; removed tables are dropped.
// Column and constraint changes are not detected.
func (g *ScriptGenerator) GenerateMigrationScript(from, to *models.Schema) string {
	lines := []string{
		"-- Migration Script",
		"-- From: " + from.Name,
		"-- To: " + to.Name,
		"",
	}

	added := tablesNotIn(to.Tables, from)
	if len(added) > 0 {
		lines = append(lines, "-- Add new tables")
		for _, table := range added {
			lines = append(lines, g.formatter.FormatCreateTable(table), "")
		}
		if fks := g.formatter.foreignKeyStatements(added); len(fks) > 0 {
			lines = append(lines, fks...)
			lines = append(lines, "")
		}
		if idx := g.formatter.indexStatements(added); len(idx) > 0 {
			lines = append(lines, idx...)
			lines = append(lines, "")
		}
	}

	// Reverse order so a removed child goes before its removed parent.
	removed := tablesNotIn(from.Tables, to)
	if len(removed) > 0 {
		lines = append(lines, "-- Drop removed tables")
		for i := len(removed) - 1; i >= 0; i-- {
			lines = append(lines, g.formatter.FormatDropTable(removed[i].Name, false))
		}
		lines = append(lines, "")
	}

	lines = append(lines,
		"-- Note: This is a simplified migration script",
		"-- Manual review required for column and constraint changes",
	)
	return strings.Join(lines, "\n")
}

func tablesNotIn(tables []*models.Table, other *models.Schema) []*models.Table {
	var out []*models.Table
	for _, t := range tables {
		if other.Table(t.Name) == nil {
			out = append(out, t)
		}
	}
	return out
}

// MigrationFiles is an up/down pair named for golang-migrate.
type MigrationFiles struct {
	UpName   string `json:"up_name"`
	UpSQL    string `json:"up_sql"`
	DownName string `json:"down_name"`
	DownSQL  string `json:"down_sql"`
}

var migrationNameUnsafe = regexp.MustCompile(`[^a-z0-9_]+`)

// GenerateMigrationFiles renders the migration from one schema to another as
// {version}_{name}.up.sql and the reverse migration as .down.sql.
func (g *ScriptGenerator) GenerateMigrationFiles(from, to *models.Schema, version uint, name string) (*MigrationFiles, error) {
	if version == 0 {
		return nil, fmt.Errorf("migration version must be positive")
	}
	slug := strings.Trim(migrationNameUnsafe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		slug = "schema"
	}
	base := fmt.Sprintf("%06d_%s", version, slug)
	return &MigrationFiles{
		UpName:   base + ".up.sql",
		UpSQL:    g.GenerateMigrationScript(from, to),
		DownName: base + ".down.sql",
		DownSQL:  g.GenerateMigrationScript(to, from),
	}, nil
}
