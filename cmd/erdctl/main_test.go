package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blogERDYAML = `
name: blog
entities:
  - name: users
    attributes:
      - {name: id, type: Integer, primary_key: true, auto_increment: true}
      - {name: email, type: String, unique: true}
  - name: posts
    attributes:
      - {name: id, type: Integer, primary_key: true}
      - {name: title, type: String}
relationships:
  - {from_entity: users, to_entity: posts, type: "1:N", from_attribute: id}
`

const brokenERD = `{
	"name": "broken",
	"entities": [
		{"name": "users", "attributes": [{"name": "id", "type": "Integer", "primary_key": true}]},
		{"name": "posts", "attributes": [{"name": "id", "type": "Integer", "primary_key": true}]}
	],
	"relationships": [
		{"from_entity": "users", "to_entity": "posts", "type": "1:N", "from_attribute": "uid"}
	]
}`

const ordersDSD = `{"name": "shop", "tables": [{
	"name": "orders",
	"columns": [
		{"name": "order_id", "sql_type": "INTEGER", "nullable": false},
		{"name": "customer_id", "sql_type": "INTEGER"},
		{"name": "customer_name", "sql_type": "VARCHAR(100)"}
	],
	"constraints": [{"name": "pk_orders", "type": "PRIMARY_KEY", "columns": ["order_id"]}]
}]}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// runCLI executes erdctl with args and an absent config file.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}, args...))
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	erd := writeFile(t, dir, "blog.yaml", blogERDYAML)

	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name:     "postgres default",
			args:     []string{"generate", "--erd", erd},
			contains: []string{"CREATE TABLE users", "CREATE TABLE posts", "REFERENCES users"},
		},
		{
			name:     "mysql with drops",
			args:     []string{"generate", "--erd", erd, "--dialect", "mysql", "--drop"},
			contains: []string{"DROP TABLE IF EXISTS", "CREATE TABLE `users`"},
		},
		{
			name:     "dialect alias",
			args:     []string{"generate", "--erd", erd, "--dialect", "sqlserver"},
			contains: []string{"CREATE TABLE [users]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCLI(t, tt.args...)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestGenerate_WritesOutputFile(t *testing.T) {
	dir := t.TempDir()
	erd := writeFile(t, dir, "blog.yaml", blogERDYAML)
	target := filepath.Join(dir, "schema.sql")

	out, _, err := runCLI(t, "generate", "--erd", erd, "--dialect", "sqlite", "-o", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "CREATE TABLE users")
}

func TestGenerate_BlockedByValidationErrors(t *testing.T) {
	erd := writeFile(t, t.TempDir(), "broken.json", brokenERD)

	out, errOut, err := runCLI(t, "generate", "--erd", erd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
	assert.Empty(t, out)
	assert.Contains(t, errOut, "INVALID_FK_COLUMN")

	out, _, err = runCLI(t, "generate", "--erd", erd, "--allow-errors")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE posts")
}

func TestGenerate_InputErrors(t *testing.T) {
	dir := t.TempDir()
	erd := writeFile(t, dir, "blog.yaml", blogERDYAML)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no input", args: []string{"generate"}, wantErr: "one of --erd or --diagram"},
		{name: "both inputs", args: []string{"generate", "--erd", erd, "--diagram", erd}, wantErr: "only one of"},
		{name: "bad dialect", args: []string{"generate", "--erd", erd, "--dialect", "oracle"}, wantErr: "unsupported"},
		{name: "missing file", args: []string{"generate", "--erd", filepath.Join(dir, "nope.json")}, wantErr: "nope.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, strings.ToLower(err.Error()), strings.ToLower(tt.wantErr))
		})
	}
}

func TestGenerate_FromDiagram(t *testing.T) {
	diagram := writeFile(t, t.TempDir(), "canvas.json", `{
		"name": "Notes App",
		"nodes": [
			{"id": "e1", "data": {"nodeType": "entity", "label": "Notes"}},
			{"id": "a1", "data": {"nodeType": "attribute", "label": "id", "type": "Integer", "isPrimaryKey": true}}
		],
		"edges": [{"source": "e1", "target": "a1"}]
	}`)

	out, _, err := runCLI(t, "generate", "--diagram", diagram, "--dialect", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE notes")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	dsd := writeFile(t, dir, "orders.json", ordersDSD)
	empty := writeFile(t, dir, "empty.json", `{"name": "empty", "tables": []}`)

	out, _, err := runCLI(t, "validate", "--dsd", dsd, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"valid": true`)

	_, errOut, err := runCLI(t, "validate", "--dsd", empty)
	require.Error(t, err)
	assert.Contains(t, errOut, "NO_TABLES")

	_, _, err = runCLI(t, "validate", "--erd", writeFile(t, dir, "blog.yaml", blogERDYAML))
	require.NoError(t, err)
}

func TestNormalize(t *testing.T) {
	dir := t.TempDir()
	dsd := writeFile(t, dir, "orders.json", ordersDSD)
	sqlPath := filepath.Join(dir, "normalized.sql")

	out, _, err := runCLI(t, "normalize", "--dsd", dsd,
		"--fds", "order_id -> customer_id; customer_id -> customer_name",
		"--sql", sqlPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"normalization_type": "BCNF"`)
	assert.Contains(t, out, `"success": true`)

	script, err := os.ReadFile(sqlPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(script), "CREATE TABLE"))
}

func TestNormalize_FDsFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	dsd := writeFile(t, dir, "orders.json", ordersDSD)
	fds := writeFile(t, dir, "fds.yaml", "- determinant: [order_id]\n  dependent: [customer_id]\n- determinant: [customer_id]\n  dependent: [customer_name]\n")

	out, _, err := runCLI(t, "normalize", "--dsd", dsd, "--fds", fds, "--type", "3nf")
	require.NoError(t, err)
	assert.Contains(t, out, `"normalization_type": "3NF"`)
}

func TestNormalize_Errors(t *testing.T) {
	dsd := writeFile(t, t.TempDir(), "orders.json", ordersDSD)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing dsd", args: []string{"normalize", "--fds", "a -> b"}, wantErr: "--dsd"},
		{name: "no fds", args: []string{"normalize", "--dsd", dsd}, wantErr: "no valid functional dependencies"},
		{name: "unknown attribute", args: []string{"normalize", "--dsd", dsd, "--fds", "order_id -> shipping"}, wantErr: "unknown attributes"},
		{name: "bad type", args: []string{"normalize", "--dsd", dsd, "--fds", "order_id -> customer_id", "--type", "4NF"}, wantErr: "normalization_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalize_Check(t *testing.T) {
	dsd := writeFile(t, t.TempDir(), "orders.json", ordersDSD)

	out, _, err := runCLI(t, "normalize", "--dsd", dsd, "--check", "--fds", "order_id -> customer_id; customer_id -> customer_name")
	require.NoError(t, err)
	assert.Contains(t, out, `"orders"`)
}

func TestMigrate(t *testing.T) {
	dir := t.TempDir()
	from := writeFile(t, dir, "from.json", `{"name": "v1", "tables": []}`)
	to := writeFile(t, dir, "to.json", ordersDSD)

	out, _, err := runCLI(t, "migrate", "--from", from, "--to", to)
	require.NoError(t, err)
	assert.Contains(t, out, "-- Add new tables")
	assert.Contains(t, out, "CREATE TABLE orders")

	migrations := filepath.Join(dir, "migrations")
	out, _, err = runCLI(t, "migrate", "--from", from, "--to", to, "--dir", migrations, "--version", "7", "--name", "add orders")
	require.NoError(t, err)
	assert.Contains(t, out, "000007_add_orders.up.sql")
	assert.FileExists(t, filepath.Join(migrations, "000007_add_orders.down.sql"))

	_, _, err = runCLI(t, "migrate", "--from", from, "--to", to, "--apply")
	assert.ErrorContains(t, err, "--apply requires --dir")

	_, _, err = runCLI(t, "migrate", "--from", from, "--to", to, "--dir", migrations, "--dialect", "mysql", "--apply")
	assert.ErrorContains(t, err, "postgresql only")
}

func TestApply_SQLite(t *testing.T) {
	dir := t.TempDir()
	erd := writeFile(t, dir, "blog.yaml", blogERDYAML)
	db := filepath.Join(dir, "blog.db")

	out, _, err := runCLI(t, "apply", "--erd", erd, "--dialect", "sqlite", "--dsn", db)
	require.NoError(t, err)
	assert.Contains(t, out, "applied 2 table(s)")
	assert.Contains(t, out, "posts, users")

	// Without drops the tables already exist.
	_, _, err = runCLI(t, "apply", "--erd", erd, "--dialect", "sqlite", "--dsn", db)
	assert.Error(t, err)

	_, _, err = runCLI(t, "apply", "--erd", erd, "--dialect", "sqlite", "--dsn", db, "--drop")
	require.NoError(t, err)
}

func TestApply_RequiresDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	erd := writeFile(t, t.TempDir(), "blog.yaml", blogERDYAML)

	_, _, err := runCLI(t, "apply", "--erd", erd, "--dialect", "sqlite")
	assert.ErrorContains(t, err, "--dsn")
}

func TestGenerate_EnsurePrimaryKey(t *testing.T) {
	erd := writeFile(t, t.TempDir(), "logs.json",
		`{"name": "logs", "entities": [{"name": "events", "attributes": [{"name": "id", "type": "Integer"}]}]}`)

	out, _, err := runCLI(t, "generate", "--erd", erd, "--ensure-pk")
	require.NoError(t, err)
	assert.Contains(t, out, "CONSTRAINT pk_events PRIMARY KEY (id)")
}

func TestValidate_ReportsAnalyzerFindings(t *testing.T) {
	dsd := writeFile(t, t.TempDir(), "dangling.json", `{"name": "shop", "tables": [{
		"name": "orders",
		"columns": [{"name": "id", "sql_type": "INTEGER"}, {"name": "customer_id", "sql_type": "INTEGER"}],
		"constraints": [
			{"name": "pk_orders", "type": "PRIMARY_KEY", "columns": ["id"]},
			{"name": "fk_orders_customers", "type": "FOREIGN_KEY", "columns": ["customer_id"], "referenced_table": "customers", "referenced_columns": ["id"]}
		]
	}]}`)

	_, errOut, err := runCLI(t, "validate", "--dsd", dsd)
	require.Error(t, err)
	assert.Contains(t, errOut, "missing_referenced_table")
}

func TestApply_RefusesSuspiciousCheck(t *testing.T) {
	dir := t.TempDir()
	erd := writeFile(t, dir, "notes.json", `{"name": "notes", "entities": [{"name": "notes", "attributes": [
		{"name": "id", "type": "Integer", "primary_key": true},
		{"name": "body", "type": "Text", "check": "body <> '1 UNION SELECT * FROM passwords'"}
	]}]}`)

	_, _, err := runCLI(t, "apply", "--erd", erd, "--dialect", "sqlite", "--dsn", filepath.Join(dir, "notes.db"), "--allow-errors")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to apply")
}

func TestApply_RefusesSuspiciousDefault(t *testing.T) {
	dir := t.TempDir()
	erd := writeFile(t, dir, "users.json", `{"name": "shop", "entities": [{"name": "users", "attributes": [
		{"name": "id", "type": "Integer", "primary_key": true},
		{"name": "visits", "type": "Integer", "default": "0; DROP TABLE users; --"}
	]}]}`)
	db := filepath.Join(dir, "shop.db")

	_, errOut, err := runCLI(t, "apply", "--erd", erd, "--dialect", "sqlite", "--dsn", db)
	require.Error(t, err)
	assert.Contains(t, errOut, "INVALID_DEFAULT_VALUE")

	_, _, err = runCLI(t, "apply", "--erd", erd, "--dialect", "sqlite", "--dsn", db, "--allow-errors")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to apply unsafe SQL")
	assert.Contains(t, err.Error(), "users.visits")
	assert.NoFileExists(t, db)
}

func TestGenerate_QuotesNonNumericDefault(t *testing.T) {
	erd := writeFile(t, t.TempDir(), "users.json", `{"name": "shop", "entities": [{"name": "users", "attributes": [
		{"name": "id", "type": "Integer", "primary_key": true},
		{"name": "visits", "type": "Integer", "default": "0; DROP TABLE users; --"}
	]}]}`)

	out, _, err := runCLI(t, "generate", "--erd", erd, "--allow-errors")
	require.NoError(t, err)
	assert.Contains(t, out, "DEFAULT '0; DROP TABLE users; --'")
}
