package sql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-schema/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

func strPtr(s string) *string { return &s }

func usersPostsSchema() *models.Schema {
	users := models.NewTable("users", "Registered users")
	users.Columns = []*models.Column{
		{Name: "id", SQLType: "INTEGER", AutoIncrement: true},
		{Name: "email", SQLType: "VARCHAR(255)"},
		{Name: "active", SQLType: "BOOLEAN", Nullable: true, DefaultValue: strPtr("TRUE")},
	}
	users.Constraints = []*models.Constraint{
		{Name: "pk_users", Type: models.ConstraintPrimaryKey, Columns: []string{"id"}},
		{Name: "uq_users_email", Type: models.ConstraintUnique, Columns: []string{"email"}},
	}

	posts := models.NewTable("posts", "")
	posts.Columns = []*models.Column{
		{Name: "id", SQLType: "INTEGER"},
		{Name: "user_id", SQLType: "INTEGER"},
	}
	fk := models.NewForeignKey("fk_posts_users", []string{"user_id"}, "users", []string{"id"})
	fk.OnDelete, fk.OnUpdate = models.ActionCascade, models.ActionCascade
	posts.Constraints = []*models.Constraint{
		{Name: "pk_posts", Type: models.ConstraintPrimaryKey, Columns: []string{"id"}},
		fk,
	}
	posts.Indexes = []*models.Index{{Name: "idx_posts_user_id", Columns: []string{"user_id"}}}

	return &models.Schema{Name: "blog", Tables: []*models.Table{users, posts}}
}

func TestNewFormatter_UnsupportedDialect(t *testing.T) {
	_, err := NewFormatter("oracle")
	require.ErrorIs(t, err, apperrors.ErrUnsupportedDialect)
}

func TestFormatColumn_AutoIncrement(t *testing.T) {
	tests := []struct {
		dialect models.Dialect
		column  models.Column
		want    string
	}{
		{models.DialectPostgres, models.Column{Name: "id", SQLType: "INTEGER", AutoIncrement: true}, "id SERIAL"},
		{models.DialectPostgres, models.Column{Name: "id", SQLType: "BIGINT", AutoIncrement: true}, "id BIGSERIAL"},
		{models.DialectPostgres, models.Column{Name: "id", SQLType: "SMALLINT", AutoIncrement: true}, "id SMALLSERIAL"},
		{models.DialectPostgres, models.Column{Name: "code", SQLType: "VARCHAR(10)", AutoIncrement: true}, "code VARCHAR(10) NOT NULL"},
		{models.DialectMySQL, models.Column{Name: "id", SQLType: "INT", AutoIncrement: true}, "`id` INT NOT NULL AUTO_INCREMENT"},
		{models.DialectMSSQL, models.Column{Name: "id", SQLType: "INT", AutoIncrement: true}, "[id] INT NOT NULL IDENTITY(1,1)"},
		{models.DialectSQLite, models.Column{Name: "id", SQLType: "INTEGER", AutoIncrement: true}, "id INTEGER NOT NULL"},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect)+"/"+tt.column.SQLType, func(t *testing.T) {
			f, err := NewFormatter(tt.dialect)
			require.NoError(t, err)
			col := tt.column
			assert.Equal(t, tt.want, f.FormatColumn(&col))
		})
	}
}

func TestFormatColumn_Default(t *testing.T) {
	f, err := NewFormatter(models.DialectPostgres)
	require.NoError(t, err)

	assert.Equal(t, "status VARCHAR(20) NOT NULL DEFAULT 'new'",
		f.FormatColumn(&models.Column{Name: "status", SQLType: "VARCHAR(20)", DefaultValue: strPtr("'new'")}))
	assert.Equal(t, "note TEXT",
		f.FormatColumn(&models.Column{Name: "note", SQLType: "TEXT", Nullable: true, DefaultValue: strPtr("")}))
}

func TestFormatSchema_Postgres(t *testing.T) {
	f, err := NewFormatter(models.DialectPostgres)
	require.NoError(t, err)

	script := f.FormatSchema(usersPostsSchema(), true)

	assert.True(t, strings.HasPrefix(script, "-- Schema: blog\n-- Generated for: POSTGRESQL\n"))
	assert.Contains(t, script, "DROP TABLE IF EXISTS posts CASCADE;\nDROP TABLE IF EXISTS users CASCADE;")
	assert.Contains(t, script, "-- Registered users\nCREATE TABLE users (\n    id SERIAL,\n    email VARCHAR(255) NOT NULL,\n    active BOOLEAN DEFAULT TRUE,\n    CONSTRAINT pk_users PRIMARY KEY (id),\n    CONSTRAINT uq_users_email UNIQUE (email)\n);")
	assert.Contains(t, script, "ALTER TABLE posts ADD CONSTRAINT fk_posts_users FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE ON UPDATE CASCADE;")
	assert.Contains(t, script, "CREATE INDEX idx_posts_user_id ON posts (user_id);")

	// Every FK comes after every CREATE TABLE.
	lastCreate := strings.LastIndex(script, "CREATE TABLE")
	firstFK := strings.Index(script, "ALTER TABLE")
	assert.Less(t, lastCreate, firstFK)
	assert.Less(t, firstFK, strings.Index(script, "CREATE INDEX"))
}

func TestFormatSchema_NoDrop(t *testing.T) {
	f, err := NewFormatter(models.DialectPostgres)
	require.NoError(t, err)
	assert.NotContains(t, f.FormatSchema(usersPostsSchema(), false), "DROP TABLE")
}

func TestFormatSchema_MSSQL(t *testing.T) {
	f, err := NewFormatter(models.DialectMSSQL)
	require.NoError(t, err)

	schema := usersPostsSchema()
	schema.Tables[1].Constraints[1].OnDelete = models.ActionRestrict

	script := f.FormatSchema(schema, true)
	assert.Contains(t, script, "DROP TABLE IF EXISTS [users];")
	assert.NotContains(t, script, "] CASCADE;")
	assert.Contains(t, script, "ALTER TABLE [posts] ADD CONSTRAINT [fk_posts_users] FOREIGN KEY ([user_id]) REFERENCES [users] ([id]) ON DELETE NO ACTION ON UPDATE CASCADE;")
}

func TestFormatSchema_SQLiteInlinesForeignKeys(t *testing.T) {
	f, err := NewFormatter(models.DialectSQLite)
	require.NoError(t, err)

	script := f.FormatSchema(usersPostsSchema(), false)
	assert.NotContains(t, script, "ALTER TABLE")
	assert.NotContains(t, script, "-- Add foreign keys")
	assert.Contains(t, script, "    CONSTRAINT fk_posts_users FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE ON UPDATE CASCADE\n);")
}

func TestFormatCreateTable_Check(t *testing.T) {
	f, err := NewFormatter(models.DialectMySQL)
	require.NoError(t, err)

	table := models.NewTable("items", "")
	table.Columns = []*models.Column{{Name: "price", SQLType: "DECIMAL(10,2)"}}
	table.Constraints = []*models.Constraint{
		{Name: "chk_items_price", Type: models.ConstraintCheck, Columns: []string{"price"}, CheckExpression: "price > 0"},
		{Name: "nn_items_price", Type: models.ConstraintNotNull, Columns: []string{"price"}},
	}

	assert.Equal(t, "CREATE TABLE `items` (\n    `price` DECIMAL(10,2) NOT NULL,\n    CONSTRAINT `chk_items_price` CHECK (price > 0)\n);",
		f.FormatCreateTable(table))
}

func TestFormatCreateIndex(t *testing.T) {
	f, err := NewFormatter(models.DialectPostgres)
	require.NoError(t, err)
	assert.Equal(t, "CREATE UNIQUE INDEX uidx_users_email ON users (email);",
		f.FormatCreateIndex("users", &models.Index{Name: "uidx_users_email", Columns: []string{"email"}, Unique: true}))
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		dialect models.Dialect
		name    string
		want    string
	}{
		{models.DialectPostgres, "users", "users"},
		{models.DialectPostgres, "user", `"user"`},
		{models.DialectPostgres, "Users", `"Users"`},
		{models.DialectPostgres, "order items", `"order items"`},
		{models.DialectPostgres, `we"ird`, `"we""ird"`},
		{models.DialectMySQL, "users", "`users`"},
		{models.DialectMySQL, "a`b", "`a``b`"},
		{models.DialectMSSQL, "users", "[users]"},
		{models.DialectMSSQL, "a]b", "[a]]b]"},
		{models.DialectSQLite, "Users", "Users"},
		{models.DialectSQLite, "order items", `"order items"`},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect)+"/"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteIdentifier(tt.dialect, tt.name))
		})
	}
}
