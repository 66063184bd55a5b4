package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

const usersPostsERD = `{
	"name": "blog",
	"entities": [
		{"name": "users", "attributes": [
			{"name": "id", "type": "Integer", "primary_key": true, "auto_increment": true},
			{"name": "name", "type": "String", "length": 100}
		]},
		{"name": "posts", "attributes": [
			{"name": "id", "type": "Integer", "primary_key": true},
			{"name": "title", "type": "String"}
		]}
	],
	"relationships": [
		{"from_entity": "users", "to_entity": "posts", "type": "1:N", "from_attribute": "id", "to_attribute": "user_id"}
	]
}`

const studentsCoursesERD = `{
	"name": "school",
	"entities": [
		{"name": "students", "attributes": [{"name": "id", "type": "Integer", "primary_key": true}]},
		{"name": "courses", "attributes": [{"name": "id", "type": "Integer", "primary_key": true}]}
	],
	"relationships": [
		{"from_entity": "students", "to_entity": "courses", "type": "N:M", "junction_table": "enrollments"}
	]
}`

func parseERD(t *testing.T, doc string) *models.ERD {
	t.Helper()
	erd, err := models.ParseERD([]byte(doc))
	require.NoError(t, err)
	return erd
}

func TestERDTransformer_OneToMany(t *testing.T) {
	transformer := NewERDTransformer(zap.NewNop())

	schema, err := transformer.Transform(context.Background(), parseERD(t, usersPostsERD), models.DialectPostgres)
	require.NoError(t, err)

	assert.Equal(t, "blog", schema.Name)
	assert.Equal(t, []string{"users", "posts"}, schema.TableNames())

	users := schema.Table("users")
	assert.Equal(t, "VARCHAR(100)", users.Column("name").SQLType)
	assert.True(t, users.Column("id").AutoIncrement)
	assert.False(t, users.Column("id").Nullable)
	assert.Equal(t, []string{"id"}, users.PrimaryKey().Columns)
	assert.Equal(t, "pk_users", users.PrimaryKey().Name)

	posts := schema.Table("posts")
	userID := posts.Column("user_id")
	require.NotNil(t, userID)
	assert.Equal(t, "INTEGER", userID.SQLType)
	assert.False(t, userID.Nullable)

	fk := posts.Constraint("fk_posts_users")
	require.NotNil(t, fk)
	assert.Equal(t, models.ConstraintForeignKey, fk.Type)
	assert.Equal(t, []string{"user_id"}, fk.Columns)
	assert.Equal(t, "users", fk.ReferencedTable)
	assert.Equal(t, []string{"id"}, fk.ReferencedColumns)
	assert.Equal(t, models.ActionCascade, fk.OnDelete)
	assert.Equal(t, models.ActionCascade, fk.OnUpdate)

	idx := posts.Index("idx_posts_user_id")
	require.NotNil(t, idx)
	assert.Equal(t, []string{"user_id"}, idx.Columns)

	result := NewDSDValidator(zap.NewNop()).Validate(context.Background(), schema)
	assert.Zero(t, result.Errors, "issues: %+v", result.ErrorIssues())
	assert.True(t, result.Valid)
}

func TestERDTransformer_ManyToMany(t *testing.T) {
	transformer := NewERDTransformer(zap.NewNop())

	schema, err := transformer.Transform(context.Background(), parseERD(t, studentsCoursesERD), models.DialectPostgres)
	require.NoError(t, err)

	require.Len(t, schema.Tables, 3)
	enrollments := schema.Table("enrollments")
	require.NotNil(t, enrollments)
	assert.Equal(t, "Junction table for students and courses", enrollments.Description)
	assert.Equal(t, []string{"students_id", "courses_id"}, enrollments.ColumnNames())
	assert.Equal(t, []string{"students_id", "courses_id"}, enrollments.PrimaryKey().Columns)

	fks := enrollments.ConstraintsOfType(models.ConstraintForeignKey)
	require.Len(t, fks, 2)
	assert.Equal(t, "fk_enrollments_students", fks[0].Name)
	assert.Equal(t, "students", fks[0].ReferencedTable)
	assert.Equal(t, models.ActionCascade, fks[0].OnDelete)
	assert.Equal(t, models.ActionRestrict, fks[0].OnUpdate)
	assert.Equal(t, "fk_enrollments_courses", fks[1].Name)
	assert.Equal(t, []string{"id"}, fks[1].ReferencedColumns)
}

func TestERDTransformer_Relationships(t *testing.T) {
	base := func() *models.ERD {
		return &models.ERD{
			Name: "shop",
			Entities: []models.Entity{
				{Name: "customers", Attributes: []models.Attribute{{Name: "id", Type: models.TypeInteger, PrimaryKey: true}}},
				{Name: "orders", Attributes: []models.Attribute{{Name: "id", Type: models.TypeInteger, PrimaryKey: true}}},
			},
		}
	}

	tests := []struct {
		name   string
		rel    models.Relationship
		verify func(t *testing.T, schema *models.Schema)
	}{
		{
			name: "N:1 puts the key on the from side",
			rel:  models.Relationship{FromEntity: "orders", ToEntity: "customers", Type: models.CardinalityNTo1},
			verify: func(t *testing.T, schema *models.Schema) {
				orders := schema.Table("orders")
				require.True(t, orders.HasColumn("customers_id"))
				fk := orders.Constraint("fk_orders_customers")
				require.NotNil(t, fk)
				assert.Equal(t, []string{"id"}, fk.ReferencedColumns)
				assert.Empty(t, schema.Table("customers").ConstraintsOfType(models.ConstraintForeignKey))
			},
		},
		{
			name: "1:1 adds a unique constraint",
			rel:  models.Relationship{FromEntity: "customers", ToEntity: "orders", Type: models.Cardinality1To1, OnDelete: models.ActionSetNull},
			verify: func(t *testing.T, schema *models.Schema) {
				orders := schema.Table("orders")
				fk := orders.Constraint("fk_orders_customers")
				require.NotNil(t, fk)
				assert.Equal(t, models.ActionSetNull, fk.OnDelete)
				uq := orders.Constraint("uq_orders_customers_id")
				require.NotNil(t, uq)
				assert.Equal(t, models.ConstraintUnique, uq.Type)
			},
		},
		{
			name: "default type is 1:N",
			rel:  models.Relationship{FromEntity: "customers", ToEntity: "orders"},
			verify: func(t *testing.T, schema *models.Schema) {
				assert.True(t, schema.Table("orders").HasColumn("customers_id"))
			},
		},
		{
			name: "unknown entity leaves the schema unchanged",
			rel:  models.Relationship{FromEntity: "customers", ToEntity: "invoices"},
			verify: func(t *testing.T, schema *models.Schema) {
				assert.Len(t, schema.Table("customers").Columns, 1)
				assert.Len(t, schema.Table("orders").Columns, 1)
			},
		},
		{
			name: "unknown cardinality is ignored",
			rel:  models.Relationship{FromEntity: "customers", ToEntity: "orders", Type: "2:3"},
			verify: func(t *testing.T, schema *models.Schema) {
				assert.Len(t, schema.Table("orders").Constraints, 1)
			},
		},
		{
			name: "N:M default junction name",
			rel:  models.Relationship{FromEntity: "customers", ToEntity: "orders", Type: models.CardinalityNToM},
			verify: func(t *testing.T, schema *models.Schema) {
				require.NotNil(t, schema.Table("customers_orders"))
			},
		},
		{
			name: "N:M junction that already exists is kept",
			rel:  models.Relationship{FromEntity: "customers", ToEntity: "orders", Type: models.CardinalityNToM, JunctionTable: "orders"},
			verify: func(t *testing.T, schema *models.Schema) {
				assert.Len(t, schema.Tables, 2)
				assert.Empty(t, schema.Table("orders").ConstraintsOfType(models.ConstraintForeignKey))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			erd := base()
			erd.Relationships = []models.Relationship{tt.rel}
			schema, err := NewERDTransformer(zap.NewNop()).Transform(context.Background(), erd, models.DialectPostgres)
			require.NoError(t, err)
			tt.verify(t, schema)
		})
	}
}

func TestERDTransformer_ForeignKeyTypeFollowsDialect(t *testing.T) {
	transformer := NewERDTransformer(zap.NewNop())

	schema, err := transformer.Transform(context.Background(), parseERD(t, usersPostsERD), models.DialectMySQL)
	require.NoError(t, err)
	assert.Equal(t, "INT", schema.Table("posts").Column("user_id").SQLType)

	result := NewDSDValidator(zap.NewNop()).Validate(context.Background(), schema)
	for _, i := range result.Issues {
		assert.NotEqual(t, CodeFKTypeMismatch, i.Code)
	}
}

func TestERDTransformer_AttributeDetails(t *testing.T) {
	erd := parseERD(t, `{
		"name": "shop",
		"entities": [{"name": "items", "attributes": [
			{"name": "id", "type": "Integer", "primary_key": true},
			{"name": "sku", "type": "String", "length": 32, "unique": true, "nullable": false},
			{"name": "price", "type": "Decimal", "precision": 8, "scale": 2, "check": "price > 0"},
			{"name": "active", "type": "Boolean", "default": true},
			{"name": "label", "type": "String", "default": "it's new"}
		]}]
	}`)

	schema, err := NewERDTransformer(zap.NewNop()).Transform(context.Background(), erd, models.DialectPostgres)
	require.NoError(t, err)
	items := schema.Table("items")

	assert.Equal(t, "VARCHAR(32)", items.Column("sku").SQLType)
	assert.False(t, items.Column("sku").Nullable)
	assert.NotNil(t, items.Constraint("uq_items_sku"))

	assert.Equal(t, "DECIMAL(8,2)", items.Column("price").SQLType)
	chk := items.Constraint("chk_items_price")
	require.NotNil(t, chk)
	assert.Equal(t, "price > 0", chk.CheckExpression)

	require.NotNil(t, items.Column("active").DefaultValue)
	assert.Equal(t, "TRUE", *items.Column("active").DefaultValue)
	require.NotNil(t, items.Column("label").DefaultValue)
	assert.Equal(t, "'it''s new'", *items.Column("label").DefaultValue)
	assert.Nil(t, items.Column("sku").DefaultValue)
}

func TestERDTransformer_Errors(t *testing.T) {
	transformer := NewERDTransformer(zap.NewNop())
	erd := parseERD(t, usersPostsERD)

	_, err := transformer.Transform(context.Background(), erd, "oracle")
	require.ErrorIs(t, err, apperrors.ErrUnsupportedDialect)

	erd.Entities[0].Attributes[1].Type = "Money"
	_, err = transformer.Transform(context.Background(), erd, models.DialectPostgres)
	require.ErrorIs(t, err, apperrors.ErrUnknownType)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = transformer.Transform(ctx, parseERD(t, usersPostsERD), models.DialectPostgres)
	require.ErrorIs(t, err, context.Canceled)
}

func TestERDTransformer_InfersMissingTypes(t *testing.T) {
	erd := parseERD(t, `{
		"name": "crm",
		"entities": [{"name": "contacts", "attributes": [
			{"name": "id", "primary_key": true},
			{"name": "created_at"},
			{"name": "is_active", "default": true},
			{"name": "score", "default": 70000},
			{"name": "nickname"}
		]}]
	}`)

	schema, err := NewERDTransformer(zap.NewNop()).Transform(context.Background(), erd, models.DialectPostgres)
	require.NoError(t, err)
	contacts := schema.Table("contacts")

	tests := []struct {
		column  string
		lt      models.LogicalType
		sqlType string
	}{
		{"id", models.TypeInteger, "INTEGER"},
		{"created_at", models.TypeDateTime, "TIMESTAMP"},
		{"is_active", models.TypeBoolean, "BOOLEAN"},
		{"score", models.TypeInteger, "INTEGER"},
		{"nickname", models.TypeString, "VARCHAR(255)"},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			col := contacts.Column(tt.column)
			require.NotNil(t, col)
			assert.Equal(t, tt.lt, col.LogicalType)
			assert.Equal(t, tt.sqlType, col.SQLType)
		})
	}
	assert.Equal(t, "TRUE", *contacts.Column("is_active").DefaultValue)
}
