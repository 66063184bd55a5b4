package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/constraints"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
	"github.com/ekaya-inc/ekaya-schema/pkg/typemap"
)

// ERDTransformer converts an ERD into a DSD for one dialect.
type ERDTransformer interface {
	// Transform builds one table per entity, then materializes foreign keys and
	// junction tables from each relationship. Relationships that reference
	// unknown entities or use an unknown cardinality leave the schema unchanged;
	// the constraint analyzer reports them.
	Transform(ctx context.Context, erd *models.ERD, dialect models.Dialect) (*models.Schema, error)
}

type erdTransformer struct {
	logger *zap.Logger
}

// NewERDTransformer creates a new ERD transformer.
func NewERDTransformer(logger *zap.Logger) ERDTransformer {
	return &erdTransformer{
		logger: logger.Named("erd-transformer"),
	}
}

var _ ERDTransformer = (*erdTransformer)(nil)

// transformRun holds the per-call state of one transformation.
type transformRun struct {
	mapper *typemap.Mapper
	schema *models.Schema
	logger *zap.Logger
}

func (s *erdTransformer) Transform(ctx context.Context, erd *models.ERD, dialect models.Dialect) (*models.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dialect == "" {
		dialect = models.DialectPostgres
	}
	mapper, err := typemap.NewMapper(dialect)
	if err != nil {
		return nil, err
	}

	run := &transformRun{
		mapper: mapper,
		schema: &models.Schema{
			Name:        erd.SchemaName(),
			Description: erd.Description,
			Dialect:     dialect,
			Tables:      make([]*models.Table, 0, len(erd.Entities)),
		},
		logger: s.logger,
	}

	for i := range erd.Entities {
		table, err := run.entityToTable(&erd.Entities[i])
		if err != nil {
			return nil, err
		}
		run.schema.Tables = append(run.schema.Tables, table)
	}

	for _, rel := range erd.Relationships {
		if err := run.applyRelationship(rel); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("Transformed ERD",
		zap.String("schema", run.schema.Name),
		zap.String("dialect", string(dialect)),
		zap.Int("entities", len(erd.Entities)),
		zap.Int("relationships", len(erd.Relationships)),
		zap.Int("tables", len(run.schema.Tables)))

	return run.schema, nil
}

func (r *transformRun) entityToTable(entity *models.Entity) (*models.Table, error) {
	tableName := entity.TableName()
	table := models.NewTable(tableName, entity.Description)

	for i := range entity.Attributes {
		col, err := r.attributeToColumn(&entity.Attributes[i])
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", tableName, err)
		}
		table.Columns = append(table.Columns, col)
	}

	if pk := entity.PrimaryKeyAttributes(); len(pk) > 0 {
		table.Constraints = append(table.Constraints, &models.Constraint{
			Name:    constraints.GeneratePKName(tableName),
			Type:    models.ConstraintPrimaryKey,
			Columns: pk,
		})
	}

	for _, attr := range entity.Attributes {
		if attr.Unique && !attr.PrimaryKey {
			addConstraint(table, &models.Constraint{
				Name:    constraints.GenerateUniqueName(tableName, attr.ColumnName()),
				Type:    models.ConstraintUnique,
				Columns: []string{attr.ColumnName()},
			}, attr.ColumnName())
		}
	}

	for _, attr := range entity.Attributes {
		if attr.Check == "" {
			continue
		}
		addConstraint(table, &models.Constraint{
			Name:            constraints.GenerateCheckName(tableName, attr.ColumnName()),
			Type:            models.ConstraintCheck,
			Columns:         []string{attr.ColumnName()},
			CheckExpression: attr.Check,
		}, attr.ColumnName())
	}

	return table, nil
}

// attributeType returns the declared type. An untyped attribute is typed by
// its name, then by its default value, and falls back to String.
func (r *transformRun) attributeType(attr *models.Attribute) models.LogicalType {
	if attr.Type != "" {
		return attr.Type
	}
	lt, ok := typemap.InferFromName(attr.ColumnName())
	if !ok && attr.Default.Set && attr.Default.Value != nil {
		lt, ok = typemap.InferFromSample(attr.Default.Value), true
	}
	if !ok {
		return attr.LogicalType()
	}
	r.logger.Debug("Inferred attribute type",
		zap.String("attribute", attr.ColumnName()),
		zap.String("type", string(lt)))
	return lt
}

func (r *transformRun) attributeToColumn(attr *models.Attribute) (*models.Column, error) {
	lt := r.attributeType(attr)
	sqlType, err := r.mapper.MapType(lt, attr.TypeParams)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", attr.ColumnName(), err)
	}

	col := &models.Column{
		Name:          attr.ColumnName(),
		SQLType:       sqlType,
		Nullable:      attr.IsNullable(),
		Unique:        attr.Unique,
		AutoIncrement: attr.AutoIncrement,
		Description:   attr.Description,
		LogicalType:   lt,
		TypeParams:    attr.TypeParams,
	}
	if attr.Default.Set {
		v := r.mapper.DefaultValue(lt, attr.Default.Value)
		col.DefaultValue = &v
	}
	return col, nil
}

func (r *transformRun) applyRelationship(rel models.Relationship) error {
	switch rel.Cardinality() {
	case models.Cardinality1ToN:
		return r.addOneToMany(rel)
	case models.CardinalityNTo1:
		return r.addOneToMany(reverse(rel))
	case models.Cardinality1To1:
		return r.addOneToOne(rel)
	case models.CardinalityNToM:
		return r.addJunction(rel)
	default:
		r.logger.Debug("Skipping relationship with unknown cardinality",
			zap.String("from", rel.FromEntity),
			zap.String("to", rel.ToEntity),
			zap.String("type", string(rel.Type)))
		return nil
	}
}

// reverse turns an N:1 relationship into the equivalent 1:N one.
func reverse(rel models.Relationship) models.Relationship {
	out := rel
	out.FromEntity, out.ToEntity = rel.ToEntity, rel.FromEntity
	out.FromAttribute = rel.ToAttribute
	out.ToAttribute = rel.FromAttribute
	if out.FromAttribute == "" {
		out.FromAttribute = "id"
	}
	if out.ToAttribute == "" {
		out.ToAttribute = rel.ToEntity + "_id"
	}
	out.Type = models.Cardinality1ToN
	return out
}

// foreignKeyColumns returns the referenced key column on the "one" side and the
// FK column on the "many" side.
func foreignKeyColumns(rel models.Relationship) (fromAttr, toAttr string) {
	fromAttr = rel.FromAttribute
	if fromAttr == "" {
		fromAttr = "id"
	}
	toAttr = rel.ToAttribute
	if toAttr == "" {
		toAttr = rel.FromEntity + "_id"
	}
	return fromAttr, toAttr
}

// addOneToMany puts the FK on the to_entity table, which is the "many" side.
func (r *transformRun) addOneToMany(rel models.Relationship) error {
	toTable := r.schema.Table(rel.ToEntity)
	if toTable == nil || r.schema.Table(rel.FromEntity) == nil {
		r.logger.Debug("Skipping relationship to undefined entity",
			zap.String("from", rel.FromEntity),
			zap.String("to", rel.ToEntity))
		return nil
	}
	fromAttr, toAttr := foreignKeyColumns(rel)

	if err := r.ensureKeyColumn(toTable, toAttr); err != nil {
		return err
	}

	fk := models.NewForeignKey(
		constraints.GenerateFKName(rel.ToEntity, rel.FromEntity),
		[]string{toAttr}, rel.FromEntity, []string{fromAttr})
	fk.OnDelete = rel.OnDelete.Or(models.ActionCascade)
	fk.OnUpdate = rel.OnUpdate.Or(models.ActionCascade)
	addConstraint(toTable, fk, toAttr)

	idxName := constraints.GenerateIndexName(rel.ToEntity, toAttr, false)
	if toTable.Index(idxName) == nil {
		toTable.Indexes = append(toTable.Indexes, &models.Index{
			Name:    idxName,
			Columns: []string{toAttr},
		})
	}
	return nil
}

func (r *transformRun) addOneToOne(rel models.Relationship) error {
	if err := r.addOneToMany(rel); err != nil {
		return err
	}
	toTable := r.schema.Table(rel.ToEntity)
	if toTable == nil || r.schema.Table(rel.FromEntity) == nil {
		return nil
	}
	_, toAttr := foreignKeyColumns(rel)
	addConstraint(toTable, &models.Constraint{
		Name:    constraints.GenerateUniqueName(rel.ToEntity, toAttr),
		Type:    models.ConstraintUnique,
		Columns: []string{toAttr},
	}, "")
	return nil
}

func (r *transformRun) addJunction(rel models.Relationship) error {
	if r.schema.Table(rel.FromEntity) == nil || r.schema.Table(rel.ToEntity) == nil {
		r.logger.Debug("Skipping N:M relationship to undefined entity",
			zap.String("from", rel.FromEntity),
			zap.String("to", rel.ToEntity))
		return nil
	}

	name := rel.JunctionTable
	if name == "" {
		name = rel.FromEntity + "_" + rel.ToEntity
	}
	if r.schema.Table(name) != nil {
		r.logger.Debug("Junction table already defined, leaving it unchanged",
			zap.String("junction_table", name))
		return nil
	}

	junction := models.NewTable(name, fmt.Sprintf("Junction table for %s and %s", rel.FromEntity, rel.ToEntity))
	fromCol := rel.FromEntity + "_id"
	toCol := rel.ToEntity + "_id"
	for _, col := range []string{fromCol, toCol} {
		if err := r.ensureKeyColumn(junction, col); err != nil {
			return err
		}
	}

	junction.Constraints = append(junction.Constraints, &models.Constraint{
		Name:    constraints.GeneratePKName(name),
		Type:    models.ConstraintPrimaryKey,
		Columns: []string{fromCol, toCol},
	})

	for _, side := range []struct{ entity, column string }{
		{rel.FromEntity, fromCol},
		{rel.ToEntity, toCol},
	} {
		fk := models.NewForeignKey(constraints.GenerateFKName(name, side.entity),
			[]string{side.column}, side.entity, []string{"id"})
		fk.OnDelete = rel.OnDelete.Or(models.ActionCascade)
		fk.OnUpdate = rel.OnUpdate.Or(fk.OnUpdate)
		addConstraint(junction, fk, side.column)
	}

	r.schema.Tables = append(r.schema.Tables, junction)
	return nil
}

// ensureKeyColumn adds a NOT NULL integer column unless one by that name exists.
func (r *transformRun) ensureKeyColumn(table *models.Table, name string) error {
	if table.HasColumn(name) {
		return nil
	}
	sqlType, err := r.mapper.MapType(models.TypeInteger, models.TypeParams{})
	if err != nil {
		return err
	}
	table.Columns = append(table.Columns, &models.Column{
		Name:        name,
		SQLType:     sqlType,
		Nullable:    false,
		LogicalType: models.TypeInteger,
	})
	return nil
}

// addConstraint appends c, suffixing its name with _{column} when the name is
// already taken. An exact duplicate of an existing constraint is dropped.
func addConstraint(table *models.Table, c *models.Constraint, column string) {
	if existing := table.Constraint(c.Name); existing != nil {
		if sameConstraint(existing, c) {
			return
		}
		if column != "" {
			c.Name = c.Name + "_" + column
		}
		if existing := table.Constraint(c.Name); existing != nil && sameConstraint(existing, c) {
			return
		}
	}
	table.Constraints = append(table.Constraints, c)
}

func sameConstraint(a, b *models.Constraint) bool {
	if a.Type != b.Type || a.ReferencedTable != b.ReferencedTable || len(a.Columns) != len(b.Columns) {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}
	return true
}
