package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-schema/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

const blogDiagram = `{
	"nodes": [
		{"id": "e1", "data": {"nodeType": "entity", "label": "Users"}},
		{"id": "e2", "data": {"nodeType": "entity", "label": "Blog Posts", "description": "Published posts"}},
		{"id": "a1", "data": {"nodeType": "attribute", "label": "ID", "type": "Integer", "isPrimaryKey": true}},
		{"id": "a2", "data": {"nodeType": "attribute", "label": "Email", "isUnique": true}},
		{"id": "a3", "data": {"nodeType": "attribute", "label": "id", "type": "Integer", "isPrimaryKey": true}},
		{"id": "a4", "data": {"nodeType": "attribute", "label": "Body", "type": "Text", "isRequired": false}},
		{"id": "r1", "data": {"nodeType": "relationship", "label": "writes", "relationshipType": "1:N", "entityConnections": ["e1", "e2"]}},
		{"id": "r2", "data": {"nodeType": "relationship", "label": "dangling", "entityConnections": ["e1"]}},
		{"id": "n1", "data": {"nodeType": "note", "label": "ignored"}}
	],
	"edges": [
		{"source": "e1", "target": "a1"},
		{"source": "e1", "target": "a2"},
		{"source": "e2", "target": "a3"},
		{"source": "e2", "target": "a4"},
		{"source": "e1", "target": "e2"}
	]
}`

func decodeDiagram(t *testing.T, doc string) ([]DiagramNode, []DiagramEdge) {
	t.Helper()
	var d struct {
		Nodes []DiagramNode `json:"nodes"`
		Edges []DiagramEdge `json:"edges"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &d))
	return d.Nodes, d.Edges
}

func TestParseDiagram(t *testing.T) {
	nodes, edges := decodeDiagram(t, blogDiagram)

	erd, err := ParseDiagram("My Blog", nodes, edges)
	require.NoError(t, err)

	assert.Equal(t, "my_blog", erd.Name)
	require.Len(t, erd.Entities, 2)

	users := erd.Entities[0]
	assert.Equal(t, "users", users.Name)
	require.Len(t, users.Attributes, 2)
	assert.Equal(t, "id", users.Attributes[0].Name)
	assert.True(t, users.Attributes[0].PrimaryKey)
	assert.Equal(t, models.TypeString, users.Attributes[1].Type)
	assert.True(t, users.Attributes[1].Unique)
	assert.False(t, users.Attributes[1].IsNullable(), "attributes are required unless marked otherwise")

	posts := erd.Entities[1]
	assert.Equal(t, "blog_posts", posts.Name)
	assert.Equal(t, "Published posts", posts.Description)
	assert.True(t, posts.Attributes[1].IsNullable())

	require.Len(t, erd.Relationships, 1, "relationships need two entity connections")
	rel := erd.Relationships[0]
	assert.Equal(t, "users", rel.FromEntity)
	assert.Equal(t, "blog_posts", rel.ToEntity)
	assert.Equal(t, models.Cardinality1ToN, rel.Type)
	assert.Equal(t, "id", rel.FromAttribute)
	assert.Empty(t, rel.ToAttribute)
	assert.Equal(t, models.ActionCascade, rel.OnDelete)
}

func TestParseDiagram_TransformsToSchema(t *testing.T) {
	nodes, edges := decodeDiagram(t, blogDiagram)
	erd, err := ParseDiagram("blog", nodes, edges)
	require.NoError(t, err)

	schema, err := NewERDTransformer(zap.NewNop()).Transform(context.Background(), erd, models.DialectPostgres)
	require.NoError(t, err)

	posts := schema.Table("blog_posts")
	require.NotNil(t, posts)
	assert.True(t, posts.HasColumn("users_id"))
	assert.NotNil(t, posts.Constraint("fk_blog_posts_users"))
}

func TestParseDiagram_Defaults(t *testing.T) {
	erd, err := ParseDiagram("", []DiagramNode{
		{ID: "e1", Data: DiagramNodeData{NodeType: NodeTypeEntity}},
		{ID: "e2", Data: DiagramNodeData{NodeType: NodeTypeEntity, Label: "Tags"}},
		{ID: "r1", Data: DiagramNodeData{NodeType: NodeTypeRelationship, EntityConnections: []string{"e2", "missing"}}},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.DefaultSchemaName, erd.Name)
	assert.Equal(t, "unknown", erd.Entities[0].Name)
	assert.Empty(t, erd.Entities[0].Attributes)
	require.Len(t, erd.Relationships, 1)
	assert.Equal(t, "missing", erd.Relationships[0].ToEntity, "unknown connection ids pass through")
	assert.Empty(t, erd.Relationships[0].FromAttribute)
}

func TestParseDiagram_DuplicateAttribute(t *testing.T) {
	_, err := ParseDiagram("dup", []DiagramNode{
		{ID: "e1", Data: DiagramNodeData{NodeType: NodeTypeEntity, Label: "users"}},
		{ID: "a1", Data: DiagramNodeData{NodeType: NodeTypeAttribute, Label: "Name"}},
		{ID: "a2", Data: DiagramNodeData{NodeType: NodeTypeAttribute, Label: "name"}},
	}, []DiagramEdge{{Source: "e1", Target: "a1"}, {Source: "e1", Target: "a2"}})

	require.ErrorIs(t, err, apperrors.ErrInvalidERD)
}
