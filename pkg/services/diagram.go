package services

import (
	"strings"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

// Diagram node kinds carried in DiagramNodeData.NodeType.
const (
	NodeTypeEntity       = "entity"
	NodeTypeAttribute    = "attribute"
	NodeTypeRelationship = "relationship"
)

// DiagramNode is one node of a canvas diagram.
type DiagramNode struct {
	ID   string          `json:"id"`
	Data DiagramNodeData `json:"data"`
}

// DiagramNodeData holds the fields of every node kind; which ones are read
// depends on NodeType.
type DiagramNodeData struct {
	NodeType          string   `json:"nodeType"`
	Label             string   `json:"label"`
	Description       string   `json:"description,omitempty"`
	Type              string   `json:"type,omitempty"`
	IsPrimaryKey      bool     `json:"isPrimaryKey,omitempty"`
	IsRequired        *bool    `json:"isRequired,omitempty"`
	IsUnique          bool     `json:"isUnique,omitempty"`
	RelationshipType  string   `json:"relationshipType,omitempty"`
	EntityConnections []string `json:"entityConnections,omitempty"`
}

// DiagramEdge connects two nodes by id.
type DiagramEdge struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// diagramName lowercases a label and replaces spaces with underscores.
func diagramName(label, fallback string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		label = fallback
	}
	return strings.ReplaceAll(strings.ToLower(label), " ", "_")
}

// ParseDiagram converts canvas nodes and edges into an ERD. Entity and
// attribute nodes become entities and attributes; an edge from an entity to
// an attribute attaches the attribute. Relationship nodes use their first two
// entityConnections as the from and to entities and reference the from
// entity's first primary-key attribute. The result is validated like any
// other ERD.
func ParseDiagram(name string, nodes []DiagramNode, edges []DiagramEdge) (*models.ERD, error) {
	erd := &models.ERD{
		Name:          diagramName(name, models.DefaultSchemaName),
		Entities:      []models.Entity{},
		Relationships: []models.Relationship{},
	}

	entityIndex := make(map[string]int)
	attributes := make(map[string]models.Attribute)
	var relationships []DiagramNodeData

	for _, node := range nodes {
		switch node.Data.NodeType {
		case NodeTypeEntity:
			entityIndex[node.ID] = len(erd.Entities)
			erd.Entities = append(erd.Entities, models.Entity{
				Name:        diagramName(node.Data.Label, "unknown"),
				Description: node.Data.Description,
				Attributes:  []models.Attribute{},
			})
		case NodeTypeAttribute:
			required := node.Data.IsRequired == nil || *node.Data.IsRequired
			nullable := !required
			attrType := models.LogicalType(node.Data.Type)
			if attrType == "" {
				attrType = models.TypeString
			}
			attributes[node.ID] = models.Attribute{
				Name:       diagramName(node.Data.Label, "unknown"),
				Type:       attrType,
				PrimaryKey: node.Data.IsPrimaryKey,
				Nullable:   &nullable,
				Unique:     node.Data.IsUnique,
			}
		case NodeTypeRelationship:
			relationships = append(relationships, node.Data)
		}
	}

	for _, edge := range edges {
		i, isEntity := entityIndex[edge.Source]
		attr, isAttr := attributes[edge.Target]
		if !isEntity || !isAttr {
			continue
		}
		erd.Entities[i].Attributes = append(erd.Entities[i].Attributes, attr)
	}

	entityName := func(id string) string {
		if i, ok := entityIndex[id]; ok {
			return erd.Entities[i].Name
		}
		return id
	}

	for _, data := range relationships {
		if len(data.EntityConnections) < 2 {
			continue
		}
		from := entityName(data.EntityConnections[0])
		to := entityName(data.EntityConnections[1])

		cardinality := models.Cardinality(data.RelationshipType)
		if cardinality == "" {
			cardinality = models.Cardinality1ToN
		}
		rel := models.Relationship{
			Name:       data.Label,
			FromEntity: from,
			ToEntity:   to,
			Type:       cardinality,
			OnDelete:   models.ActionCascade,
			OnUpdate:   models.ActionCascade,
		}
		if entity := erd.Entity(from); entity != nil {
			if pks := entity.PrimaryKeyAttributes(); len(pks) > 0 {
				rel.FromAttribute = pks[0]
			}
		}
		erd.Relationships = append(erd.Relationships, rel)
	}

	if err := erd.Validate(); err != nil {
		return nil, err
	}
	return erd, nil
}
