package normalization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

func tableOf(name string, columns ...string) *models.Table {
	t := models.NewTable(name, "")
	for _, c := range columns {
		t.Columns = append(t.Columns, &models.Column{Name: c, SQLType: "INTEGER"})
	}
	return t
}

func TestViolationChecks(t *testing.T) {
	all := set("A", "B", "C")
	fds := []models.FunctionalDependency{fd("A, B", "C"), fd("C", "B")}

	tests := []struct {
		name     string
		fd       models.FunctionalDependency
		wantBCNF bool
		want3NF  bool
	}{
		{"superkey determinant", fd("A, B", "C"), false, false},
		{"trivial", fd("A, B", "A"), false, false},
		{"non-superkey with prime dependent", fd("C", "B"), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantBCNF, IsBCNFViolation(tt.fd, all, fds))
			assert.Equal(t, tt.want3NF, Is3NFViolation(tt.fd, all, fds))
		})
	}

	transitive := []models.FunctionalDependency{fd("A", "B"), fd("B", "C")}
	assert.True(t, Is3NFViolation(fd("B", "C"), all, transitive))
}

func TestCheckNormalizationLevel(t *testing.T) {
	orders := tableOf("orders", "order_id", "customer_id", "customer_name", "order_date")
	fds := []models.FunctionalDependency{
		fd("order_id", "customer_id, order_date"),
		fd("customer_id", "customer_name"),
		fd("product_id", "price"),
	}

	level := CheckNormalizationLevel(orders, fds)

	assert.False(t, level.IsBCNF)
	assert.False(t, level.Is3NF)
	require.Len(t, level.BCNFViolations, 1)
	assert.Equal(t, models.FDViolation{
		FD:          "customer_id -> customer_name",
		Determinant: []string{"customer_id"},
		Dependent:   []string{"customer_name"},
	}, level.BCNFViolations[0])
	assert.Len(t, level.ThirdNFViolations, 1)
	assert.Equal(t, [][]string{{"order_id"}}, level.CandidateKeys)
}

func TestCheckNormalizationLevel_Clean(t *testing.T) {
	users := tableOf("users", "user_id", "name", "email")
	level := CheckNormalizationLevel(users, []models.FunctionalDependency{fd("user_id", "name, email")})

	assert.True(t, level.IsBCNF)
	assert.True(t, level.Is3NF)
	assert.NotNil(t, level.BCNFViolations)
	assert.Empty(t, level.BCNFViolations)
	assert.Equal(t, [][]string{{"user_id"}}, level.CandidateKeys)
}
