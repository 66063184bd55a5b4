package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

const ordersDSD = `{"name": "shop", "tables": [{
	"name": "orders",
	"columns": [
		{"name": "order_id", "sql_type": "INTEGER", "nullable": false},
		{"name": "customer_id", "sql_type": "INTEGER"},
		{"name": "customer_name", "sql_type": "VARCHAR(100)"}
	],
	"constraints": [{"name": "pk_orders", "type": "PRIMARY_KEY", "columns": ["order_id"]}]
}]}`

func decodeNormalizationError(t *testing.T, body []byte) NormalizationErrorResponse {
	t.Helper()
	var resp NormalizationErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.False(t, resp.Success)
	return resp
}

func TestNormalizationHandler_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		fds      string
		nt       string
		wantType models.NormalizationType
	}{
		{name: "string form defaults to BCNF", fds: `"order_id -> customer_id; customer_id -> customer_name"`, wantType: models.NormalizationBCNF},
		{name: "list form with 3NF", nt: "3nf", wantType: models.NormalizationThirdNF,
			fds: `[{"determinant": ["order_id"], "dependent": ["customer_id"]}, {"determinant": "customer_id", "dependent": "customer_name"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"dsd": ` + ordersDSD + `, "functional_dependencies": ` + tt.fds
			if tt.nt != "" {
				body += `, "normalization_type": "` + tt.nt + `"`
			}
			body += `}`

			rec := postJSON(t, newTestMux(t, DefaultMaxRequestBytes), "/api/normalize", body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var result models.NormalizationResult
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
			assert.True(t, result.Success)
			assert.Equal(t, tt.wantType, result.NormalizationType)
			assert.False(t, result.IsAlreadyNormalized)
			assert.Len(t, result.Original.Tables, 1)
			assert.Len(t, result.Normalized.Tables, 2)
			assert.NotEmpty(t, result.ViolationsFound)
		})
	}
}

func TestNormalizationHandler_Normalize_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "invalid json",
			body:       `not json`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid JSON in request body",
		},
		{
			name:       "missing dsd",
			body:       `{"functional_dependencies": "a -> b"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing required field: dsd",
		},
		{
			name:       "bad normalization type",
			body:       `{"dsd": ` + ordersDSD + `, "normalization_type": "4NF", "functional_dependencies": "order_id -> customer_id"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  `normalization_type must be "BCNF" or "3NF", got "4NF"`,
		},
		{
			name:       "no dependencies",
			body:       `{"dsd": ` + ordersDSD + `, "functional_dependencies": []}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "No valid functional dependencies provided",
		},
		{
			name:       "dependencies of the wrong shape",
			body:       `{"dsd": ` + ordersDSD + `, "functional_dependencies": 42}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Failed to parse functional dependencies: invalid functional dependency: functional_dependencies must be a string or list",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, newTestMux(t, DefaultMaxRequestBytes), "/api/normalize", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeNormalizationError(t, rec.Body.Bytes())
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

func TestNormalizationHandler_Normalize_UnknownAttributes(t *testing.T) {
	body := `{"dsd": ` + ordersDSD + `, "functional_dependencies": "order_id -> total; zip -> city"}`

	rec := postJSON(t, newTestMux(t, DefaultMaxRequestBytes), "/api/normalize", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeNormalizationError(t, rec.Body.Bytes())
	assert.Equal(t, "Unknown attributes in functional dependencies: city, total, zip", resp.Error)
	assert.Equal(t, []string{"city", "total", "zip"}, resp.InvalidAttributes)
	assert.Equal(t, []string{"customer_id", "customer_name", "order_id"}, resp.AvailableAttributes)
}

func TestNormalizationHandler_Check(t *testing.T) {
	body := `{"dsd": ` + ordersDSD + `, "functional_dependencies": "order_id -> customer_id, customer_name; customer_id -> customer_name"}`

	rec := postJSON(t, newTestMux(t, DefaultMaxRequestBytes), "/api/normalize/check", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CheckNormalizationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Contains(t, resp.Tables, "orders")

	level := resp.Tables["orders"]
	assert.False(t, level.IsBCNF)
	assert.False(t, level.Is3NF)
	assert.Equal(t, [][]string{{"order_id"}}, level.CandidateKeys)
	assert.NotEmpty(t, level.BCNFViolations)
}

func TestNormalizationHandler_Check_WithoutDependencies(t *testing.T) {
	rec := postJSON(t, newTestMux(t, DefaultMaxRequestBytes), "/api/normalize/check", `{"dsd": `+ordersDSD+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CheckNormalizationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Tables["orders"].IsBCNF)
}
