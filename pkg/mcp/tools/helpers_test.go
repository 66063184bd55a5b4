package tools

import (
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

func requestWith(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestTrimString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"whitespace only", "   ", ""},
		{"both sides whitespace", "  test  ", "test"},
		{"mixed whitespace", " \t\ntest\n\t ", "test"},
		{"no whitespace", "test", "test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, trimString(tt.input))
		})
	}
}

func TestDocumentArgument(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		want    string
		wantErr bool
	}{
		{
			name: "object",
			args: map[string]any{"erd": map[string]any{"name": "shop"}},
			want: `{"name":"shop"}`,
		},
		{
			name: "json string",
			args: map[string]any{"erd": `{"name": "shop"}`},
			want: `{"name":"shop"}`,
		},
		{
			name: "yaml string",
			args: map[string]any{"erd": "name: shop\n"},
			want: `{"name":"shop"}`,
		},
		{name: "missing", args: map[string]any{}, wantErr: true},
		{name: "null", args: map[string]any{"erd": nil}, wantErr: true},
		{name: "blank string", args: map[string]any{"erd": "  "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := documentArgument(requestWith(tt.args), "erd")
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestDialectArgument(t *testing.T) {
	dialect, err := dialectArgument(requestWith(map[string]any{}))
	require.NoError(t, err)
	assert.Empty(t, dialect)

	dialect, err = dialectArgument(requestWith(map[string]any{"dialect": " postgres "}))
	require.NoError(t, err)
	assert.Equal(t, models.DialectPostgres, dialect)

	_, err = dialectArgument(requestWith(map[string]any{"dialect": "oracle"}))
	assert.Error(t, err)
}

func TestFDArgument(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		fds, err := fdArgument(requestWith(map[string]any{}))
		require.NoError(t, err)
		assert.Empty(t, fds)
	})

	t.Run("text", func(t *testing.T) {
		fds, err := fdArgument(requestWith(map[string]any{
			"functional_dependencies": "order_id -> customer_id; customer_id -> customer_name",
		}))
		require.NoError(t, err)
		assert.Len(t, fds, 2)
	})

	t.Run("list", func(t *testing.T) {
		fds, err := fdArgument(requestWith(map[string]any{
			"functional_dependencies": []any{
				map[string]any{"determinant": []any{"order_id"}, "dependent": []any{"customer_id"}},
			},
		}))
		require.NoError(t, err)
		require.Len(t, fds, 1)
	})
}

func TestJSONResult(t *testing.T) {
	result, err := jsonResult(map[string]int{"tables": 2})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.JSONEq(t, `{"tables":2}`, text.Text)
}
