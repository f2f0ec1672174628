package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dbrefs/pkg/core"
)

func TestSearch_Validate(t *testing.T) {
	tests := []struct {
		name    string
		search  Search
		wantErr bool
	}{
		{
			name:    "no databases",
			search:  Search{},
			wantErr: true,
		},
		{
			name:    "empty root",
			search:  Search{Databases: map[string]string{"Sales": " "}},
			wantErr: true,
		},
		{
			name:    "negative workers",
			search:  Search{Databases: map[string]string{"Sales": "db"}, Tuning: Tuning{Workers: -1}},
			wantErr: true,
		},
		{
			name:   "valid",
			search: Search{Databases: map[string]string{"Sales": "db"}, ETLPath: "etl"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.search.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, core.ErrConfiguration))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	s := &Search{Extensions: Extensions{Source: []string{"CS", " .vb ", ""}}}
	ApplyDefaults(s)

	assert.Equal(t, []string{".dtsx"}, s.Extensions.ETL)
	assert.Equal(t, []string{".sln"}, s.Extensions.Solution)
	assert.Equal(t, []string{".cs", ".vb"}, s.Extensions.Source)

	assert.True(t, HasExtension("Model.EDMX", []string{".edmx"}))
	assert.False(t, HasExtension("Model.edmx.bak", []string{".edmx"}))
}

func TestDatabaseNames_Sorted(t *testing.T) {
	s := Search{Databases: map[string]string{"Sales": "a", "Archive": "b", "Hr": "c"}}
	assert.Equal(t, []string{"Archive", "Hr", "Sales"}, s.DatabaseNames())
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("databases: {}\n"), 0o644))

	assert.Equal(t, root, FindProjectRoot(nested, 5))
	assert.Equal(t, "", FindProjectRoot(nested, 1))
	assert.Equal(t, filepath.Join(root, ConfigFileName), FindConfigFile(root))
}
