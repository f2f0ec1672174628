package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_Folder(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Table, "Tables"},
		{Synonym, "Synonyms"},
		{StoredProcedure, "Stored Procedures"},
		{Function, "Functions"},
		{View, "Views"},
		{SourceFile, ""},
		{EtlPackage, ""},
		{KindUnknown, ""},
		{Kind(42), ""},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Folder())
			assert.Equal(t, tt.want != "", tt.kind.IsDatabase())
		})
	}
}

func TestUsableIn(t *testing.T) {
	kinds, ok := UsableIn(Table)
	require.True(t, ok)
	assert.Equal(t, []Kind{Synonym, StoredProcedure, Function, View}, kinds)

	kinds, ok = UsableIn(StoredProcedure)
	require.True(t, ok)
	assert.Equal(t, []Kind{StoredProcedure}, kinds)

	kinds, ok = UsableIn(Function)
	require.True(t, ok)
	assert.Equal(t, []Kind{StoredProcedure, Function}, kinds)

	for _, k := range []Kind{SourceFile, EtlPackage, KindUnknown} {
		_, ok := UsableIn(k)
		assert.False(t, ok, "%s should have no compatibility entry", k)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{input: "table", want: Table},
		{input: "Tbl", want: Table},
		{input: " SP ", want: StoredProcedure},
		{input: "procedure", want: StoredProcedure},
		{input: "fn", want: Function},
		{input: "V", want: View},
		{input: "syn", want: Synonym},
		{input: "cs", want: SourceFile},
		{input: "etl", want: EtlPackage},
		{input: "trigger", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKinds_SkipsBlanks(t *testing.T) {
	kinds, err := ParseKinds([]string{"table", "", "view"})
	require.NoError(t, err)
	assert.Equal(t, []Kind{Table, View}, kinds)

	_, err = ParseKinds([]string{"table", "bogus"})
	assert.Error(t, err)
}

func TestConfigurationError_Is(t *testing.T) {
	cause := errors.New("no such file or directory")
	err := &ConfigurationError{Field: "database root", Path: "/nope", Err: cause}

	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "/nope")
}
