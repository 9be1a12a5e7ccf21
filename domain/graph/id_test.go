package graph

import (
	"testing"

	apperrors "github.com/ajacobm/code-graph-mcp-sub002/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		file    string
		id      string
		line    int
		suffix  []string
		want    string
		wantErr bool
	}{
		{
			name: "basic function id",
			kind: KindFunction, file: "pkg/util.go", id: "Parse", line: 42,
			want: "function:pkg/util.go:Parse:42",
		},
		{
			name: "windows path is normalized",
			kind: KindMethod, file: `pkg\util.go`, id: "Parse", line: 42,
			want: "method:pkg/util.go:Parse:42",
		},
		{
			name: "suffix is appended",
			kind: KindClass, file: "a.go", id: "Foo", line: 1, suffix: []string{"overload2"},
			want: "class:a.go:Foo:1:overload2",
		},
		{
			name: "empty file is rejected", kind: KindFunction, file: "", id: "Parse", line: 1,
			wantErr: true,
		},
		{
			name: "empty name is rejected", kind: KindFunction, file: "a.go", id: "", line: 1,
			wantErr: true,
		},
		{
			name: "delimiter in name is rejected", kind: KindFunction, file: "a.go", id: "Foo:Bar", line: 1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewID(tt.kind, tt.file, tt.id, tt.line, tt.suffix...)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.KindInvalidIdentifier, apperrors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewID_Deterministic(t *testing.T) {
	a, err := NewID(KindFunction, "pkg/a.go", "Do", 10)
	require.NoError(t, err)
	b, err := NewID(KindFunction, "pkg/a.go", "Do", 10)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
