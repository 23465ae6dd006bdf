package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureTimezoneUTC(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "adds timezone",
			in:   "postgres://u:p@localhost:5432/aether?sslmode=disable",
			want: "postgres://u:p@localhost:5432/aether?TimeZone=UTC&sslmode=disable",
		},
		{
			name: "keeps explicit timezone",
			in:   "postgres://u:p@localhost:5432/aether?TimeZone=Europe%2FBerlin",
			want: "postgres://u:p@localhost:5432/aether?TimeZone=Europe%2FBerlin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ensureTimezoneUTC(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInit_RequiresURL(t *testing.T) {
	_, err := Init("", DefaultPoolOptions())
	assert.ErrorContains(t, err, "database URL is required")
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, entries, 8, "four up/down pairs")
}

func TestClose_NilIsNoop(t *testing.T) {
	assert.NoError(t, Close(nil))
}
