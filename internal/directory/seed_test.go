package directory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/skillswap-ratings/internal/repository/memory"
)

func TestSeedFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.json")
	require.NoError(t, os.WriteFile(path, []byte(fixtureJSON), 0o600))

	f, err := LoadFixtures(path)
	require.NoError(t, err)

	repo := memory.New()
	ctx := context.Background()
	require.NoError(t, Seed(ctx, repo, f))

	teacher, err := repo.GetUser(ctx, "u-teacher")
	require.NoError(t, err)
	assert.Equal(t, "teacher", teacher.Role)

	ok, err := repo.HasCompletedSession(ctx, "u-learner", "u-teacher", "l-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoadFixtures_MissingFile(t *testing.T) {
	_, err := LoadFixtures(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorContains(t, err, "read fixtures")
}
