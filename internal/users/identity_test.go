package users

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jimdaga/aether/internal/crypto"
	"github.com/jimdaga/aether/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_GetIdentity_RotatedKey(t *testing.T) {
	oldKey, err := crypto.NewTokenEncryptorFromSecret("old-session-secret")
	require.NoError(t, err)
	sealed, err := oldKey.Encrypt("access")
	require.NoError(t, err)

	newKey, err := crypto.NewTokenEncryptorFromSecret("new-session-secret")
	require.NoError(t, err)
	models.SetEncryptor(newKey)
	t.Cleanup(func() { models.SetEncryptor(nil) })

	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`FROM "auth_identities"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "provider", "access_token", "refresh_token"}).
			AddRow(1, 7, "google", sealed, ""))

	_, err = repo.GetIdentity(context.Background(), 7, "google")
	assert.ErrorIs(t, err, ErrIdentityUnreadable)
	assert.NotErrorIs(t, err, ErrIdentityNotFound)
}
