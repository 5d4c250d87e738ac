package token_test

import (
	"testing"
	"time"

	"saazebharat/internal/model"
	"saazebharat/internal/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	svc := token.NewService("test-secret", time.Hour)
	adminID := uuid.New()

	signed, err := svc.Issue(adminID, model.RoleSuperAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	gotID, gotRole, err := svc.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, adminID, gotID)
	assert.Equal(t, model.RoleSuperAdmin, gotRole)
}

func TestVerify_WrongSecret(t *testing.T) {
	signed, err := token.NewService("secret-a", time.Hour).Issue(uuid.New(), model.RoleAdmin)
	require.NoError(t, err)

	_, _, err = token.NewService("secret-b", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	svc := token.NewService("test-secret", -time.Minute)
	signed, err := svc.Issue(uuid.New(), model.RoleAdmin)
	require.NoError(t, err)

	_, _, err = svc.Verify(signed)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	_, _, err := token.NewService("test-secret", time.Hour).Verify("not-a-token")
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}
