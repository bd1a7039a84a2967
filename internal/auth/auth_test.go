package auth

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/as00paf/kpoker/internal/config"
	"github.com/as00paf/kpoker/internal/db"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	database, err := db.New(config.DBConfig{
		Driver: "sqlite",
		Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	}, &User{})
	require.NoError(t, err)
	return NewService(database.DB, "test-secret")
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)

	user, err := svc.Register("alice", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.EqualValues(t, 1000, user.Bankroll)
	assert.NotEqual(t, "hunter2", user.PasswordHash)

	logged, err := svc.Login("alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	_, err = svc.Login("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login("nobody", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register("bob", "pw1")
	require.NoError(t, err)

	_, err = svc.Register("bob", "pw2")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestBankrollUpdates(t *testing.T) {
	svc := newTestService(t)

	user, err := svc.Register("carol", "pw")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateBankroll(user.ID, 250))
	bankroll, err := svc.GetBankroll(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1250, bankroll)

	require.NoError(t, svc.UpdateBankroll(user.ID, -300))
	bankroll, err = svc.GetBankroll(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 950, bankroll)

	// Losses never drive the stored balance negative.
	require.NoError(t, svc.UpdateBankroll(user.ID, -5000))
	bankroll, err = svc.GetBankroll(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, bankroll)
}

func TestBankrollUpdateUnknownUserIsNoOp(t *testing.T) {
	svc := newTestService(t)
	assert.NoError(t, svc.UpdateBankroll("bot-123", 500))
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(t)

	user, err := svc.Register("dave", "pw")
	require.NoError(t, err)

	token, err := svc.GenerateToken(user.ID)
	require.NoError(t, err)

	userID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)

	other := NewService(nil, "different-secret")
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}
