package services

import (
	"testing"
	"time"

	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/repository"
	"github.com/astrasemi/assistant/internal/session"
	"github.com/astrasemi/assistant/internal/testutil"
	"github.com/astrasemi/assistant/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuthService(db *gorm.DB) (*AuthService, *session.Codec) {
	codec := session.NewCodec("test-secret", time.Hour)
	return NewAuthService(repository.NewUserRepository(db), repository.NewSessionRepository(db), codec), codec
}

func TestAuthService_Login(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateUser(t, db, "operator", models.UserRoleAdmin)
	service, codec := newAuthService(db)

	result, err := service.Login("  Operator ", "password")
	require.NoError(t, err)
	assert.Equal(t, "operator", result.User.Username)

	payload, err := codec.Decode(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "operator", payload.Username)
	assert.Equal(t, "admin", payload.Role)
	assert.True(t, payload.IsAdmin())
	assert.NotEmpty(t, payload.SessionID)

	user, err := service.Authenticate(payload)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, user.ID)
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateUser(t, db, "active", models.UserRoleUser)
	inactive := testutil.CreateUser(t, db, "inactive", models.UserRoleUser)
	testutil.Deactivate(t, db, inactive)
	service, _ := newAuthService(db)

	_, wrongPassword := service.Login("active", "nope")
	_, deactivated := service.Login("inactive", "password")
	_, unknown := service.Login("ghost", "password")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, deactivated, ErrInvalidCredentials)
	assert.ErrorIs(t, unknown, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), deactivated.Error())

	_, err := service.Login("", "password")
	assert.ErrorIs(t, err, ErrCredentialsRequired)
}

func TestAuthService_LogoutRevokesSessions(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateUser(t, db, "operator", models.UserRoleUser)
	service, codec := newAuthService(db)

	first, err := service.Login("operator", "password")
	require.NoError(t, err)
	second, err := service.Login("operator", "password")
	require.NoError(t, err)

	firstPayload, err := codec.Decode(first.Token)
	require.NoError(t, err)
	secondPayload, err := codec.Decode(second.Token)
	require.NoError(t, err)

	require.NoError(t, service.Logout(firstPayload))

	_, err = service.Authenticate(firstPayload)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	_, err = service.Authenticate(secondPayload)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestAuthService_AuthenticateExpiredSession(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateUser(t, db, "operator", models.UserRoleUser)
	service, codec := newAuthService(db)

	result, err := service.Login("operator", "password")
	require.NoError(t, err)
	payload, err := codec.Decode(result.Token)
	require.NoError(t, err)

	service.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = service.Authenticate(payload)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	removed, err := service.PurgeExpiredSessions()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestAuthService_AuthenticateRejectsForgedSession(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateUser(t, db, "operator", models.UserRoleUser)
	testutil.CreateUser(t, db, "intruder", models.UserRoleUser)
	service, codec := newAuthService(db)

	result, err := service.Login("operator", "password")
	require.NoError(t, err)
	payload, err := codec.Decode(result.Token)
	require.NoError(t, err)

	_, err = service.Authenticate(&session.Payload{Username: "intruder", Role: "user", SessionID: payload.SessionID})
	assert.ErrorIs(t, err, ErrSessionInvalid)

	_, err = service.Authenticate(&session.Payload{Username: "operator", Role: "user"})
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestUserService_CreateUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	service := NewUserService(db)

	user, err := service.CreateUser(CreateUserInput{Username: " NewHire ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "newhire", user.Username)
	assert.Equal(t, models.UserRoleUser, user.Role)
	assert.True(t, user.IsActive)

	_, err = service.CreateUser(CreateUserInput{Username: "newhire", Password: "other"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = service.CreateUser(CreateUserInput{Username: "x", Password: ""})
	assert.ErrorIs(t, err, ErrCredentialsRequired)

	_, err = service.CreateUser(CreateUserInput{Username: "x", Password: "y", Role: "root"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	admin, err := service.CreateUser(CreateUserInput{Username: "boss", Password: "y", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, admin.Role)

	users, total, err := service.ListUsers(utils.PaginationParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, users, 2)
}

func TestUserService_DeactivateRevokesSessions(t *testing.T) {
	db := testutil.NewTestDB(t)
	admin := testutil.CreateUser(t, db, "admin", models.UserRoleAdmin)
	target := testutil.CreateUser(t, db, "operator", models.UserRoleUser)
	auth, codec := newAuthService(db)
	users := NewUserService(db)

	result, err := auth.Login("operator", "password")
	require.NoError(t, err)
	payload, err := codec.Decode(result.Token)
	require.NoError(t, err)

	inactive := false
	updated, err := users.UpdateUser(admin.ID, target.ID, UpdateUserInput{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = auth.Authenticate(payload)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	var count int64
	require.NoError(t, db.Model(&models.UserSession{}).Where("user_id = ?", target.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUserService_UpdateUserGuards(t *testing.T) {
	db := testutil.NewTestDB(t)
	admin := testutil.CreateUser(t, db, "admin", models.UserRoleAdmin)
	service := NewUserService(db)

	inactive := false
	_, err := service.UpdateUser(admin.ID, admin.ID, UpdateUserInput{IsActive: &inactive})
	assert.ErrorIs(t, err, ErrCannotModifySelf)

	demote := "USER"
	_, err = service.UpdateUser(admin.ID, admin.ID, UpdateUserInput{Role: &demote})
	assert.ErrorIs(t, err, ErrCannotModifySelf)

	_, err = service.UpdateUser(admin.ID, admin.ID, UpdateUserInput{})
	assert.ErrorIs(t, err, ErrNoFieldsToUpdate)

	_, err = service.UpdateUser(admin.ID, 9999, UpdateUserInput{Role: &demote})
	assert.ErrorIs(t, err, ErrUserNotFound)
}
