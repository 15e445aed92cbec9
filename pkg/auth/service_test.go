package auth

import (
	"testing"

	"trace-crm-sync/pkg/config"
	"trace-crm-sync/pkg/models"
	"trace-crm-sync/pkg/store"

	"github.com/go-playground/assert/v2"
)

func newTestAuth() *Service {
	cfg := &config.Config{
		Environment: "development",
		JWTSecret:   "test-secret",
	}
	return NewService(cfg, store.NewMemoryStore())
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestAuth()

	resp, err := s.Register(models.UserRegisterRequest{
		Email:    "Dana@Example.com",
		Password: "correct horse",
		Name:     "Dana Scully",
	})
	assert.Equal(t, err, nil)
	assert.Equal(t, resp.User.Email, "dana@example.com")
	assert.Equal(t, resp.User.Password, "")
	assert.Equal(t, resp.Profile.Name, "Dana Scully")
	assert.Equal(t, resp.Profile.Avatar, "DS")
	assert.Equal(t, resp.Profile.Plan, "Starter")
	assert.NotEqual(t, resp.AccessToken, "")
	assert.NotEqual(t, resp.RefreshToken, "")

	// Email lookup is case insensitive.
	login, err := s.Login(models.UserLoginRequest{Email: "dana@example.com", Password: "correct horse"})
	assert.Equal(t, err, nil)
	assert.Equal(t, login.User.ID, resp.User.ID)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	s := newTestAuth()

	_, err := s.Register(models.UserRegisterRequest{Email: "a@b.test", Password: "long enough"})
	assert.Equal(t, err, nil)

	_, err = s.Register(models.UserRegisterRequest{Email: "A@B.test", Password: "also long enough"})
	assert.Equal(t, err, ErrEmailTaken)
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	s := newTestAuth()

	_, err := s.Register(models.UserRegisterRequest{Email: "", Password: "long enough"})
	assert.NotEqual(t, err, nil)

	_, err = s.Register(models.UserRegisterRequest{Email: "a@b.test", Password: "short"})
	assert.NotEqual(t, err, nil)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestAuth()
	s.Register(models.UserRegisterRequest{Email: "a@b.test", Password: "long enough"})

	_, err := s.Login(models.UserLoginRequest{Email: "a@b.test", Password: "wrong password"})
	assert.Equal(t, err, ErrInvalidCredentials)

	_, err = s.Login(models.UserLoginRequest{Email: "nobody@b.test", Password: "long enough"})
	assert.Equal(t, err, ErrInvalidCredentials)
}

func TestSessionChangeStream(t *testing.T) {
	s := newTestAuth()

	var events []*Session
	unsub := s.OnChange(func(session *Session) {
		events = append(events, session)
	})
	defer unsub()

	// Registration fires immediately with the signed-out state.
	assert.Equal(t, len(events), 1)
	assert.Equal(t, events[0], nil)

	resp, _ := s.Register(models.UserRegisterRequest{Email: "a@b.test", Password: "long enough"})
	assert.Equal(t, len(events), 2)
	assert.Equal(t, events[1].UID, resp.User.ID)
	assert.Equal(t, s.Current().Email, "a@b.test")

	s.Logout()
	assert.Equal(t, len(events), 3)
	assert.Equal(t, events[2], nil)
	assert.Equal(t, s.Current(), nil)

	unsub()
	s.Login(models.UserLoginRequest{Email: "a@b.test", Password: "long enough"})
	assert.Equal(t, len(events), 3)
}

func TestTokenRoundTrip(t *testing.T) {
	s := newTestAuth()
	resp, _ := s.Register(models.UserRegisterRequest{Email: "a@b.test", Password: "long enough"})

	claims, err := s.JWT().ValidateToken(resp.AccessToken)
	assert.Equal(t, err, nil)
	assert.Equal(t, claims.UserID, resp.User.ID)
	assert.Equal(t, claims.Type, "access")

	// The refresh token mints a fresh access token.
	accessToken, expiresIn, err := s.Refresh(resp.RefreshToken)
	assert.Equal(t, err, nil)
	assert.NotEqual(t, accessToken, "")
	assert.NotEqual(t, expiresIn, int64(0))

	// An access token is not accepted as a refresh token.
	_, _, err = s.Refresh(resp.AccessToken)
	assert.NotEqual(t, err, nil)
}

func TestUpdateTier(t *testing.T) {
	s := newTestAuth()
	resp, _ := s.Register(models.UserRegisterRequest{Email: "a@b.test", Password: "long enough", Name: "Ada"})

	user, err := s.UpdateTier(resp.User.ID, models.TierPro)
	assert.Equal(t, err, nil)
	assert.Equal(t, user.Tier, "pro")
	assert.Equal(t, user.Profile().Plan, "Pro Workspace")

	got, err := s.GetUser(resp.User.ID)
	assert.Equal(t, err, nil)
	assert.Equal(t, got.Tier, "pro")
}
