package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"trace-crm-sync/pkg/config"
	"trace-crm-sync/pkg/models"
	"trace-crm-sync/pkg/store"
	"trace-crm-sync/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slices"
)

// Account records live in the store under a reserved system scope so they
// share the persistence backend with workspace data.
const (
	accountScope      = "_system"
	accountCollection = "accounts"
)

var (
	// ErrInvalidCredentials is returned on unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned when registering an email that already has
	// an account.
	ErrEmailTaken = errors.New("email already registered")
)

// Session is the populated auth state delivered to session-change listeners.
// A nil *Session on the change stream means signed out.
type Session struct {
	UID     string             `json:"uid"`
	Email   string             `json:"email"`
	Name    string             `json:"name"`
	Profile models.UserProfile `json:"profile"`
}

// SessionFunc receives session-change notifications.
type SessionFunc func(*Session)

type sessionSub struct {
	callback SessionFunc
}

// Service is the identity provider boundary: credential and federated
// sign-in, sign-out, and a session-change stream. The current session is
// process-wide client state; server handlers authenticate per request via
// JWT and only use the account operations.
type Service struct {
	cfg   *config.Config
	store store.RealtimeStore
	jwt   *utils.JWTService

	mu      sync.Mutex
	current *Session
	subs    []*sessionSub
}

// NewService creates the auth service on top of the shared store.
func NewService(cfg *config.Config, st store.RealtimeStore) *Service {
	return &Service{
		cfg:   cfg,
		store: st,
		jwt:   utils.NewJWTService(cfg.JWTSecret),
	}
}

// JWT exposes the token service for handlers and middleware wiring.
func (s *Service) JWT() *utils.JWTService {
	return s.jwt
}

// Current returns the active session, or nil when signed out.
func (s *Service) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// OnChange registers a session-change listener. The callback fires once
// immediately with the current state and then on every sign-in/sign-out.
// The returned function detaches the listener.
func (s *Service) OnChange(callback SessionFunc) func() {
	sub := &sessionSub{callback: callback}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	current := s.current
	s.mu.Unlock()

	callback(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if i := slices.Index(s.subs, sub); 0 <= i {
			s.subs = slices.Delete(slices.Clone(s.subs), i, i+1)
		}
	}
}

func (s *Service) setSession(session *Session) {
	s.mu.Lock()
	s.current = session
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.callback(session)
	}
}

// Register creates a credential account, signs it in and returns the user
// with a token pair.
func (s *Service) Register(req models.UserRegisterRequest) (*models.UserLoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || len(req.Password) < 8 {
		return nil, fmt.Errorf("email and password (min 8 chars) required")
	}

	if existing, _ := s.findByEmail(email); existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:        uuid.New().String(),
		Email:     email,
		Password:  string(hash),
		Name:      strings.TrimSpace(req.Name),
		Provider:  "email",
		Tier:      string(models.TierFree),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.saveAccount(user); err != nil {
		return nil, err
	}

	fmt.Printf("✅ Registered new account %s (%s)\n", user.ID, user.Email)
	return s.signIn(user)
}

// Login verifies credentials and signs the user in.
func (s *Service) Login(req models.UserLoginRequest) (*models.UserLoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.findByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.signIn(user)
}

// Logout clears the current session and notifies listeners with nil, which
// downstream caches treat as an invalidation signal.
func (s *Service) Logout() {
	s.setSession(nil)
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *Service) Refresh(refreshToken string) (accessToken string, expiresIn int64, err error) {
	return s.jwt.RefreshAccessToken(refreshToken)
}

// GetUser loads an account by id.
func (s *Service) GetUser(uid string) (*models.User, error) {
	snap, err := s.store.Get(store.CollectionPath(accountScope, accountCollection))
	if err != nil {
		return nil, err
	}
	for _, entry := range snap {
		var user models.User
		if err := store.DecodeRecord(entry.Fields, &user); err != nil {
			continue
		}
		if user.ID == uid {
			return &user, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

// UpdateTier changes the account's plan tier and returns the updated user.
func (s *Service) UpdateTier(uid string, tier models.UserTier) (*models.User, error) {
	user, err := s.GetUser(uid)
	if err != nil {
		return nil, err
	}
	user.Tier = string(tier)
	user.UpdatedAt = time.Now()
	if err := s.saveAccount(user); err != nil {
		return nil, err
	}
	fmt.Printf("💳 Updated plan tier for %s -> %s\n", user.Email, tier)
	return user, nil
}

// signIn issues tokens, publishes the session and builds the response.
func (s *Service) signIn(user *models.User) (*models.UserLoginResponse, error) {
	access, refresh, expiresIn, err := s.jwt.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	profile := user.Profile()
	s.setSession(&Session{
		UID:     user.ID,
		Email:   user.Email,
		Name:    profile.Name,
		Profile: profile,
	})

	sanitized := *user
	sanitized.Password = ""
	return &models.UserLoginResponse{
		User:         sanitized,
		Profile:      profile,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    expiresIn,
	}, nil
}

// findByEmail scans the account collection. Account volume is tiny compared
// to workspace data so a scan is fine here.
func (s *Service) findByEmail(email string) (*models.User, error) {
	snap, err := s.store.Get(store.CollectionPath(accountScope, accountCollection))
	if err != nil {
		return nil, err
	}
	for _, entry := range snap {
		var user models.User
		if err := store.DecodeRecord(entry.Fields, &user); err != nil {
			continue
		}
		if strings.EqualFold(user.Email, email) {
			return &user, nil
		}
	}
	return nil, nil
}

// saveAccount upserts the account record keyed by the user id.
func (s *Service) saveAccount(user *models.User) error {
	fields, err := store.EncodeRecord(user)
	if err != nil {
		return err
	}
	return s.store.Update(store.RecordPath(accountScope, accountCollection, user.ID), fields)
}
