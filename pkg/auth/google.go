package auth

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trace-crm-sync/pkg/models"

	"github.com/google/uuid"
)

// GoogleTokenResponse Google令牌响应
type GoogleTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// GoogleUser Google用户信息
type GoogleUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// LoginWithGoogle 使用Google授权码完成联合登录
// 换取访问令牌 -> 获取用户信息 -> 查找或创建账户 -> 签发会话
func (s *Service) LoginWithGoogle(code string) (*models.UserLoginResponse, error) {
	if code == "" {
		return nil, fmt.Errorf("missing Google authorization code")
	}

	fmt.Printf("🔄 Exchanging Google authorization code for access token...\n")
	accessToken, err := s.exchangeGoogleCode(code)
	if err != nil {
		fmt.Printf("❌ Failed to exchange Google code: %v\n", err)
		return nil, err
	}

	googleUser, err := s.getGoogleUserInfo(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.findOrCreateFederated(googleUser.Email, googleUser.Name, googleUser.Picture, "google")
	if err != nil {
		return nil, err
	}

	return s.signIn(user)
}

// exchangeGoogleCode 使用授权码换取访问令牌
func (s *Service) exchangeGoogleCode(code string) (string, error) {
	data := url.Values{}
	data.Set("client_id", s.cfg.GoogleClientID)
	data.Set("client_secret", s.cfg.GoogleClientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", s.cfg.OAuthRedirectURI)

	resp, err := http.PostForm("https://oauth2.googleapis.com/token", data)
	if err != nil {
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		fmt.Printf("❌ Google OAuth error response (%d): %s\n", resp.StatusCode, msg)
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "redirect_uri_mismatch") {
			fmt.Printf("💡 Hint: Check OAUTH_REDIRECT_URI and Google Console Authorized redirect URIs.\n")
		}
		if strings.Contains(lower, "invalid_client") {
			fmt.Printf("💡 Hint: Check GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET.\n")
		}
		return "", fmt.Errorf("Google token exchange failed: %s", msg)
	}

	var tokenResp GoogleTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	fmt.Printf("✅ Successfully obtained access token from Google\n")
	return tokenResp.AccessToken, nil
}

// getGoogleUserInfo 使用访问令牌获取用户信息
func (s *Service) getGoogleUserInfo(accessToken string) (*GoogleUser, error) {
	req, err := http.NewRequest("GET", "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Google user info request failed: %s", string(body))
	}

	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	return &user, nil
}

// findOrCreateFederated 查找或创建联合登录用户
func (s *Service) findOrCreateFederated(email, name, avatar, provider string) (*models.User, error) {
	existing, err := s.findByEmail(email)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		// 用户已存在，更新OAuth信息
		existing.Name = name
		existing.Avatar = avatar
		existing.Provider = provider
		existing.UpdatedAt = time.Now()
		if err := s.saveAccount(existing); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		fmt.Printf("👤 Found existing user %s, updated OAuth info (provider: %s)\n", existing.Email, provider)
		return existing, nil
	}

	newUser := &models.User{
		ID:        uuid.New().String(),
		Email:     strings.ToLower(email),
		Name:      name,
		Avatar:    avatar,
		Provider:  provider,
		Tier:      string(models.TierFree),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.saveAccount(newUser); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("👤 Created new OAuth user %s (provider: %s)\n", newUser.Email, provider)
	return newUser, nil
}
