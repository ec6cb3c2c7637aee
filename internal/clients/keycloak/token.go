package keycloak

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openexcavate/fieldbook-backend/internal/pkg/apierr"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/envutil"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
)

type Config struct {
	BaseURL         string
	Realm           string
	ClientID        string
	RefreshInterval time.Duration
	Timeout         time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:         envutil.String("KEYCLOAK_BASE_URL", ""),
		Realm:           envutil.String("KEYCLOAK_REALM", "fieldbook"),
		ClientID:        envutil.String("KEYCLOAK_CLIENT_ID", "fieldbook-app"),
		RefreshInterval: envutil.DurationSeconds("KEYCLOAK_REFRESH_SECONDS", 60*time.Second),
		Timeout:         envutil.DurationSeconds("KEYCLOAK_TIMEOUT_SECONDS", 15*time.Second),
	}
}

// TokenManager holds the session's bearer token pair and refreshes the
// access token on a periodic timer. There is no retry-on-401 anywhere:
// when the timer falls behind and the token goes stale, data API requests
// fail until the next tick.
type TokenManager struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

func New(log *logger.Logger, cfg Config) (*TokenManager, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 60 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &TokenManager{
		log:        log.With("service", "KeycloakTokenManager"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// SetTokens installs the pair obtained by the identity provider's login flow.
func (m *TokenManager) SetTokens(access, refresh string) {
	m.mu.Lock()
	m.accessToken = access
	m.refreshToken = refresh
	m.mu.Unlock()
}

// Token implements the transport's TokenSource.
func (m *TokenManager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken
}

// Start runs the refresh timer until ctx is done.
func (m *TokenManager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.cfg.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Refresh(ctx); err != nil {
					m.log.Warn("token refresh failed", "error", err)
				}
			}
		}
	}()
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Refresh exchanges the stored refresh token for a new pair.
func (m *TokenManager) Refresh(ctx context.Context) error {
	m.mu.RLock()
	refresh := m.refreshToken
	m.mu.RUnlock()
	if refresh == "" {
		return fmt.Errorf("no refresh token")
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {m.cfg.ClientID},
		"refresh_token": {refresh},
	}
	endpoint := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", m.cfg.BaseURL, m.cfg.Realm)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apierr.New(resp.StatusCode, "token_refresh",
			fmt.Errorf("keycloak token endpoint %d: %s", resp.StatusCode, string(raw)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	m.mu.Lock()
	m.accessToken = tr.AccessToken
	if tr.RefreshToken != "" {
		m.refreshToken = tr.RefreshToken
	}
	m.mu.Unlock()
	m.log.Debug("access token refreshed", "expires_in", tr.ExpiresIn)
	return nil
}

// Roles reads resource_access.<clientID>.roles out of the current access
// token without verifying the signature. This gates display only; the data
// API enforces authorization on its own.
func (m *TokenManager) Roles() []string {
	return RolesFromToken(m.Token(), m.cfg.ClientID)
}

// Role returns the first role claim, the one driving view visibility.
func (m *TokenManager) Role() string {
	roles := m.Roles()
	if len(roles) == 0 {
		return ""
	}
	return roles[0]
}

// Identity reads the subject and display name claims, unverified, for the
// session's actor slice.
func Identity(token string) (subject, username string) {
	if strings.TrimSpace(token) == "" {
		return "", ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", ""
	}
	subject, _ = claims["sub"].(string)
	username, _ = claims["preferred_username"].(string)
	if username == "" {
		username, _ = claims["name"].(string)
	}
	return subject, username
}

func RolesFromToken(token, clientID string) []string {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}
	resourceAccess, ok := claims["resource_access"].(map[string]any)
	if !ok {
		return nil
	}
	clientClaim, ok := resourceAccess[clientID].(map[string]any)
	if !ok {
		return nil
	}
	rawRoles, ok := clientClaim["roles"].([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(rawRoles))
	for _, r := range rawRoles {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}
