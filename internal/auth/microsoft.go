// Package auth implements the OAuth 2.0 authorization code flow against the
// Microsoft identity platform.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/example/eventboard/internal/application"
)

const (
	defaultTenant          = "common"
	defaultGraphProfileURL = "https://graph.microsoft.com/v1.0/me"
	defaultGraphPhotoURL   = "https://graph.microsoft.com/v1.0/me/photos/48x48/$value"

	maxPhotoBytes = 64 << 10
)

var defaultScopes = []string{"openid", "email", "profile", "User.Read"}

// MicrosoftConfig configures the provider. The endpoint URLs default to the
// tenant's v2.0 endpoints and Microsoft Graph; tests point them elsewhere.
type MicrosoftConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Tenant       string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
	PhotoURL    string

	HTTPClient *http.Client
}

// MicrosoftProvider exchanges authorization codes for Microsoft account profiles.
type MicrosoftProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	photoURL    string
	client      *http.Client
}

// NewMicrosoftProvider returns a provider with endpoint defaults filled in.
func NewMicrosoftProvider(config MicrosoftConfig) *MicrosoftProvider {
	tenant := strings.TrimSpace(config.Tenant)
	if tenant == "" {
		tenant = defaultTenant
	}

	endpoint := microsoft.AzureADEndpoint(tenant)
	if config.AuthURL != "" {
		endpoint.AuthURL = config.AuthURL
	}
	if config.TokenURL != "" {
		endpoint.TokenURL = config.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	provider := &MicrosoftProvider{
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       defaultScopes,
		},
		userInfoURL: config.UserInfoURL,
		photoURL:    config.PhotoURL,
		client:      config.HTTPClient,
	}
	if provider.userInfoURL == "" {
		provider.userInfoURL = defaultGraphProfileURL
	}
	if provider.photoURL == "" {
		provider.photoURL = defaultGraphPhotoURL
	}
	if provider.client == nil {
		provider.client = &http.Client{Timeout: 10 * time.Second}
	}
	return provider
}

// AuthCodeURL returns the authorize endpoint URL carrying state.
func (p *MicrosoftProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "query"))
}

// graphProfile is the subset of the Graph /me resource the board uses.
type graphProfile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// Exchange trades code for an access token and loads the signed-in profile.
// A missing or unreadable photo leaves PhotoURL empty.
func (p *MicrosoftProvider) Exchange(ctx context.Context, code string) (application.Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return application.Identity{}, fmt.Errorf("failed to exchange token: %w", err)
	}
	client := p.oauth.Client(ctx, token)

	profile, err := p.fetchProfile(ctx, client)
	if err != nil {
		return application.Identity{}, fmt.Errorf("failed to fetch profile: %w", err)
	}

	email := profile.Mail
	if email == "" {
		email = profile.UserPrincipalName
	}
	return application.Identity{
		Subject:     profile.ID,
		Email:       email,
		DisplayName: profile.DisplayName,
		PhotoURL:    p.fetchPhoto(ctx, client),
	}, nil
}

func (p *MicrosoftProvider) fetchProfile(ctx context.Context, client *http.Client) (*graphProfile, error) {
	resp, err := p.get(ctx, client, p.userInfoURL, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var profile graphProfile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile response: %w", err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("empty id in profile response")
	}
	return &profile, nil
}

// fetchPhoto returns the account thumbnail as a data URL. Accounts without a
// photo answer 404.
func (p *MicrosoftProvider) fetchPhoto(ctx context.Context, client *http.Client) string {
	resp, err := p.get(ctx, client, p.photoURL, "image/*")
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil || len(data) == 0 || len(data) > maxPhotoBytes {
		return ""
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func (p *MicrosoftProvider) get(ctx context.Context, client *http.Client, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Host, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s returned status %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

var _ application.IdentityProvider = (*MicrosoftProvider)(nil)
