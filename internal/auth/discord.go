package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/oauth2"
)

// Discord's public endpoints. DiscordConfig fields override them in tests.
const (
	DiscordAuthURL  = "https://discord.com/oauth2/authorize"
	DiscordTokenURL = "https://discord.com/api/oauth2/token"
	DiscordAPIURL   = "https://discord.com/api/v10"
	DiscordCDNURL   = "https://cdn.discordapp.com"

	defaultDiscordTimeout = 10 * time.Second

	// defaultAvatarCount is the number of stock avatars Discord serves under
	// /embed/avatars/{0..4}.png.
	defaultAvatarCount = 5
)

// DiscordConfig configures a DiscordProvider.
type DiscordConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Timeout bounds the whole exchange: token request plus profile fetch.
	Timeout time.Duration

	// Optional overrides, empty means Discord's production endpoints.
	AuthURL    string
	TokenURL   string
	APIBaseURL string
	CDNBaseURL string
	HTTPClient *http.Client
}

// discordUser is the part of GET /users/@me we read.
//
// API docs: https://discord.com/developers/docs/resources/user#user-object
type discordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	GlobalName    string `json:"global_name"` // null for some accounts; decodes to ""
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"` // avatar hash, null when the user has none
	Email         string `json:"email"`  // only with the "email" scope
}

// DiscordProvider runs the authorization-code flow against Discord.
//
// SCOPES:
//   - "identify": ID, username, avatar, discriminator
//   - "email": the account email
//
// prompt=consent is always sent so Discord shows the consent screen on
// every login instead of silently re-authorizing.
type DiscordProvider struct {
	config     *oauth2.Config
	apiBase    string
	cdnBase    string
	timeout    time.Duration
	httpClient *http.Client
}

var _ Provider = (*DiscordProvider)(nil)

// NewDiscordProvider returns a provider for cfg. It does not contact Discord.
func NewDiscordProvider(cfg DiscordConfig) *DiscordProvider {
	authURL := orDefault(cfg.AuthURL, DiscordAuthURL)
	tokenURL := orDefault(cfg.TokenURL, DiscordTokenURL)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDiscordTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &DiscordProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"identify", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase:    strings.TrimRight(orDefault(cfg.APIBaseURL, DiscordAPIURL), "/"),
		cdnBase:    strings.TrimRight(orDefault(cfg.CDNBaseURL, DiscordCDNURL), "/"),
		timeout:    timeout,
		httpClient: client,
	}
}

// Name implements Provider.
func (p *DiscordProvider) Name() string { return "discord" }

// AuthURL returns Discord's authorize URL carrying client_id, redirect_uri,
// response_type=code, the scopes, prompt=consent and state.
func (p *DiscordProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades code for an access token and fetches the user's profile.
//
// Steps:
//  1. POST the token endpoint with the client credentials
//  2. GET /users/@me with the bearer token
//  3. Normalize into a Profile
//
// Both calls share one deadline. The returned error never contains the
// access token; it is meant for server-side logs only.
func (p *DiscordProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging discord code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building discord profile request: %w", err)
	}

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling discord /users/@me: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: discord /users/@me returned status %d", resp.StatusCode)
	}

	var du discordUser
	if err := json.NewDecoder(resp.Body).Decode(&du); err != nil {
		return nil, fmt.Errorf("auth: decoding discord profile: %w", err)
	}
	if du.ID == "" {
		return nil, fmt.Errorf("auth: discord returned a profile without an id")
	}

	return &Profile{
		Provider:      p.Name(),
		ID:            du.ID,
		Username:      du.Username,
		DisplayName:   orDefault(du.GlobalName, du.Username),
		Discriminator: du.Discriminator,
		AvatarURL:     avatarURL(p.cdnBase, du.ID, du.Avatar, du.Discriminator),
		Email:         du.Email,
	}, nil
}

// AvatarURL returns the Discord CDN URL for a user's avatar.
//
// With an avatar hash it is /avatars/{id}/{hash}.png (.gif for animated
// "a_" hashes). Without one it is one of the stock avatars, picked by
// xxhash(discriminator) mod 5 so the same discriminator always maps to the
// same image.
func AvatarURL(userID, avatarHash, discriminator string) string {
	return avatarURL(DiscordCDNURL, userID, avatarHash, discriminator)
}

func avatarURL(cdn, userID, avatarHash, discriminator string) string {
	if avatarHash != "" {
		ext := "png"
		if strings.HasPrefix(avatarHash, "a_") {
			ext = "gif"
		}
		return fmt.Sprintf("%s/avatars/%s/%s.%s", cdn, userID, avatarHash, ext)
	}

	n := xxhash.Sum64String(discriminator) % defaultAvatarCount
	return fmt.Sprintf("%s/embed/avatars/%d.png", cdn, n)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
