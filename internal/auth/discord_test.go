package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fakeDiscord is an httptest server standing in for Discord's token and
// /users/@me endpoints. It counts every request it receives.
type fakeDiscord struct {
	srv   *httptest.Server
	calls atomic.Int32

	tokenStatus   int
	profileStatus int
	profile       map[string]any
	delay         time.Duration
}

func newFakeDiscord(t *testing.T) *fakeDiscord {
	t.Helper()
	fd := &fakeDiscord{
		tokenStatus:   http.StatusOK,
		profileStatus: http.StatusOK,
		profile:       map[string]any{"id": "42", "username": "nova", "discriminator": "0"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		fd.calls.Add(1)
		if fd.delay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(fd.delay):
			}
		}
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "abc" || r.Form.Get("client_id") != "client-1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		if fd.tokenStatus != http.StatusOK {
			w.WriteHeader(fd.tokenStatus)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok1","token_type":"Bearer","expires_in":604800}`))
	})
	mux.HandleFunc("/api/users/@me", func(w http.ResponseWriter, r *http.Request) {
		fd.calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if fd.profileStatus != http.StatusOK {
			w.WriteHeader(fd.profileStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(fd.profile)
	})

	fd.srv = httptest.NewServer(mux)
	t.Cleanup(fd.srv.Close)
	return fd
}

func (fd *fakeDiscord) provider(timeout time.Duration) *DiscordProvider {
	return NewDiscordProvider(DiscordConfig{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURL:  "http://localhost:3000/auth/discord/callback",
		Timeout:      timeout,
		AuthURL:      fd.srv.URL + "/oauth2/authorize",
		TokenURL:     fd.srv.URL + "/oauth2/token",
		APIBaseURL:   fd.srv.URL + "/api",
		CDNBaseURL:   "https://cdn.example",
	})
}

func TestDiscordAuthURL(t *testing.T) {
	p := NewDiscordProvider(DiscordConfig{
		ClientID:    "client-1",
		RedirectURL: "http://localhost:3000/auth/discord/callback",
	})

	u, err := url.Parse(p.AuthURL("state-xyz"))
	if err != nil {
		t.Fatalf("AuthURL() is not a URL: %v", err)
	}

	if got := u.Scheme + "://" + u.Host + u.Path; got != DiscordAuthURL {
		t.Errorf("endpoint = %q, want %q", got, DiscordAuthURL)
	}
	want := map[string]string{
		"client_id":     "client-1",
		"redirect_uri":  "http://localhost:3000/auth/discord/callback",
		"response_type": "code",
		"scope":         "identify email",
		"prompt":        "consent",
		"state":         "state-xyz",
	}
	q := u.Query()
	for k, v := range want {
		if q.Get(k) != v {
			t.Errorf("query %s = %q, want %q", k, q.Get(k), v)
		}
	}
}

func TestDiscordExchange_Success(t *testing.T) {
	fd := newFakeDiscord(t)
	fd.profile = map[string]any{
		"id":            "42",
		"username":      "nova",
		"global_name":   "Nova",
		"discriminator": "0",
		"avatar":        "abc123",
		"email":         "nova@example.com",
	}

	profile, err := fd.provider(time.Second).Exchange(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}

	if profile.ID != "42" || profile.Username != "nova" || profile.DisplayName != "Nova" {
		t.Errorf("profile = %+v", profile)
	}
	if profile.Email != "nova@example.com" {
		t.Errorf("Email = %q", profile.Email)
	}
	if profile.AvatarURL != "https://cdn.example/avatars/42/abc123.png" {
		t.Errorf("AvatarURL = %q", profile.AvatarURL)
	}
	if profile.Provider != "discord" {
		t.Errorf("Provider = %q", profile.Provider)
	}
	if n := fd.calls.Load(); n != 2 {
		t.Errorf("outbound calls = %d, want 2", n)
	}
}

func TestDiscordExchange_DisplayNameFallsBackToUsername(t *testing.T) {
	fd := newFakeDiscord(t)

	profile, err := fd.provider(time.Second).Exchange(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if profile.DisplayName != "nova" {
		t.Errorf("DisplayName = %q, want %q", profile.DisplayName, "nova")
	}
	if !strings.HasPrefix(profile.AvatarURL, "https://cdn.example/embed/avatars/") {
		t.Errorf("AvatarURL = %q, want a default avatar", profile.AvatarURL)
	}
}

func TestDiscordExchange_MissingCodeMakesNoCalls(t *testing.T) {
	fd := newFakeDiscord(t)

	_, err := fd.provider(time.Second).Exchange(context.Background(), "")
	if !errors.Is(err, ErrMissingCode) {
		t.Fatalf("Exchange() error = %v, want ErrMissingCode", err)
	}
	if n := fd.calls.Load(); n != 0 {
		t.Errorf("outbound calls = %d, want 0", n)
	}
}

func TestDiscordExchange_Failures(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		setup func(fd *fakeDiscord)
	}{
		{"provider rejects code", "wrong", func(*fakeDiscord) {}},
		{"token endpoint error", "abc", func(fd *fakeDiscord) { fd.tokenStatus = http.StatusInternalServerError }},
		{"profile endpoint error", "abc", func(fd *fakeDiscord) { fd.profileStatus = http.StatusBadGateway }},
		{"profile without id", "abc", func(fd *fakeDiscord) { fd.profile = map[string]any{"username": "ghost"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fd := newFakeDiscord(t)
			tt.setup(fd)

			profile, err := fd.provider(time.Second).Exchange(context.Background(), tt.code)
			if err == nil {
				t.Fatalf("Exchange() = %+v, want error", profile)
			}
			if strings.Contains(err.Error(), "tok1") {
				t.Errorf("error %q leaks the access token", err)
			}
		})
	}
}

func TestDiscordExchange_Timeout(t *testing.T) {
	fd := newFakeDiscord(t)
	fd.delay = 2 * time.Second

	start := time.Now()
	_, err := fd.provider(50*time.Millisecond).Exchange(context.Background(), "abc")
	if err == nil {
		t.Fatal("Exchange() should fail when the provider is slower than the timeout")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Exchange() took %v, timeout was not applied", elapsed)
	}
}

func TestAvatarURL(t *testing.T) {
	tests := []struct {
		name          string
		userID        string
		hash          string
		discriminator string
		want          string
	}{
		{"static avatar", "42", "abc", "0", "https://cdn.discordapp.com/avatars/42/abc.png"},
		{"animated avatar", "42", "a_abc", "0", "https://cdn.discordapp.com/avatars/42/a_abc.gif"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AvatarURL(tt.userID, tt.hash, tt.discriminator); got != tt.want {
				t.Errorf("AvatarURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAvatarURL_DefaultIsDeterministic(t *testing.T) {
	first := AvatarURL("42", "", "1234")
	second := AvatarURL("99", "", "1234")

	if first != second {
		t.Errorf("same discriminator gave %q and %q", first, second)
	}

	valid := map[string]bool{}
	for i := 0; i < defaultAvatarCount; i++ {
		valid["https://cdn.discordapp.com/embed/avatars/"+string(rune('0'+i))+".png"] = true
	}
	if !valid[first] {
		t.Errorf("default avatar %q is not one of the stock avatars", first)
	}
}
