package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// CalendarScope grants read/write access to Google Calendar.
const CalendarScope = "https://www.googleapis.com/auth/calendar"

// storedToken is the on-disk token format. It bundles the refresh token with
// the OAuth client it was issued for, so a single blob is enough to mint
// access tokens.
type storedToken struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
}

// HasToken reports whether a token is available from either source.
func HasToken(tokenPath, tokenBase64 string) bool {
	if tokenBase64 != "" {
		return true
	}
	if tokenPath == "" {
		return false
	}
	_, err := os.Stat(tokenPath)
	return err == nil
}

// TokenSource builds an OAuth2 token source from a base64-encoded token blob
// or a token file. The base64 blob takes precedence when both are set.
func TokenSource(ctx context.Context, tokenPath, tokenBase64 string) (oauth2.TokenSource, error) {
	raw, err := readToken(tokenPath, tokenBase64)
	if err != nil {
		return nil, err
	}

	var st storedToken
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("failed to parse Google token: %w", err)
	}
	if st.RefreshToken == "" {
		return nil, fmt.Errorf("google token has no refresh token")
	}

	scopes := st.Scopes
	if len(scopes) == 0 {
		scopes = []string{CalendarScope}
	}

	conf := &oauth2.Config{
		ClientID:     st.ClientID,
		ClientSecret: st.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       scopes,
	}

	return conf.TokenSource(ctx, &oauth2.Token{
		AccessToken:  st.Token,
		TokenType:    "Bearer",
		RefreshToken: st.RefreshToken,
	}), nil
}

func readToken(tokenPath, tokenBase64 string) ([]byte, error) {
	if tokenBase64 != "" {
		raw, err := base64.StdEncoding.DecodeString(tokenBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 token: %w", err)
		}
		return raw, nil
	}

	if tokenPath == "" {
		return nil, fmt.Errorf("no Google OAuth token configured")
	}

	raw, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	return raw, nil
}
