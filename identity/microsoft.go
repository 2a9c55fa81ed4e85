// Package identity signs students in through the campus Microsoft tenant.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/ironspideychinu/TuckHub/apperr"
)

const GraphProfileURL = "https://graph.microsoft.com/v1.0/me"

// Profile is the part of a Microsoft Graph user the service keeps.
type Profile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// Email prefers the mailbox address; accounts without a mailbox only carry
// their principal name.
func (p Profile) Email() string {
	if p.Mail != "" {
		return p.Mail
	}
	return p.UserPrincipalName
}

// Microsoft runs the authorization code flow against Entra ID and reads the
// signed-in user from Graph. An empty AllowedDomains admits every domain.
type Microsoft struct {
	Config         *oauth2.Config
	ProfileURL     string
	AllowedDomains []string
}

func NewMicrosoft(clientID, clientSecret, tenantID, redirectURL string, allowedDomains []string) *Microsoft {
	return &Microsoft{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     microsoft.AzureADEndpoint(tenantID),
			RedirectURL:  redirectURL,
			Scopes:       []string{"User.Read"},
		},
		ProfileURL:     GraphProfileURL,
		AllowedDomains: allowedDomains,
	}
}

// AuthCodeURL is where the browser is sent to sign in.
func (m *Microsoft) AuthCodeURL(state string) string {
	return m.Config.AuthCodeURL(state)
}

// Authenticate trades an authorization code for the user's Graph profile.
func (m *Microsoft) Authenticate(ctx context.Context, code string) (Profile, error) {
	token, err := m.Config.Exchange(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: OAuth token exchange failed", apperr.ErrUnauthorized)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.ProfileURL, nil)
	if err != nil {
		return Profile{}, err
	}
	resp, err := m.Config.Client(ctx, token).Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: fetch profile: %v", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("%w: failed to fetch profile (status %d)", apperr.ErrUnauthorized, resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Profile{}, fmt.Errorf("%w: decode profile: %v", apperr.ErrUpstream, err)
	}
	if profile.ID == "" || !m.domainAllowed(profile.Email()) {
		return Profile{}, fmt.Errorf("%w: unauthorized email domain", apperr.ErrUnauthorized)
	}
	return profile, nil
}

func (m *Microsoft) domainAllowed(email string) bool {
	if email == "" {
		return false
	}
	if len(m.AllowedDomains) == 0 {
		return true
	}
	email = strings.ToLower(email)
	for _, domain := range m.AllowedDomains {
		if strings.HasSuffix(email, "@"+strings.ToLower(domain)) {
			return true
		}
	}
	return false
}
