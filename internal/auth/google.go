package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/sakif/event-board/internal/model"
)

// GoogleDiscoveryURL is Google's OpenID Connect discovery document.
const GoogleDiscoveryURL = "https://accounts.google.com/.well-known/openid-configuration"

// Verifier resolves a bearer credential to a profile.
type Verifier interface {
	Verify(ctx context.Context, accessToken string) (*model.Identity, error)
}

// GoogleVerifier checks access tokens against the provider's userinfo
// endpoint. The endpoint is looked up once from the discovery document and
// cached; a failed lookup is retried on the next call.
type GoogleVerifier struct {
	discoveryURL string
	httpClient   *http.Client

	mu               sync.Mutex
	userinfoEndpoint string
}

var _ Verifier = (*GoogleVerifier)(nil)

// NewGoogleVerifier returns a verifier using discoveryURL. A nil httpClient
// means http.DefaultClient.
func NewGoogleVerifier(discoveryURL string, httpClient *http.Client) *GoogleVerifier {
	if discoveryURL == "" {
		discoveryURL = GoogleDiscoveryURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GoogleVerifier{discoveryURL: discoveryURL, httpClient: httpClient}
}

type discoveryDocument struct {
	UserinfoEndpoint string `json:"userinfo_endpoint"`
}

type userinfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Verify calls the userinfo endpoint with accessToken as the bearer.
func (v *GoogleVerifier) Verify(ctx context.Context, accessToken string) (*model.Identity, error) {
	if accessToken == "" {
		return nil, errors.New("auth: empty access token")
	}

	endpoint, err := v.endpoint(ctx)
	if err != nil {
		return nil, err
	}

	// oauth2.NewClient picks up the base transport from the context and adds
	// "Authorization: Bearer <token>" to every request.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: userinfo endpoint returned status %d", resp.StatusCode)
	}

	var info userinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("auth: decoding userinfo response: %w", err)
	}
	if info.Sub == "" {
		return nil, errors.New("auth: userinfo response has no sub")
	}

	return &model.Identity{
		Sub:     info.Sub,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}

func (v *GoogleVerifier) endpoint(ctx context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.userinfoEndpoint != "" {
		return v.userinfoEndpoint, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.discoveryURL, nil)
	if err != nil {
		return "", fmt.Errorf("auth: building discovery request: %w", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth: fetching discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth: discovery document returned status %d", resp.StatusCode)
	}

	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("auth: decoding discovery document: %w", err)
	}
	if doc.UserinfoEndpoint == "" {
		return "", errors.New("auth: discovery document has no userinfo_endpoint")
	}

	v.userinfoEndpoint = doc.UserinfoEndpoint
	return v.userinfoEndpoint, nil
}
