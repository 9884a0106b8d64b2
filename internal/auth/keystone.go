package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"CapIot.telemetry/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// expiryMargin is subtracted from a token's expiry when deciding to reuse it.
const expiryMargin = 30 * time.Second

type catalogEndpoint struct {
	Interface string `json:"interface"`
	Region    string `json:"region"`
	RegionID  string `json:"region_id"`
	URL       string `json:"url"`
}

type catalogEntry struct {
	Type      string            `json:"type"`
	Name      string            `json:"name"`
	Endpoints []catalogEndpoint `json:"endpoints"`
}

type tokenResponse struct {
	Token struct {
		ExpiresAt string         `json:"expires_at"`
		Catalog   []catalogEntry `json:"catalog"`
	} `json:"token"`
}

// KeystoneProvider authenticates against the identity v3 API and resolves
// endpoints from the catalog returned with the token.
type KeystoneProvider struct {
	identityURI string
	creds       Credentials
	client      *resty.Client
	now         func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	catalog   []catalogEntry
}

// NewKeystoneProvider creates a KeystoneProvider. No request is made until a
// token or endpoint is first needed. A nil client gets a default resty client.
func NewKeystoneProvider(identityURI string, creds Credentials, client *resty.Client) *KeystoneProvider {
	if client == nil {
		client = resty.New()
	}
	return &KeystoneProvider{
		identityURI: strings.TrimRight(identityURI, "/"),
		creds:       creds,
		client:      client,
		now:         time.Now,
	}
}

// Token returns a valid token, authenticating when the cached one is missing or expiring.
func (p *KeystoneProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureToken(ctx); err != nil {
		return "", err
	}
	return p.token, nil
}

// BaseURL returns the URL of the catalog endpoint matching filter.
func (p *KeystoneProvider) BaseURL(ctx context.Context, filter EndpointFilter) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureToken(ctx); err != nil {
		return "", err
	}
	return lookupEndpoint(p.catalog, filter)
}

// Invalidate drops the cached token so the next call re-authenticates.
func (p *KeystoneProvider) Invalidate() {
	p.mu.Lock()
	p.token = ""
	p.catalog = nil
	p.mu.Unlock()
}

func (p *KeystoneProvider) ensureToken(ctx context.Context) error {
	if p.token != "" && (p.expiresAt.IsZero() || p.now().Add(expiryMargin).Before(p.expiresAt)) {
		return nil
	}

	url := p.identityURI + "/auth/tokens"
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(p.authRequest()).
		Post(url)
	if err != nil {
		return errors.Wrap(err, "error requesting identity token")
	}
	log.WithFields(log.Fields{"url": url, "status": resp.StatusCode()}).Debug("identity token request")

	if resp.StatusCode() != http.StatusCreated {
		apiErr := models.NewUnexpectedStatusError(http.StatusCreated, resp.StatusCode())
		apiErr.Method = http.MethodPost
		apiErr.URL = url
		apiErr.Body = string(resp.Body())
		return apiErr
	}

	subject := resp.Header().Get("X-Subject-Token")
	if subject == "" {
		return errors.New("identity response carried no X-Subject-Token header")
	}

	var result tokenResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return errors.Wrap(err, "error parsing identity token response")
	}

	var expiresAt time.Time
	if result.Token.ExpiresAt != "" {
		expiresAt, err = time.Parse(time.RFC3339Nano, result.Token.ExpiresAt)
		if err != nil {
			return errors.Wrapf(err, "invalid token expiry %q", result.Token.ExpiresAt)
		}
	}

	p.token = subject
	p.expiresAt = expiresAt
	p.catalog = result.Token.Catalog
	return nil
}

func (p *KeystoneProvider) authRequest() map[string]any {
	var identity map[string]any
	if p.creds.Token != "" {
		identity = map[string]any{
			"methods": []string{"token"},
			"token":   map[string]any{"id": p.creds.Token},
		}
	} else {
		identity = map[string]any{
			"methods": []string{"password"},
			"password": map[string]any{
				"user": map[string]any{
					"name":     p.creds.Username,
					"password": p.creds.Password,
					"domain":   map[string]any{"name": p.creds.UserDomainName},
				},
			},
		}
	}

	authBody := map[string]any{"identity": identity}
	if p.creds.ProjectName != "" {
		authBody["scope"] = map[string]any{
			"project": map[string]any{
				"name":   p.creds.ProjectName,
				"domain": map[string]any{"name": p.creds.ProjectDomainName},
			},
		}
	}
	return map[string]any{"auth": authBody}
}

// interfaceName maps v2-style endpoint types ("publicURL") to v3 interfaces ("public").
func interfaceName(endpointType string) string {
	return strings.TrimSuffix(endpointType, "URL")
}

func lookupEndpoint(catalog []catalogEntry, filter EndpointFilter) (string, error) {
	iface := interfaceName(filter.EndpointType)
	for _, entry := range catalog {
		if entry.Type != filter.Service {
			continue
		}
		for _, ep := range entry.Endpoints {
			if iface != "" && ep.Interface != iface {
				continue
			}
			if filter.Region != "" && ep.Region != filter.Region && ep.RegionID != filter.Region {
				continue
			}
			return ep.URL, nil
		}
	}
	return "", errors.Wrapf(ErrEndpointNotFound, "service %q, region %q, interface %q",
		filter.Service, filter.Region, iface)
}
