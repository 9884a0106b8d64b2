package auth

import (
	"context"

	"github.com/pkg/errors"
)

// ErrEndpointNotFound is returned when no catalog entry matches an EndpointFilter.
var ErrEndpointNotFound = errors.New("endpoint not found in service catalog")

// EndpointFilter selects one endpoint from the service catalog.
type EndpointFilter struct {
	Service      string
	Region       string
	EndpointType string
}

// Provider supplies tokens and catalog lookups to REST clients.
type Provider interface {
	Token(ctx context.Context) (string, error)
	BaseURL(ctx context.Context, filter EndpointFilter) (string, error)
}

// StaticProvider always returns the same token and endpoint.
type StaticProvider struct {
	token    string
	endpoint string
}

// NewStaticProvider creates a StaticProvider.
func NewStaticProvider(token, endpoint string) *StaticProvider {
	return &StaticProvider{token: token, endpoint: endpoint}
}

func (p *StaticProvider) Token(context.Context) (string, error) {
	return p.token, nil
}

func (p *StaticProvider) BaseURL(context.Context, EndpointFilter) (string, error) {
	if p.endpoint == "" {
		return "", ErrEndpointNotFound
	}
	return p.endpoint, nil
}
