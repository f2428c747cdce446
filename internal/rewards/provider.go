package rewards

import (
	"context"
	"errors"
	"strings"

	"github.com/google/logger"
)

var ErrNoCredential = errors.New("no stored credential")

// CredentialStore holds per-tenant access tokens persisted at install time.
type CredentialStore interface {
	AccessToken(ctx context.Context, shop string) (string, error)
}

type boundKey struct{}

type bound struct {
	shop   string
	client Client
}

// WithClient binds a client for shop to the request context. The auth
// middleware does this for authenticated admin sessions.
func WithClient(ctx context.Context, shop string, client Client) context.Context {
	return context.WithValue(ctx, boundKey{}, bound{shop: normalizeShop(shop), client: client})
}

func FromContext(ctx context.Context) (string, Client, bool) {
	b, ok := ctx.Value(boundKey{}).(bound)
	if !ok || b.client == nil {
		return "", nil, false
	}
	return b.shop, b.client, true
}

// Provider resolves the capability to call the reward service for a shop.
type Provider struct {
	Credentials CredentialStore
	NewClient   func(shop, accessToken string) Client
}

func NewProvider(creds CredentialStore, cfg HTTPConfig) *Provider {
	return &Provider{
		Credentials: creds,
		NewClient: func(shop, token string) Client {
			return NewHTTPClient(cfg, shop, token)
		},
	}
}

// Lookup prefers a client bound to the request; otherwise it recovers one
// from stored credentials. ok is false when neither is available.
func (p *Provider) Lookup(ctx context.Context, shop string) (Client, bool) {
	shop = normalizeShop(shop)
	if boundShop, client, ok := FromContext(ctx); ok && boundShop == shop {
		return client, true
	}
	if p == nil || p.Credentials == nil || p.NewClient == nil || shop == "" {
		return nil, false
	}
	token, err := p.Credentials.AccessToken(ctx, shop)
	if err != nil {
		if !errors.Is(err, ErrNoCredential) {
			logger.Warningf("reward credential lookup shop=%s: %v", shop, err)
		}
		return nil, false
	}
	if strings.TrimSpace(token) == "" {
		return nil, false
	}
	return p.NewClient(shop, token), true
}

func normalizeShop(shop string) string {
	return strings.ToLower(strings.TrimSpace(shop))
}
