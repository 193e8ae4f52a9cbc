package kusto

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// TokenProvider supplies bearer tokens for cluster requests.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token, typically injected via environment.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	return string(t), nil
}

// AzureTokenProvider acquires tokens through the Azure default credential
// chain (environment, managed identity, az CLI) and caches them until
// shortly before expiry.
type AzureTokenProvider struct {
	cred  *azidentity.DefaultAzureCredential
	scope string

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewAzureTokenProvider builds a provider scoped to the given cluster URL.
func NewAzureTokenProvider(clusterURL string) (*AzureTokenProvider, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build azure credential: %w", err)
	}
	return &AzureTokenProvider{
		cred:  cred,
		scope: clusterURL + "/.default",
	}, nil
}

func (p *AzureTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Until(p.expires) > 2*time.Minute {
		return p.token, nil
	}

	tk, err := p.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{p.scope}})
	if err != nil {
		return "", fmt.Errorf("failed to acquire token: %w", err)
	}
	p.token = tk.Token
	p.expires = tk.ExpiresOn
	return p.token, nil
}
