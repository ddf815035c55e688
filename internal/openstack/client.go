package openstack

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	"github.com/rs/zerolog/log"

	"github.com/blueboxgroup/ursula/internal/sanitise"
)

// Clients hands out service clients sharing one authenticated provider.
type Clients struct {
	Provider *gophercloud.ProviderClient
	endpoint gophercloud.EndpointOpts
}

// Connect authenticates with the resolved credentials.
func Connect(ctx context.Context, creds Credentials) (*Clients, error) {
	cfg, err := creds.Resolve(openstack.AuthOptionsFromEnv)
	if err != nil {
		return nil, err
	}
	return Authenticate(ctx, cfg)
}

// Authenticate builds an authenticated provider from a resolved config.
func Authenticate(ctx context.Context, cfg Config) (*Clients, error) {
	provider, err := openstack.NewClient(cfg.AuthOptions.IdentityEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create openstack client for %s: %w", sanitise.URI(cfg.AuthOptions.IdentityEndpoint), err)
	}
	provider.UserAgent.Prepend("ursula")
	if provider.HTTPClient, err = HTTPClient(cfg); err != nil {
		return nil, err
	}

	log.Debug().
		Str("auth_url", sanitise.URI(cfg.AuthOptions.IdentityEndpoint)).
		Str("region", cfg.Region).
		Str("interface", string(cfg.Availability)).
		Msg("Authenticating to OpenStack")

	if err := openstack.Authenticate(ctx, provider, cfg.AuthOptions); err != nil {
		return nil, fmt.Errorf("openstack authentication got error: %w", err)
	}
	return &Clients{Provider: provider, endpoint: cfg.Endpoint()}, nil
}

// HTTPClient builds the client used for API calls: the TLS settings of cfg
// and its request timeout.
func HTTPClient(cfg Config) (http.Client, error) {
	client := http.Client{Timeout: cfg.Timeout}
	if !cfg.Insecure && cfg.CACert == "" && cfg.ClientCert == "" {
		return client, nil
	}

	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.Insecure}
	if cfg.CACert != "" {
		pem, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return http.Client{}, fmt.Errorf("failed to read cacert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return http.Client{}, errors.New("cacert holds no PEM certificates")
		}
		tlsConfig.RootCAs = pool
	}
	if cfg.ClientCert != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return http.Client{}, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	client.Transport = transport
	return client, nil
}

func (c *Clients) Identity() (*gophercloud.ServiceClient, error) {
	client, err := openstack.NewIdentityV3(c.Provider, c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity client: %w", err)
	}
	return client, nil
}

func (c *Clients) BlockStorage() (*gophercloud.ServiceClient, error) {
	client, err := openstack.NewBlockStorageV3(c.Provider, c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create block storage client: %w", err)
	}
	return client, nil
}

func (c *Clients) Compute() (*gophercloud.ServiceClient, error) {
	client, err := openstack.NewComputeV2(c.Provider, c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute client: %w", err)
	}
	return client, nil
}

func (c *Clients) Network() (*gophercloud.ServiceClient, error) {
	client, err := openstack.NewNetworkV2(c.Provider, c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create network client: %w", err)
	}
	return client, nil
}

// IsNotFound reports whether err is an API 404.
func IsNotFound(err error) bool {
	return gophercloud.ResponseCodeIs(err, http.StatusNotFound)
}
