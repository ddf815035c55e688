package keystone

import (
	"context"

	"github.com/gophercloud/gophercloud/v2"
	osfederation "github.com/gophercloud/gophercloud/v2/openstack/identity/v3/federation"

	"github.com/blueboxgroup/ursula/internal/openstack"
	"github.com/blueboxgroup/ursula/internal/openstack/federation"
)

// API is the part of the OS-FEDERATION API the keystone modules use. Getters
// return nil when the resource does not exist.
type API interface {
	GetIdentityProvider(ctx context.Context, id string) (*federation.IdentityProvider, error)
	CreateIdentityProvider(ctx context.Context, id string, opts federation.IdentityProviderOpts) (*federation.IdentityProvider, error)
	UpdateIdentityProvider(ctx context.Context, id string, opts federation.IdentityProviderOpts) (*federation.IdentityProvider, error)
	DeleteIdentityProvider(ctx context.Context, id string) error

	GetMapping(ctx context.Context, id string) (*osfederation.Mapping, error)
	CreateMapping(ctx context.Context, id string, rules []osfederation.MappingRule) (*osfederation.Mapping, error)
	UpdateMapping(ctx context.Context, id string, rules []osfederation.MappingRule) (*osfederation.Mapping, error)
	DeleteMapping(ctx context.Context, id string) error

	GetProtocol(ctx context.Context, idpID, id string) (*federation.Protocol, error)
	CreateProtocol(ctx context.Context, idpID, id string, opts federation.ProtocolOpts) (*federation.Protocol, error)
	UpdateProtocol(ctx context.Context, idpID, id string, opts federation.ProtocolOpts) (*federation.Protocol, error)
	DeleteProtocol(ctx context.Context, idpID, id string) error

	GetServiceProvider(ctx context.Context, id string) (*federation.ServiceProvider, error)
	CreateServiceProvider(ctx context.Context, id string, opts federation.ServiceProviderOpts) (*federation.ServiceProvider, error)
	UpdateServiceProvider(ctx context.Context, id string, opts federation.ServiceProviderOpts) (*federation.ServiceProvider, error)
	DeleteServiceProvider(ctx context.Context, id string) error
}

// APIFactory connects to the identity API.
type APIFactory func(ctx context.Context, creds openstack.Credentials) (API, error)

type identity struct {
	client *gophercloud.ServiceClient
}

// NewAPI authenticates and returns the gophercloud backed API.
func NewAPI(ctx context.Context, creds openstack.Credentials) (API, error) {
	clients, err := openstack.Connect(ctx, creds)
	if err != nil {
		return nil, err
	}
	client, err := clients.Identity()
	if err != nil {
		return nil, err
	}
	return NewIdentityAPI(client), nil
}

// NewIdentityAPI wraps an identity v3 service client.
func NewIdentityAPI(client *gophercloud.ServiceClient) API {
	return &identity{client: client}
}

// absentOnNotFound maps a 404 to a nil resource.
func absentOnNotFound[T any](v *T, err error) (*T, error) {
	if openstack.IsNotFound(err) {
		return nil, nil
	}
	return v, err
}

func (i *identity) GetIdentityProvider(ctx context.Context, id string) (*federation.IdentityProvider, error) {
	v, err := federation.GetIdentityProvider(ctx, i.client, id).Extract()
	return absentOnNotFound(v, err)
}

func (i *identity) CreateIdentityProvider(ctx context.Context, id string, opts federation.IdentityProviderOpts) (*federation.IdentityProvider, error) {
	return federation.CreateIdentityProvider(ctx, i.client, id, opts).Extract()
}

func (i *identity) UpdateIdentityProvider(ctx context.Context, id string, opts federation.IdentityProviderOpts) (*federation.IdentityProvider, error) {
	return federation.UpdateIdentityProvider(ctx, i.client, id, opts).Extract()
}

func (i *identity) DeleteIdentityProvider(ctx context.Context, id string) error {
	return federation.DeleteIdentityProvider(ctx, i.client, id).ExtractErr()
}

func (i *identity) GetMapping(ctx context.Context, id string) (*osfederation.Mapping, error) {
	v, err := osfederation.GetMapping(ctx, i.client, id).Extract()
	return absentOnNotFound(v, err)
}

func (i *identity) CreateMapping(ctx context.Context, id string, rules []osfederation.MappingRule) (*osfederation.Mapping, error) {
	return osfederation.CreateMapping(ctx, i.client, id, osfederation.CreateMappingOpts{Rules: rules}).Extract()
}

func (i *identity) UpdateMapping(ctx context.Context, id string, rules []osfederation.MappingRule) (*osfederation.Mapping, error) {
	return osfederation.UpdateMapping(ctx, i.client, id, osfederation.UpdateMappingOpts{Rules: rules}).Extract()
}

func (i *identity) DeleteMapping(ctx context.Context, id string) error {
	return osfederation.DeleteMapping(ctx, i.client, id).ExtractErr()
}

func (i *identity) GetProtocol(ctx context.Context, idpID, id string) (*federation.Protocol, error) {
	v, err := federation.GetProtocol(ctx, i.client, idpID, id).Extract()
	return absentOnNotFound(v, err)
}

func (i *identity) CreateProtocol(ctx context.Context, idpID, id string, opts federation.ProtocolOpts) (*federation.Protocol, error) {
	return federation.CreateProtocol(ctx, i.client, idpID, id, opts).Extract()
}

func (i *identity) UpdateProtocol(ctx context.Context, idpID, id string, opts federation.ProtocolOpts) (*federation.Protocol, error) {
	return federation.UpdateProtocol(ctx, i.client, idpID, id, opts).Extract()
}

func (i *identity) DeleteProtocol(ctx context.Context, idpID, id string) error {
	return federation.DeleteProtocol(ctx, i.client, idpID, id).ExtractErr()
}

func (i *identity) GetServiceProvider(ctx context.Context, id string) (*federation.ServiceProvider, error) {
	v, err := federation.GetServiceProvider(ctx, i.client, id).Extract()
	return absentOnNotFound(v, err)
}

func (i *identity) CreateServiceProvider(ctx context.Context, id string, opts federation.ServiceProviderOpts) (*federation.ServiceProvider, error) {
	return federation.CreateServiceProvider(ctx, i.client, id, opts).Extract()
}

func (i *identity) UpdateServiceProvider(ctx context.Context, id string, opts federation.ServiceProviderOpts) (*federation.ServiceProvider, error) {
	return federation.UpdateServiceProvider(ctx, i.client, id, opts).Extract()
}

func (i *identity) DeleteServiceProvider(ctx context.Context, id string) error {
	return federation.DeleteServiceProvider(ctx, i.client, id).ExtractErr()
}
