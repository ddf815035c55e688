package keystone

import (
	"context"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/openstack"
	"github.com/blueboxgroup/ursula/internal/openstack/federation"
)

const ServiceProviderModuleName = "keystone_service_provider"

type ServiceProviderParams struct {
	openstack.Credentials

	ServiceProviderID      string       `json:"service_provider_id" validate:"required"`
	ServiceProviderURL     string       `json:"service_provider_url" validate:"required,url"`
	ServiceProviderAuthURL string       `json:"service_provider_auth_url" validate:"required,url"`
	Enabled                ansible.Bool `json:"enabled"`
	Description            *string      `json:"description"`
	State                  string       `json:"state" validate:"oneof=present absent"`
}

type serviceProviderConverger struct {
	api API
	p   *ServiceProviderParams
}

func (c *serviceProviderConverger) opts() federation.ServiceProviderOpts {
	return federation.ServiceProviderOpts{
		AuthURL:     c.p.ServiceProviderAuthURL,
		SPURL:       c.p.ServiceProviderURL,
		Enabled:     boolPtr(bool(c.p.Enabled)),
		Description: strPtr(c.p.Description),
	}
}

func (c *serviceProviderConverger) Probe(ctx context.Context) (*federation.ServiceProvider, error) {
	return c.api.GetServiceProvider(ctx, c.p.ServiceProviderID)
}

func (c *serviceProviderConverger) Diff(current *federation.ServiceProvider) converge.Diff {
	return converge.Compare(
		converge.Field("sp_url", c.p.ServiceProviderURL, current.SPURL),
		converge.Field("auth_url", c.p.ServiceProviderAuthURL, current.AuthURL),
		converge.Field("enabled", bool(c.p.Enabled), current.Enabled),
		converge.Optional("description", c.p.Description, current.Description),
	)
}

func (c *serviceProviderConverger) Create(ctx context.Context) (*federation.ServiceProvider, error) {
	return c.api.CreateServiceProvider(ctx, c.p.ServiceProviderID, c.opts())
}

func (c *serviceProviderConverger) Update(ctx context.Context, _ *federation.ServiceProvider) (*federation.ServiceProvider, error) {
	return c.api.UpdateServiceProvider(ctx, c.p.ServiceProviderID, c.opts())
}

func (c *serviceProviderConverger) Delete(ctx context.Context, _ *federation.ServiceProvider) error {
	return c.api.DeleteServiceProvider(ctx, c.p.ServiceProviderID)
}

// ServiceProviderModule manages a federated service provider.
func ServiceProviderModule(newAPI APIFactory) ansible.Module {
	return module(ServiceProviderModuleName, "service provider", newAPI,
		func() ServiceProviderParams {
			return ServiceProviderParams{Enabled: true, State: string(converge.Present)}
		},
		func(p *ServiceProviderParams) (openstack.Credentials, string, string) {
			return p.Credentials, p.ServiceProviderID, p.State
		},
		func(api API, p *ServiceProviderParams) converge.Converger[federation.ServiceProvider] {
			return &serviceProviderConverger{api: api, p: p}
		},
		func(r *ansible.Result, _ *ServiceProviderParams, res converge.Result[federation.ServiceProvider]) {
			sp := res.Resource
			r.Set("service_provider", []any{sp.ID, sp.SPURL, sp.AuthURL, sp.Enabled, sp.Description})
		},
	)
}
