package keystone

import (
	"context"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/generics"
	"github.com/blueboxgroup/ursula/internal/openstack"
	"github.com/blueboxgroup/ursula/internal/openstack/federation"
)

const IdentityProviderModuleName = "keystone_identity_provider"

type IdentityProviderParams struct {
	openstack.Credentials

	IdentityProviderID string             `json:"identity_provider_id" validate:"required"`
	RemoteIDs          ansible.StringList `json:"remote_ids"`
	Enabled            ansible.Bool       `json:"enabled"`
	Description        *string            `json:"description"`
	State              string             `json:"state" validate:"oneof=present absent"`
}

type identityProviderConverger struct {
	api API
	p   *IdentityProviderParams
}

func (c *identityProviderConverger) opts() federation.IdentityProviderOpts {
	return federation.IdentityProviderOpts{
		Enabled:     boolPtr(bool(c.p.Enabled)),
		Description: strPtr(c.p.Description),
		RemoteIDs:   c.p.RemoteIDs,
	}
}

func (c *identityProviderConverger) Probe(ctx context.Context) (*federation.IdentityProvider, error) {
	return c.api.GetIdentityProvider(ctx, c.p.IdentityProviderID)
}

// Diff compares remote ids as sets and only when they are given.
func (c *identityProviderConverger) Diff(current *federation.IdentityProvider) converge.Diff {
	var remoteIDs *[]string
	if c.p.RemoteIDs != nil {
		ids := generics.SortedSet([]string(c.p.RemoteIDs))
		remoteIDs = &ids
	}
	return converge.Compare(
		converge.Field("enabled", bool(c.p.Enabled), current.Enabled),
		converge.Optional("description", c.p.Description, current.Description),
		converge.Optional("remote_ids", remoteIDs, generics.SortedSet(current.RemoteIDs)),
	)
}

func (c *identityProviderConverger) Create(ctx context.Context) (*federation.IdentityProvider, error) {
	return c.api.CreateIdentityProvider(ctx, c.p.IdentityProviderID, c.opts())
}

func (c *identityProviderConverger) Update(ctx context.Context, _ *federation.IdentityProvider) (*federation.IdentityProvider, error) {
	return c.api.UpdateIdentityProvider(ctx, c.p.IdentityProviderID, c.opts())
}

func (c *identityProviderConverger) Delete(ctx context.Context, _ *federation.IdentityProvider) error {
	return c.api.DeleteIdentityProvider(ctx, c.p.IdentityProviderID)
}

// IdentityProviderModule manages a federated identity provider.
func IdentityProviderModule(newAPI APIFactory) ansible.Module {
	return module(IdentityProviderModuleName, "identity provider", newAPI,
		func() IdentityProviderParams {
			return IdentityProviderParams{Enabled: true, State: string(converge.Present)}
		},
		func(p *IdentityProviderParams) (openstack.Credentials, string, string) {
			return p.Credentials, p.IdentityProviderID, p.State
		},
		func(api API, p *IdentityProviderParams) converge.Converger[federation.IdentityProvider] {
			return &identityProviderConverger{api: api, p: p}
		},
		func(r *ansible.Result, p *IdentityProviderParams, res converge.Result[federation.IdentityProvider]) {
			idp := res.Resource
			r.Set("identity_provider", []any{idp.ID, idp.Enabled, idp.Description, idp.RemoteIDs})
		},
	)
}
