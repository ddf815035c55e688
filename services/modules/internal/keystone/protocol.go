package keystone

import (
	"context"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/openstack"
	"github.com/blueboxgroup/ursula/internal/openstack/federation"
)

const ProtocolModuleName = "keystone_federation_protocol"

type ProtocolParams struct {
	openstack.Credentials

	ProtocolID       string `json:"protocol_id" validate:"required"`
	Mapping          string `json:"mapping" validate:"required"`
	IdentityProvider string `json:"identity_provider" validate:"required"`
	State            string `json:"state" validate:"oneof=present absent"`
}

type protocolConverger struct {
	api API
	p   *ProtocolParams
}

func (c *protocolConverger) Probe(ctx context.Context) (*federation.Protocol, error) {
	return c.api.GetProtocol(ctx, c.p.IdentityProvider, c.p.ProtocolID)
}

func (c *protocolConverger) Diff(current *federation.Protocol) converge.Diff {
	return converge.Compare(converge.Field("mapping", c.p.Mapping, current.MappingID))
}

func (c *protocolConverger) Create(ctx context.Context) (*federation.Protocol, error) {
	return c.api.CreateProtocol(ctx, c.p.IdentityProvider, c.p.ProtocolID, federation.ProtocolOpts{MappingID: c.p.Mapping})
}

func (c *protocolConverger) Update(ctx context.Context, _ *federation.Protocol) (*federation.Protocol, error) {
	return c.api.UpdateProtocol(ctx, c.p.IdentityProvider, c.p.ProtocolID, federation.ProtocolOpts{MappingID: c.p.Mapping})
}

func (c *protocolConverger) Delete(ctx context.Context, _ *federation.Protocol) error {
	return c.api.DeleteProtocol(ctx, c.p.IdentityProvider, c.p.ProtocolID)
}

// ProtocolModule manages the federation protocol binding an identity provider
// to a mapping.
func ProtocolModule(newAPI APIFactory) ansible.Module {
	return module(ProtocolModuleName, "Keystone protocol", newAPI,
		func() ProtocolParams { return ProtocolParams{State: string(converge.Present)} },
		func(p *ProtocolParams) (openstack.Credentials, string, string) {
			return p.Credentials, p.ProtocolID, p.State
		},
		func(api API, p *ProtocolParams) converge.Converger[federation.Protocol] {
			return &protocolConverger{api: api, p: p}
		},
		func(r *ansible.Result, p *ProtocolParams, res converge.Result[federation.Protocol]) {
			r.Set("protocol", []any{res.Resource.ID, p.IdentityProvider, res.Resource.MappingID})
		},
	)
}
