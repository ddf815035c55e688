package keystone

import (
	"context"

	osfederation "github.com/gophercloud/gophercloud/v2/openstack/identity/v3/federation"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/openstack"
)

const MappingModuleName = "keystone_federation_mapping"

type MappingParams struct {
	openstack.Credentials

	MappingID string                     `json:"mapping_id" validate:"required"`
	Rules     []osfederation.MappingRule `json:"rules" validate:"required,min=1"`
	State     string                     `json:"state" validate:"oneof=present absent"`
}

type mappingConverger struct {
	api API
	p   *MappingParams
}

func (c *mappingConverger) Probe(ctx context.Context) (*osfederation.Mapping, error) {
	return c.api.GetMapping(ctx, c.p.MappingID)
}

// Diff compares the decoded rules, so key order and formatting do not matter.
func (c *mappingConverger) Diff(current *osfederation.Mapping) converge.Diff {
	return converge.Compare(converge.Field("rules", c.p.Rules, current.Rules))
}

func (c *mappingConverger) Create(ctx context.Context) (*osfederation.Mapping, error) {
	return c.api.CreateMapping(ctx, c.p.MappingID, c.p.Rules)
}

func (c *mappingConverger) Update(ctx context.Context, _ *osfederation.Mapping) (*osfederation.Mapping, error) {
	return c.api.UpdateMapping(ctx, c.p.MappingID, c.p.Rules)
}

func (c *mappingConverger) Delete(ctx context.Context, _ *osfederation.Mapping) error {
	return c.api.DeleteMapping(ctx, c.p.MappingID)
}

// MappingModule manages a federation mapping.
func MappingModule(newAPI APIFactory) ansible.Module {
	return module(MappingModuleName, "Keystone mapping", newAPI,
		func() MappingParams { return MappingParams{State: string(converge.Present)} },
		func(p *MappingParams) (openstack.Credentials, string, string) {
			return p.Credentials, p.MappingID, p.State
		},
		func(api API, p *MappingParams) converge.Converger[osfederation.Mapping] {
			return &mappingConverger{api: api, p: p}
		},
		func(r *ansible.Result, _ *MappingParams, res converge.Result[osfederation.Mapping]) {
			r.Set("mapping", []any{res.Resource.ID, res.Resource.Rules})
		},
	)
}
