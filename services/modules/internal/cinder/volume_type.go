package cinder

import (
	"context"
	"errors"
	"fmt"

	"github.com/gophercloud/gophercloud/v2/openstack/blockstorage/v3/volumetypes"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/generics"
	"github.com/blueboxgroup/ursula/internal/loggerutils"
	"github.com/blueboxgroup/ursula/internal/openstack"
)

const VolumeTypeModuleName = "cinder_volume_type"

type VolumeTypeParams struct {
	openstack.Credentials

	VolumeType      string                    `json:"volume_type" validate:"required"`
	EncryptionType  ansible.Bool              `json:"encryption_type"`
	Provider        string                    `json:"provider" validate:"required_if=EncryptionType true"`
	Cipher          string                    `json:"cipher"`
	KeySize         ansible.Int               `json:"key_size" validate:"min=0"`
	ControlLocation string                    `json:"control_location" validate:"omitempty,oneof=front-end back-end"`
	ExtraSpecs      map[string]ansible.String `json:"extra_specs"`
	State           string                    `json:"state" validate:"oneof=present absent"`
}

func (p VolumeTypeParams) extraSpecs() map[string]string {
	if len(p.ExtraSpecs) == 0 {
		return nil
	}
	out := make(map[string]string, len(p.ExtraSpecs))
	for k, v := range p.ExtraSpecs {
		out[k] = string(v)
	}
	return out
}

func (p VolumeTypeParams) encryptionOpts() volumetypes.CreateEncryptionOpts {
	return volumetypes.CreateEncryptionOpts{
		Provider:        p.Provider,
		ControlLocation: p.ControlLocation,
		Cipher:          p.Cipher,
		KeySize:         int(p.KeySize),
	}
}

// VolumeType is a volume type together with its encryption spec.
type VolumeType struct {
	ID         string                      `json:"id"`
	Name       string                      `json:"name"`
	ExtraSpecs map[string]string           `json:"extra_specs,omitempty"`
	Encryption *volumetypes.EncryptionType `json:"encryption,omitempty"`
}

type volumeTypeConverger struct {
	api API
	p   VolumeTypeParams
}

func (c *volumeTypeConverger) Probe(ctx context.Context) (*VolumeType, error) {
	vt, err := c.api.FindVolumeType(ctx, c.p.VolumeType)
	if err != nil || vt == nil {
		return nil, err
	}
	out := &VolumeType{ID: vt.ID, Name: vt.Name, ExtraSpecs: vt.ExtraSpecs}
	if c.p.EncryptionType {
		if out.Encryption, err = c.api.GetEncryption(ctx, vt.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *volumeTypeConverger) specsDiff(current *VolumeType) converge.Diff {
	var fields []converge.FieldDiff
	for k, v := range generics.IterateMapInOrder(c.p.extraSpecs()) {
		fields = append(fields, converge.Field("extra_specs."+k, v, current.ExtraSpecs[k]))
	}
	return converge.Compare(fields...)
}

func (c *volumeTypeConverger) encryptionDiff(current *VolumeType) converge.Diff {
	if !c.p.EncryptionType {
		return nil
	}
	enc := volumetypes.EncryptionType{}
	if current.Encryption != nil {
		enc = *current.Encryption
	}
	// key_size is only compared when given
	var wantSize *int
	if c.p.KeySize > 0 {
		size := int(c.p.KeySize)
		wantSize = &size
	}
	want := c.p.encryptionOpts()
	return converge.Compare(
		converge.Field("encryption.provider", want.Provider, enc.Provider),
		converge.Field("encryption.control_location", want.ControlLocation, enc.ControlLocation),
		converge.Field("encryption.cipher", want.Cipher, enc.Cipher),
		converge.Optional("encryption.key_size", wantSize, enc.KeySize),
	)
}

func (c *volumeTypeConverger) Diff(current *VolumeType) converge.Diff {
	return append(c.specsDiff(current), c.encryptionDiff(current)...)
}

func (c *volumeTypeConverger) Create(ctx context.Context) (*VolumeType, error) {
	vt, err := c.api.CreateVolumeType(ctx, c.p.VolumeType, c.p.extraSpecs())
	if err != nil {
		return nil, err
	}
	out := &VolumeType{ID: vt.ID, Name: vt.Name, ExtraSpecs: vt.ExtraSpecs}
	if c.p.EncryptionType {
		if out.Encryption, err = c.api.CreateEncryption(ctx, vt.ID, c.p.encryptionOpts()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *volumeTypeConverger) Update(ctx context.Context, current *VolumeType) (*VolumeType, error) {
	out := *current
	if !c.specsDiff(current).Empty() {
		if err := c.api.SetExtraSpecs(ctx, current.ID, c.p.extraSpecs()); err != nil {
			return nil, err
		}
		out.ExtraSpecs = mergeSpecs(current.ExtraSpecs, c.p.extraSpecs())
	}
	if !c.encryptionDiff(current).Empty() {
		var err error
		if current.Encryption == nil {
			out.Encryption, err = c.api.CreateEncryption(ctx, current.ID, c.p.encryptionOpts())
		} else {
			out.Encryption, err = c.api.UpdateEncryption(ctx, current.ID, current.Encryption.EncryptionID, c.p.encryptionOpts())
		}
		if err != nil {
			return nil, err
		}
	}
	return &out, nil
}

func (c *volumeTypeConverger) Delete(ctx context.Context, current *VolumeType) error {
	return c.api.DeleteVolumeType(ctx, current.ID)
}

func mergeSpecs(base, over map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// resultWord is the outcome reported in `result`.
func resultWord(a converge.Action) string {
	switch a {
	case converge.ActionCreate:
		return "created"
	case converge.ActionUpdate:
		return "updated"
	case converge.ActionDelete:
		return "deleted"
	}
	return "unchanged"
}

// VolumeTypeModule manages a volume type, its extra specs and encryption.
func VolumeTypeModule(newAPI APIFactory) ansible.Module {
	return ansible.Module{Name: VolumeTypeModuleName, Run: func(ctx context.Context, args *ansible.Args) (*ansible.Result, error) {
		p := VolumeTypeParams{State: string(converge.Present)}
		if err := args.Decode(&p); err != nil {
			return nil, err
		}
		if p.EncryptionType && p.ControlLocation == "" {
			return nil, errors.New("control_location must be one of front-end or back-end")
		}

		api, err := newAPI(ctx, p.Credentials)
		if err != nil {
			return nil, fmt.Errorf("error authenticating to cinder: %w", err)
		}

		logger := loggerutils.WithResource("volume_type", p.VolumeType)
		res, err := converge.Reconcile[VolumeType](ctx, &volumeTypeConverger{api: api, p: p}, args.ConvergeOptions(p.State, logger))
		if err != nil {
			return nil, fmt.Errorf("managing volume type %s failed: %w", p.VolumeType, err)
		}

		r := ansible.Report(args, res).Set("result", resultWord(res.Action))
		if res.Resource != nil {
			r.Set("volume_type", res.Resource)
		}
		return r, nil
	}}
}
