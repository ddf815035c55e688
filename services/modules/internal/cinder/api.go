package cinder

import (
	"context"
	"fmt"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/blockstorage/v3/volumetypes"

	"github.com/blueboxgroup/ursula/internal/openstack"
)

// API is the part of the block storage API the volume type module uses.
type API interface {
	FindVolumeType(ctx context.Context, name string) (*volumetypes.VolumeType, error)
	CreateVolumeType(ctx context.Context, name string, extraSpecs map[string]string) (*volumetypes.VolumeType, error)
	SetExtraSpecs(ctx context.Context, typeID string, specs map[string]string) error
	DeleteVolumeType(ctx context.Context, typeID string) error
	GetEncryption(ctx context.Context, typeID string) (*volumetypes.EncryptionType, error)
	CreateEncryption(ctx context.Context, typeID string, opts volumetypes.CreateEncryptionOpts) (*volumetypes.EncryptionType, error)
	UpdateEncryption(ctx context.Context, typeID, encryptionID string, opts volumetypes.CreateEncryptionOpts) (*volumetypes.EncryptionType, error)
}

// APIFactory connects to the block storage API.
type APIFactory func(ctx context.Context, creds openstack.Credentials) (API, error)

type blockStorage struct {
	client *gophercloud.ServiceClient
}

// NewAPI authenticates and returns the gophercloud backed API.
func NewAPI(ctx context.Context, creds openstack.Credentials) (API, error) {
	clients, err := openstack.Connect(ctx, creds)
	if err != nil {
		return nil, err
	}
	client, err := clients.BlockStorage()
	if err != nil {
		return nil, err
	}
	return &blockStorage{client: client}, nil
}

func (b *blockStorage) FindVolumeType(ctx context.Context, name string) (*volumetypes.VolumeType, error) {
	pages, err := volumetypes.List(b.client, volumetypes.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list volume types: %w", err)
	}
	types, err := volumetypes.ExtractVolumeTypes(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to list volume types: %w", err)
	}
	// the last match wins, as with duplicate names the newest type is listed last
	var found *volumetypes.VolumeType
	for i := range types {
		if types[i].Name == name {
			found = &types[i]
		}
	}
	return found, nil
}

func (b *blockStorage) CreateVolumeType(ctx context.Context, name string, extraSpecs map[string]string) (*volumetypes.VolumeType, error) {
	vt, err := volumetypes.Create(ctx, b.client, volumetypes.CreateOpts{Name: name, ExtraSpecs: extraSpecs}).Extract()
	if err != nil {
		return nil, fmt.Errorf("failed to create volume type %s: %w", name, err)
	}
	return vt, nil
}

func (b *blockStorage) SetExtraSpecs(ctx context.Context, typeID string, specs map[string]string) error {
	if _, err := volumetypes.CreateExtraSpecs(ctx, b.client, typeID, volumetypes.ExtraSpecsOpts(specs)).Extract(); err != nil {
		return fmt.Errorf("failed to set extra specs on volume type %s: %w", typeID, err)
	}
	return nil
}

func (b *blockStorage) DeleteVolumeType(ctx context.Context, typeID string) error {
	if err := volumetypes.Delete(ctx, b.client, typeID).ExtractErr(); err != nil {
		return fmt.Errorf("failed to delete volume type %s: %w", typeID, err)
	}
	return nil
}

func (b *blockStorage) GetEncryption(ctx context.Context, typeID string) (*volumetypes.EncryptionType, error) {
	enc, err := volumetypes.GetEncryption(ctx, b.client, typeID).Extract()
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption of volume type %s: %w", typeID, err)
	}
	// a type without encryption answers with an empty object
	if enc.EncryptionID == "" && enc.Provider == "" {
		return nil, nil
	}
	return &volumetypes.EncryptionType{
		VolumeTypeID:    enc.VolumeTypeID,
		EncryptionID:    enc.EncryptionID,
		Provider:        enc.Provider,
		ControlLocation: enc.ControlLocation,
		Cipher:          enc.Cipher,
		KeySize:         enc.KeySize,
	}, nil
}

func (b *blockStorage) CreateEncryption(ctx context.Context, typeID string, opts volumetypes.CreateEncryptionOpts) (*volumetypes.EncryptionType, error) {
	enc, err := volumetypes.CreateEncryption(ctx, b.client, typeID, encryptionBody(opts)).Extract()
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption of volume type %s: %w", typeID, err)
	}
	return enc, nil
}

func (b *blockStorage) UpdateEncryption(ctx context.Context, typeID, encryptionID string, opts volumetypes.CreateEncryptionOpts) (*volumetypes.EncryptionType, error) {
	enc, err := volumetypes.UpdateEncryption(ctx, b.client, typeID, encryptionID, encryptionBody(opts)).Extract()
	if err != nil {
		return nil, fmt.Errorf("failed to update encryption of volume type %s: %w", typeID, err)
	}
	// the update response only echoes the written attributes
	enc.VolumeTypeID, enc.EncryptionID = typeID, encryptionID
	return enc, nil
}

// encryptionBody is the request body of both encryption create and update.
// Unset attributes are left out so Cinder applies its defaults.
type encryptionBody volumetypes.CreateEncryptionOpts

func (o encryptionBody) ToEncryptionCreateMap() (map[string]any, error) {
	b, err := gophercloud.BuildRequestBody(volumetypes.CreateEncryptionOpts(o), "encryption")
	if err != nil {
		return nil, err
	}
	enc := b["encryption"].(map[string]any)
	if o.KeySize == 0 {
		delete(enc, "key_size")
	}
	if o.Cipher == "" {
		delete(enc, "cipher")
	}
	if o.ControlLocation == "" {
		delete(enc, "control_location")
	}
	return b, nil
}

func (o encryptionBody) ToUpdateEncryptionMap() (map[string]any, error) {
	return o.ToEncryptionCreateMap()
}
