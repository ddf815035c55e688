package cinder

import (
	"context"
	"testing"

	"github.com/gophercloud/gophercloud/v2/openstack/blockstorage/v3/volumetypes"
	"github.com/stretchr/testify/require"

	"github.com/blueboxgroup/ursula/internal/openstack"
)

// fakeBlockStorage is an in-memory volume type store.
type fakeBlockStorage struct {
	types       map[string]*volumetypes.VolumeType
	encryptions map[string]*volumetypes.EncryptionType
	calls       []string
}

func newFakeBlockStorage() *fakeBlockStorage {
	return &fakeBlockStorage{
		types:       map[string]*volumetypes.VolumeType{},
		encryptions: map[string]*volumetypes.EncryptionType{},
	}
}

func (f *fakeBlockStorage) factory(context.Context, openstack.Credentials) (API, error) { return f, nil }

func (f *fakeBlockStorage) FindVolumeType(_ context.Context, name string) (*volumetypes.VolumeType, error) {
	for _, vt := range f.types {
		if vt.Name == name {
			c := *vt
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeBlockStorage) CreateVolumeType(_ context.Context, name string, specs map[string]string) (*volumetypes.VolumeType, error) {
	f.calls = append(f.calls, "create "+name)
	vt := &volumetypes.VolumeType{ID: name + "-id", Name: name, ExtraSpecs: mergeSpecs(nil, specs)}
	f.types[vt.ID] = vt
	return vt, nil
}

func (f *fakeBlockStorage) SetExtraSpecs(_ context.Context, id string, specs map[string]string) error {
	f.calls = append(f.calls, "set-keys "+id)
	f.types[id].ExtraSpecs = mergeSpecs(f.types[id].ExtraSpecs, specs)
	return nil
}

func (f *fakeBlockStorage) DeleteVolumeType(_ context.Context, id string) error {
	f.calls = append(f.calls, "delete "+id)
	delete(f.types, id)
	return nil
}

func (f *fakeBlockStorage) GetEncryption(_ context.Context, id string) (*volumetypes.EncryptionType, error) {
	return f.encryptions[id], nil
}

func (f *fakeBlockStorage) CreateEncryption(_ context.Context, id string, opts volumetypes.CreateEncryptionOpts) (*volumetypes.EncryptionType, error) {
	f.calls = append(f.calls, "create-encryption "+id)
	enc := &volumetypes.EncryptionType{VolumeTypeID: id, EncryptionID: "enc-" + id, Provider: opts.Provider, ControlLocation: opts.ControlLocation, Cipher: opts.Cipher, KeySize: opts.KeySize}
	f.encryptions[id] = enc
	return enc, nil
}

func (f *fakeBlockStorage) UpdateEncryption(_ context.Context, id, encID string, opts volumetypes.CreateEncryptionOpts) (*volumetypes.EncryptionType, error) {
	f.calls = append(f.calls, "update-encryption "+encID)
	enc := &volumetypes.EncryptionType{VolumeTypeID: id, EncryptionID: encID, Provider: opts.Provider, ControlLocation: opts.ControlLocation, Cipher: opts.Cipher, KeySize: opts.KeySize}
	f.encryptions[id] = enc
	return enc, nil
}

func TestVolumeTypeModulePlain(t *testing.T) {
	api := newFakeBlockStorage()
	m := VolumeTypeModule(api.factory)
	args := `{"volume_type":"ssd","extra_specs":{"volume_backend_name":"ceph","replicas":3}}`

	out, err := run(t, m, args)
	require.NoError(t, err)
	require.True(t, out.Get("changed").Bool())
	require.Equal(t, "created", out.Get("result").String())
	require.Equal(t, map[string]string{"volume_backend_name": "ceph", "replicas": "3"}, api.types["ssd-id"].ExtraSpecs)

	out, err = run(t, m, args)
	require.NoError(t, err)
	require.False(t, out.Get("changed").Bool())
	require.Equal(t, "unchanged", out.Get("result").String())

	out, err = run(t, m, `{"volume_type":"ssd","extra_specs":{"replicas":"2"},"_ansible_diff":true}`)
	require.NoError(t, err)
	require.Equal(t, "updated", out.Get("result").String())
	require.Equal(t, "2", out.Get("diff.after.extra_specs\\.replicas").String())
	require.Equal(t, "ceph", api.types["ssd-id"].ExtraSpecs["volume_backend_name"])
	require.Equal(t, []string{"create ssd", "set-keys ssd-id"}, api.calls)
}

func TestVolumeTypeModuleEncrypted(t *testing.T) {
	api := newFakeBlockStorage()
	m := VolumeTypeModule(api.factory)
	args := `{"volume_type":"luks","encryption_type":true,"provider":"luks","cipher":"aes-xts-plain64","key_size":"256","control_location":"front-end"}`

	out, err := run(t, m, args)
	require.NoError(t, err)
	require.Equal(t, "created", out.Get("result").String())
	require.Equal(t, "luks", out.Get("volume_type.encryption.provider").String())

	out, err = run(t, m, args)
	require.NoError(t, err)
	require.False(t, out.Get("changed").Bool())

	out, err = run(t, m, `{"volume_type":"luks","encryption_type":true,"provider":"luks","cipher":"aes-xts-plain64","key_size":512,"control_location":"front-end"}`)
	require.NoError(t, err)
	require.Equal(t, "updated", out.Get("result").String())
	require.Equal(t, 512, api.encryptions["luks-id"].KeySize)
	require.Equal(t, []string{"create luks", "create-encryption luks-id", "update-encryption enc-luks-id"}, api.calls)
}

func TestVolumeTypeModuleEncryptExisting(t *testing.T) {
	api := newFakeBlockStorage()
	api.types["t"] = &volumetypes.VolumeType{ID: "t", Name: "secure"}

	out, err := run(t, VolumeTypeModule(api.factory), `{"volume_type":"secure","encryption_type":true,"provider":"luks","control_location":"back-end"}`)
	require.NoError(t, err)
	require.Equal(t, "updated", out.Get("result").String())
	require.Equal(t, []string{"create-encryption t"}, api.calls)
}

func TestVolumeTypeModuleAbsent(t *testing.T) {
	api := newFakeBlockStorage()
	m := VolumeTypeModule(api.factory)

	out, err := run(t, m, `{"volume_type":"gone","state":"absent"}`)
	require.NoError(t, err)
	require.False(t, out.Get("changed").Bool())
	require.Empty(t, api.calls)

	api.types["x"] = &volumetypes.VolumeType{ID: "x", Name: "gone"}
	out, err = run(t, m, `{"volume_type":"gone","state":"absent"}`)
	require.NoError(t, err)
	require.Equal(t, "deleted", out.Get("result").String())
	require.Empty(t, api.types)
}

func TestVolumeTypeModuleValidation(t *testing.T) {
	api := newFakeBlockStorage()

	_, err := run(t, VolumeTypeModule(api.factory), `{"volume_type":"x","encryption_type":true,"provider":"luks"}`)
	require.ErrorContains(t, err, "control_location must be one of front-end or back-end")

	_, err = run(t, VolumeTypeModule(api.factory), `{"volume_type":"x","encryption_type":true,"control_location":"front-end"}`)
	require.ErrorContains(t, err, "argument provider is required when encryption_type is true")
}
