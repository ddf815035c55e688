package keystone

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/openstack"
)

// fakeKeystone serves OS-FEDERATION resources from memory. PATCH merges the
// given attributes into the stored resource like Keystone does.
type fakeKeystone struct {
	mu        sync.Mutex
	resources map[string]map[string]any
	writes    []string
}

func newFakeKeystone(t *testing.T) (*fakeKeystone, APIFactory) {
	k := &fakeKeystone{resources: map[string]map[string]any{}}
	srv := httptest.NewServer(k)
	t.Cleanup(srv.Close)

	client := &gophercloud.ServiceClient{
		ProviderClient: &gophercloud.ProviderClient{TokenID: "token"},
		Endpoint:       srv.URL + "/v3/",
	}
	return k, func(context.Context, openstack.Credentials) (API, error) {
		return NewIdentityAPI(client), nil
	}
}

func (k *fakeKeystone) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	k.mu.Lock()
	defer k.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/v3/OS-FEDERATION/")
	if r.Method != http.MethodGet {
		k.writes = append(k.writes, r.Method+" "+key)
	}
	w.Header().Set("Content-Type", "application/json")

	var body map[string]map[string]any
	if b, _ := io.ReadAll(r.Body); len(b) > 0 {
		_ = json.Unmarshal(b, &body)
	}

	stored, ok := k.resources[key]
	switch {
	case !ok && r.Method != http.MethodPut:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"code":404}}`)
		return
	case r.Method == http.MethodDelete:
		delete(k.resources, key)
		w.WriteHeader(http.StatusNoContent)
		return
	case r.Method == http.MethodPut:
		stored = map[string]any{"id": path.Base(key)}
		k.resources[key] = stored
		w.WriteHeader(http.StatusCreated)
	}
	for _, attrs := range body {
		for a, v := range attrs {
			stored[a] = v
		}
	}

	wrapper := map[string]string{
		"identity_providers": "identity_provider",
		"mappings":           "mapping",
		"service_providers":  "service_provider",
		"protocols":          "protocol",
	}[path.Base(path.Dir(key))]
	json.NewEncoder(w).Encode(map[string]any{wrapper: stored})
}

func (k *fakeKeystone) reset() { k.writes = nil }

func run(t *testing.T, m ansible.Module, doc string) gjson.Result {
	t.Helper()
	args, err := ansible.ParseArgs([]byte(doc))
	require.NoError(t, err)
	res, err := m.Run(context.Background(), args)
	require.NoError(t, err)
	out, err := res.JSON()
	require.NoError(t, err)
	return gjson.ParseBytes(out)
}

func TestIdentityProviderModule(t *testing.T) {
	k, factory := newFakeKeystone(t)
	m := IdentityProviderModule(factory)
	args := `{"cloud":"admin","identity_provider_id":"acme","remote_ids":["https://b.example","https://a.example"]}`

	out := run(t, m, args)
	require.True(t, out.Get("changed").Bool())
	require.Equal(t, "acme", out.Get("identity_provider.0").String())
	require.True(t, out.Get("identity_provider.1").Bool())
	require.Equal(t, []string{"PUT identity_providers/acme"}, k.writes)

	k.reset()
	out = run(t, m, `{"cloud":"admin","identity_provider_id":"acme","remote_ids":["https://a.example","https://b.example"]}`)
	require.False(t, out.Get("changed").Bool())
	require.Empty(t, k.writes)

	out = run(t, m, `{"cloud":"admin","identity_provider_id":"acme","enabled":false,"description":"Acme"}`)
	require.True(t, out.Get("changed").Bool())
	require.Equal(t, "Acme", out.Get("identity_provider.2").String())
	require.Equal(t, []string{"PATCH identity_providers/acme"}, k.writes)
	require.Len(t, k.resources["identity_providers/acme"]["remote_ids"], 2)
}

func TestIdentityProviderModuleAbsent(t *testing.T) {
	k, factory := newFakeKeystone(t)
	m := IdentityProviderModule(factory)

	out := run(t, m, `{"identity_provider_id":"acme","state":"absent"}`)
	require.False(t, out.Get("changed").Bool())

	run(t, m, `{"identity_provider_id":"acme"}`)
	k.reset()
	out = run(t, m, `{"identity_provider_id":"acme","state":"absent","_ansible_check_mode":true}`)
	require.True(t, out.Get("changed").Bool())
	require.Empty(t, k.writes)

	out = run(t, m, `{"identity_provider_id":"acme","state":"absent"}`)
	require.True(t, out.Get("changed").Bool())
	require.Equal(t, []string{"DELETE identity_providers/acme"}, k.writes)
	require.Empty(t, k.resources)
}

func TestMappingModule(t *testing.T) {
	k, factory := newFakeKeystone(t)
	m := MappingModule(factory)
	rules := `[{"local":[{"user":{"name":"{0}"}}],"remote":[{"type":"REMOTE_USER"}]}]`

	out := run(t, m, `{"mapping_id":"acme_map","rules":`+rules+`}`)
	require.True(t, out.Get("changed").Bool())
	require.Equal(t, "REMOTE_USER", out.Get("mapping.1.0.remote.0.type").String())

	k.reset()
	out = run(t, m, `{"mapping_id":"acme_map","rules":[{"remote":[{"type":"REMOTE_USER"}],"local":[{"user":{"name":"{0}"}}]}]}`)
	require.False(t, out.Get("changed").Bool())

	out = run(t, m, `{"mapping_id":"acme_map","rules":[{"local":[{"group":{"id":"g1"}}],"remote":[{"type":"REMOTE_USER"}]}]}`)
	require.True(t, out.Get("changed").Bool())
	require.Equal(t, []string{"PATCH mappings/acme_map"}, k.writes)
	require.Equal(t, "g1", out.Get("mapping.1.0.local.0.group.id").String())

	_, err := MappingModule(factory).Run(context.Background(), mustArgs(t, `{"mapping_id":"bad","rules":[{"remote":[{"kind":"x"}]}]}`))
	require.ErrorContains(t, err, "invalid module arguments")
}

func TestMappingModuleConnectionParams(t *testing.T) {
	var got openstack.Credentials
	_, factory := newFakeKeystone(t)
	m := MappingModule(func(ctx context.Context, creds openstack.Credentials) (API, error) {
		got = creds
		return factory(ctx, creds)
	})
	rules := `[{"local":[{"user":{"name":"{0}"}}],"remote":[{"type":"REMOTE_USER"}]}]`

	out := run(t, m, `{"mapping_id":"acme_map","rules":`+rules+`,
		"endpoint_type":"internal","cacert":"/etc/ssl/ca.pem","cert":"/etc/ssl/c.pem","key":"/etc/ssl/c.key",
		"api_timeout":30,"wait":true,"timeout":180,"availability_zone":"nova"}`)
	require.True(t, out.Get("changed").Bool())
	require.Equal(t, "internal", got.EndpointType)
	require.Equal(t, "/etc/ssl/ca.pem", got.CACert)
	require.Equal(t, "/etc/ssl/c.key", got.ClientKey)
	require.Equal(t, ansible.Int(30), got.APITimeout)
}

func mustArgs(t *testing.T, doc string) *ansible.Args {
	t.Helper()
	args, err := ansible.ParseArgs([]byte(doc))
	require.NoError(t, err)
	return args
}

func TestProtocolModule(t *testing.T) {
	k, factory := newFakeKeystone(t)
	m := ProtocolModule(factory)

	out := run(t, m, `{"protocol_id":"saml2","identity_provider":"acme","mapping":"acme_map"}`)
	require.True(t, out.Get("changed").Bool())
	require.Equal(t, `["saml2","acme","acme_map"]`, out.Get("protocol").Raw)

	out = run(t, m, `{"protocol_id":"saml2","identity_provider":"acme","mapping":"acme_map"}`)
	require.False(t, out.Get("changed").Bool())

	out = run(t, m, `{"protocol_id":"saml2","identity_provider":"acme","mapping":"other_map"}`)
	require.True(t, out.Get("changed").Bool())
	require.Equal(t, "other_map", k.resources["identity_providers/acme/protocols/saml2"]["mapping_id"])

	k.reset()
	out = run(t, m, `{"protocol_id":"saml2","identity_provider":"acme","mapping":"other_map","state":"absent"}`)
	require.True(t, out.Get("changed").Bool())
	require.Equal(t, []string{"DELETE identity_providers/acme/protocols/saml2"}, k.writes)
}

func TestServiceProviderModule(t *testing.T) {
	k, factory := newFakeKeystone(t)
	m := ServiceProviderModule(factory)
	args := `{"service_provider_id":"cloud2","service_provider_url":"https://cloud2.example/Shibboleth.sso/SAML2/ECP","service_provider_auth_url":"https://cloud2.example/v3/OS-FEDERATION/identity_providers/acme/protocols/saml2/auth"}`

	out := run(t, m, args)
	require.True(t, out.Get("changed").Bool())
	require.Equal(t, "https://cloud2.example/Shibboleth.sso/SAML2/ECP", out.Get("service_provider.1").String())

	out = run(t, m, args)
	require.False(t, out.Get("changed").Bool())

	k.reset()
	out = run(t, m, `{"service_provider_id":"cloud2","service_provider_url":"https://cloud2.example/Shibboleth.sso/SAML2/ECP","service_provider_auth_url":"https://cloud2.example/v3/OS-FEDERATION/identity_providers/acme/protocols/saml2/auth","state":"absent"}`)
	require.True(t, out.Get("changed").Bool())
	require.Equal(t, []string{"DELETE service_providers/cloud2"}, k.writes)

	out = run(t, m, `{"service_provider_id":"cloud2","service_provider_url":"https://x.example","service_provider_auth_url":"https://x.example","state":"absent"}`)
	require.False(t, out.Get("changed").Bool())
}
