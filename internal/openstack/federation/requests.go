package federation

import (
	"context"

	"github.com/gophercloud/gophercloud/v2"
)

var (
	createCodes = &gophercloud.RequestOpts{OkCodes: []int{201}}
	updateCodes = &gophercloud.RequestOpts{OkCodes: []int{200}}
	deleteCodes = &gophercloud.RequestOpts{OkCodes: []int{204}}
)

// IdentityProviderOpts are the writable attributes of an identity provider.
type IdentityProviderOpts struct {
	Enabled     *bool    `json:"enabled,omitempty"`
	Description *string  `json:"description,omitempty"`
	RemoteIDs   []string `json:"remote_ids,omitempty"`
}

func (opts IdentityProviderOpts) ToIdentityProviderMap() (map[string]any, error) {
	return gophercloud.BuildRequestBody(opts, "identity_provider")
}

// ProtocolOpts are the writable attributes of a protocol.
type ProtocolOpts struct {
	MappingID string `json:"mapping_id" required:"true"`
}

func (opts ProtocolOpts) ToProtocolMap() (map[string]any, error) {
	return gophercloud.BuildRequestBody(opts, "protocol")
}

// ServiceProviderOpts are the writable attributes of a service provider.
type ServiceProviderOpts struct {
	AuthURL     string  `json:"auth_url,omitempty"`
	SPURL       string  `json:"sp_url,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (opts ServiceProviderOpts) ToServiceProviderMap() (map[string]any, error) {
	return gophercloud.BuildRequestBody(opts, "service_provider")
}

func GetIdentityProvider(ctx context.Context, client *gophercloud.ServiceClient, id string) (r IdentityProviderResult) {
	resp, err := client.Get(ctx, identityProviderURL(client, id), &r.Body, nil)
	_, r.Header, r.Err = gophercloud.ParseResponse(resp, err)
	return
}

func CreateIdentityProvider(ctx context.Context, client *gophercloud.ServiceClient, id string, opts IdentityProviderOpts) (r IdentityProviderResult) {
	b, err := opts.ToIdentityProviderMap()
	if err != nil {
		r.Err = err
		return
	}
	resp, err := client.Put(ctx, identityProviderURL(client, id), b, &r.Body, createCodes)
	_, r.Header, r.Err = gophercloud.ParseResponse(resp, err)
	return
}

func UpdateIdentityProvider(ctx context.Context, client *gophercloud.ServiceClient, id string, opts IdentityProviderOpts) (r IdentityProviderResult) {
	b, err := opts.ToIdentityProviderMap()
	if err != nil {
		r.Err = err
		return
	}
	resp, err := client.Patch(ctx, identityProviderURL(client, id), b, &r.Body, updateCodes)
	_, r.Header, r.Err = gophercloud.ParseResponse(resp, err)
	return
}

func DeleteIdentityProvider(ctx context.Context, client *gophercloud.ServiceClient, id string) (r DeleteResult) {
	resp, err := client.Delete(ctx, identityProviderURL(client, id), deleteCodes)
	_, r.Header, r.Err = gophercloud.ParseResponse(resp, err)
	return
}

func GetProtocol(ctx context.Context, client *gophercloud.ServiceClient, idpID, id string) (r ProtocolResult) {
	resp, err := client.Get(ctx, protocolURL(client, idpID, id), &r.Body, nil)
	_, r.Header, r.Err = gophercloud.ParseResponse(resp, err)
	return
}

func CreateProtocol(ctx context.Context, client *gophercloud.ServiceClient, idpID, id string, opts ProtocolOpts) (r ProtocolResult) {
	b, err := opts.ToProtocolMap()
	if err != nil {
		r.Err = err
		return
	}
	resp, err := client.Put(ctx, protocolURL(client, idpID, id), b, &r.Body, createCodes)
	_, r.Header, r.Err = gophercloud.ParseResponse(resp, err)
	return
}

func UpdateProtocol(ctx context.Context, client *gophercloud.ServiceClient, idpID, id string, opts ProtocolOpts) (r ProtocolResult) {
	b, err := opts.ToProtocolMap()
	if err != nil {
		r.Err = err
		return
	}
	resp, err := client.Patch(ctx, protocolURL(client, idpID, id), b, &r.Body, updateCodes)
	_, r.Header, r.Err = gophercloud.ParseResponse(resp, err)
	return
}

func DeleteProtocol(ctx context.Context, client *gophercloud.ServiceClient, idpID, id string) (r DeleteResult) {
	resp, err := client.Delete(ctx, protocolURL(client, idpID, id), deleteCodes)
	_, r.Header, r.Err = gophercloud.ParseResponse(resp, err)
	return
}

func GetServiceProvider(ctx context.Context, client *gophercloud.ServiceClient, id string) (r ServiceProviderResult) {
	resp, err := client.Get(ctx, serviceProviderURL(client, id), &r.Body, nil)
	_, r.Header, r.Err = gophercloud.ParseResponse(resp, err)
	return
}

func CreateServiceProvider(ctx context.Context, client *gophercloud.ServiceClient, id string, opts ServiceProviderOpts) (r ServiceProviderResult) {
	b, err := opts.ToServiceProviderMap()
	if err != nil {
		r.Err = err
		return
	}
	resp, err := client.Put(ctx, serviceProviderURL(client, id), b, &r.Body, createCodes)
	_, r.Header, r.Err = gophercloud.ParseResponse(resp, err)
	return
}

func UpdateServiceProvider(ctx context.Context, client *gophercloud.ServiceClient, id string, opts ServiceProviderOpts) (r ServiceProviderResult) {
	b, err := opts.ToServiceProviderMap()
	if err != nil {
		r.Err = err
		return
	}
	resp, err := client.Patch(ctx, serviceProviderURL(client, id), b, &r.Body, updateCodes)
	_, r.Header, r.Err = gophercloud.ParseResponse(resp, err)
	return
}

func DeleteServiceProvider(ctx context.Context, client *gophercloud.ServiceClient, id string) (r DeleteResult) {
	resp, err := client.Delete(ctx, serviceProviderURL(client, id), deleteCodes)
	_, r.Header, r.Err = gophercloud.ParseResponse(resp, err)
	return
}
