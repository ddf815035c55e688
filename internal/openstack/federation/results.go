package federation

import "github.com/gophercloud/gophercloud/v2"

type IdentityProvider struct {
	ID          string   `json:"id"`
	Enabled     bool     `json:"enabled"`
	Description string   `json:"description"`
	RemoteIDs   []string `json:"remote_ids"`
	DomainID    string   `json:"domain_id,omitempty"`
}

type Protocol struct {
	ID        string `json:"id"`
	MappingID string `json:"mapping_id"`
}

type ServiceProvider struct {
	ID               string `json:"id"`
	AuthURL          string `json:"auth_url"`
	SPURL            string `json:"sp_url"`
	Enabled          bool   `json:"enabled"`
	Description      string `json:"description"`
	RelayStatePrefix string `json:"relay_state_prefix,omitempty"`
}

type IdentityProviderResult struct {
	gophercloud.Result
}

func (r IdentityProviderResult) Extract() (*IdentityProvider, error) {
	var s struct {
		IdentityProvider *IdentityProvider `json:"identity_provider"`
	}
	err := r.ExtractInto(&s)
	return s.IdentityProvider, err
}

type ProtocolResult struct {
	gophercloud.Result
}

func (r ProtocolResult) Extract() (*Protocol, error) {
	var s struct {
		Protocol *Protocol `json:"protocol"`
	}
	err := r.ExtractInto(&s)
	return s.Protocol, err
}

type ServiceProviderResult struct {
	gophercloud.Result
}

func (r ServiceProviderResult) Extract() (*ServiceProvider, error) {
	var s struct {
		ServiceProvider *ServiceProvider `json:"service_provider"`
	}
	err := r.ExtractInto(&s)
	return s.ServiceProvider, err
}

type DeleteResult struct {
	gophercloud.ErrResult
}
