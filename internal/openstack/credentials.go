// Package openstack resolves the credentials passed to a module and builds
// authenticated gophercloud service clients from them.
package openstack

import (
	"errors"
	"fmt"
	"time"

	"github.com/gophercloud/gophercloud/v2"

	"github.com/blueboxgroup/ursula/internal/ansible"
)

// Credentials are the connection parameters shared by every OpenStack module.
// They are embedded into the module parameter structs.
type Credentials struct {
	Cloud         string        `json:"cloud"`
	Auth          *AuthParams   `json:"auth"`
	AuthType      string        `json:"auth_type" validate:"omitempty,oneof=password v3password token v3token v3applicationcredential"`
	RegionName    string        `json:"region_name"`
	Interface     string        `json:"interface" validate:"omitempty,oneof=public internal admin"`
	EndpointType  string        `json:"endpoint_type" validate:"omitempty,oneof=public internal admin"`
	ValidateCerts *ansible.Bool `json:"validate_certs"`
	CACert        string        `json:"cacert"`
	ClientCert    string        `json:"cert"`
	ClientKey     string        `json:"key"`
	APITimeout    ansible.Int   `json:"api_timeout" validate:"min=0"`

	AvailabilityZone string `json:"availability_zone"`
	// Wait and Timeout are accepted for playbook compatibility; every call
	// here is synchronous.
	Wait    *ansible.Bool `json:"wait"`
	Timeout *ansible.Int  `json:"timeout"`

	LoginUsername   string       `json:"login_username"`
	LoginPassword   string       `json:"login_password"`
	LoginTenantName string       `json:"login_tenant_name"`
	LoginTenantID   string       `json:"login_tenant_id"`
	AuthURL         string       `json:"auth_url"`
	Insecure        ansible.Bool `json:"insecure"`
}

// AuthParams is the `auth` dictionary, with the keys clouds.yaml uses.
type AuthParams struct {
	AuthURL                     string `json:"auth_url" yaml:"auth_url"`
	Username                    string `json:"username" yaml:"username"`
	UserID                      string `json:"user_id" yaml:"user_id"`
	Password                    string `json:"password" yaml:"password"`
	Token                       string `json:"token" yaml:"token"`
	ProjectName                 string `json:"project_name" yaml:"project_name"`
	ProjectID                   string `json:"project_id" yaml:"project_id"`
	TenantName                  string `json:"tenant_name" yaml:"tenant_name"`
	UserDomainName              string `json:"user_domain_name" yaml:"user_domain_name"`
	UserDomainID                string `json:"user_domain_id" yaml:"user_domain_id"`
	ProjectDomainName           string `json:"project_domain_name" yaml:"project_domain_name"`
	ProjectDomainID             string `json:"project_domain_id" yaml:"project_domain_id"`
	DomainName                  string `json:"domain_name" yaml:"domain_name"`
	DomainID                    string `json:"domain_id" yaml:"domain_id"`
	ApplicationCredentialID     string `json:"application_credential_id" yaml:"application_credential_id"`
	ApplicationCredentialName   string `json:"application_credential_name" yaml:"application_credential_name"`
	ApplicationCredentialSecret string `json:"application_credential_secret" yaml:"application_credential_secret"`
}

// ErrNoCredentials is returned when neither parameters, clouds.yaml nor the
// environment provide an auth URL.
var ErrNoCredentials = errors.New("no OpenStack credentials: set cloud, auth, auth_url or the OS_* environment")

// Config is a resolved connection.
type Config struct {
	AuthOptions  gophercloud.AuthOptions
	Region       string
	Availability gophercloud.Availability
	Insecure     bool
	CACert       string
	ClientCert   string
	ClientKey    string
	// Timeout bounds every API request, 0 means none.
	Timeout time.Duration
}

// Endpoint returns the options used to pick service endpoints from the catalog.
func (c Config) Endpoint() gophercloud.EndpointOpts {
	return gophercloud.EndpointOpts{Region: c.Region, Availability: c.Availability}
}

// Resolve turns the module parameters into a connection config. Precedence:
// the named cloud from clouds.yaml, overlaid by the `auth` dictionary, then
// the legacy login_* parameters, and the OS_* environment when none is given.
func (c Credentials) Resolve(envOptions func() (gophercloud.AuthOptions, error)) (Config, error) {
	var (
		auth AuthParams
		cfg  Config
		err  error
	)
	region, iface := c.RegionName, firstNonEmpty(c.Interface, c.EndpointType)
	cfg.CACert, cfg.ClientCert, cfg.ClientKey = c.CACert, c.ClientCert, c.ClientKey

	if c.Cloud != "" {
		cloud, err := LoadCloud(c.Cloud)
		if err != nil {
			return Config{}, err
		}
		auth = cloud.Auth
		if region == "" {
			region = cloud.RegionName
		}
		if iface == "" {
			iface = cloud.Interface
		}
		if cloud.Verify != nil && !*cloud.Verify {
			cfg.Insecure = true
		}
		cfg.CACert = firstNonEmpty(cfg.CACert, cloud.CACert)
		cfg.ClientCert = firstNonEmpty(cfg.ClientCert, cloud.Cert)
		cfg.ClientKey = firstNonEmpty(cfg.ClientKey, cloud.Key)
	}
	if c.Auth != nil {
		auth = mergeAuth(auth, *c.Auth)
	}
	if c.AuthURL != "" {
		auth = mergeAuth(auth, AuthParams{
			AuthURL:    c.AuthURL,
			Username:   c.LoginUsername,
			Password:   c.LoginPassword,
			TenantName: c.LoginTenantName,
			ProjectID:  c.LoginTenantID,
		})
	}

	if auth.AuthURL == "" {
		if envOptions == nil {
			return Config{}, ErrNoCredentials
		}
		cfg.AuthOptions, err = envOptions()
		if err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrNoCredentials, err)
		}
	} else {
		cfg.AuthOptions = auth.authOptions()
	}
	cfg.AuthOptions.AllowReauth = true

	cfg.Region = region
	if cfg.Availability, err = availability(iface); err != nil {
		return Config{}, err
	}
	if cfg.ClientCert != "" && cfg.ClientKey == "" || cfg.ClientCert == "" && cfg.ClientKey != "" {
		return Config{}, errors.New("cert and key must be given together")
	}
	cfg.Timeout = time.Duration(c.APITimeout) * time.Second
	if bool(c.Insecure) || (c.ValidateCerts != nil && !bool(*c.ValidateCerts)) {
		cfg.Insecure = true
	}
	return cfg, nil
}

func (a AuthParams) authOptions() gophercloud.AuthOptions {
	opts := gophercloud.AuthOptions{
		IdentityEndpoint:            a.AuthURL,
		Username:                    a.Username,
		UserID:                      a.UserID,
		Password:                    a.Password,
		TokenID:                     a.Token,
		ApplicationCredentialID:     a.ApplicationCredentialID,
		ApplicationCredentialName:   a.ApplicationCredentialName,
		ApplicationCredentialSecret: a.ApplicationCredentialSecret,
		DomainName:                  firstNonEmpty(a.UserDomainName, a.DomainName),
		DomainID:                    firstNonEmpty(a.UserDomainID, a.DomainID),
	}

	project := firstNonEmpty(a.ProjectName, a.TenantName)
	switch {
	case a.ProjectID != "":
		opts.Scope = &gophercloud.AuthScope{ProjectID: a.ProjectID}
	case project != "":
		opts.Scope = &gophercloud.AuthScope{
			ProjectName: project,
			DomainName:  firstNonEmpty(a.ProjectDomainName, a.DomainName),
			DomainID:    firstNonEmpty(a.ProjectDomainID, a.DomainID),
		}
		if opts.Scope.DomainName == "" && opts.Scope.DomainID == "" {
			opts.Scope.DomainID = "default"
		}
	}
	if opts.DomainName == "" && opts.DomainID == "" && opts.Username != "" {
		opts.DomainID = "default"
	}
	return opts
}

func availability(iface string) (gophercloud.Availability, error) {
	switch iface {
	case "", "public", "publicURL":
		return gophercloud.AvailabilityPublic, nil
	case "internal", "internalURL":
		return gophercloud.AvailabilityInternal, nil
	case "admin", "adminURL":
		return gophercloud.AvailabilityAdmin, nil
	}
	return "", fmt.Errorf("unknown endpoint interface %q", iface)
}

// mergeAuth overlays the non-empty fields of over onto base.
func mergeAuth(base, over AuthParams) AuthParams {
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&base.AuthURL, over.AuthURL)
	pick(&base.Username, over.Username)
	pick(&base.UserID, over.UserID)
	pick(&base.Password, over.Password)
	pick(&base.Token, over.Token)
	pick(&base.ProjectName, over.ProjectName)
	pick(&base.ProjectID, over.ProjectID)
	pick(&base.TenantName, over.TenantName)
	pick(&base.UserDomainName, over.UserDomainName)
	pick(&base.UserDomainID, over.UserDomainID)
	pick(&base.ProjectDomainName, over.ProjectDomainName)
	pick(&base.ProjectDomainID, over.ProjectDomainID)
	pick(&base.DomainName, over.DomainName)
	pick(&base.DomainID, over.DomainID)
	pick(&base.ApplicationCredentialID, over.ApplicationCredentialID)
	pick(&base.ApplicationCredentialName, over.ApplicationCredentialName)
	pick(&base.ApplicationCredentialSecret, over.ApplicationCredentialSecret)
	return base
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
