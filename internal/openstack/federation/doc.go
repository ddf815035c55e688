/*
Package federation manages the Keystone OS-FEDERATION resources gophercloud
has no package for: identity providers, protocols and service providers.
Mappings are served by gophercloud's identity/v3/federation package.

Example to create an identity provider

	enabled := true
	idp, err := federation.CreateIdentityProvider(ctx, identityClient, "acme", federation.IdentityProviderOpts{
		Enabled:   &enabled,
		RemoteIDs: []string{"https://idp.acme.example/saml2"},
	}).Extract()
	if err != nil {
		panic(err)
	}
*/
package federation
