package federation

import "github.com/gophercloud/gophercloud/v2"

const rootPath = "OS-FEDERATION"

func identityProviderURL(c *gophercloud.ServiceClient, id string) string {
	return c.ServiceURL(rootPath, "identity_providers", id)
}

func protocolURL(c *gophercloud.ServiceClient, idpID, id string) string {
	return c.ServiceURL(rootPath, "identity_providers", idpID, "protocols", id)
}

func serviceProviderURL(c *gophercloud.ServiceClient, id string) string {
	return c.ServiceURL(rootPath, "service_providers", id)
}
