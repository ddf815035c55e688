package main

import (
	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/command"
	"github.com/blueboxgroup/ursula/internal/fileutils"
	"github.com/blueboxgroup/ursula/services/modules/internal/ceph"
	"github.com/blueboxgroup/ursula/services/modules/internal/cinder"
	"github.com/blueboxgroup/ursula/services/modules/internal/keystone"
	"github.com/blueboxgroup/ursula/services/modules/internal/neutron"
	"github.com/blueboxgroup/ursula/services/modules/internal/nova"
	"github.com/blueboxgroup/ursula/services/modules/internal/ovs"
	"github.com/blueboxgroup/ursula/services/modules/internal/sensu"
	"github.com/blueboxgroup/ursula/services/modules/internal/swift"
	"github.com/blueboxgroup/ursula/services/modules/internal/systemd"
)

// modules returns every module of the binary wired to the host.
func modules(runner command.Runner, root fileutils.Root) *ansible.Registry {
	return ansible.NewRegistry(
		ceph.PoolModule(runner),
		ceph.BcacheModule(runner, root),
		cinder.VolumeGroupModule(runner, root),
		cinder.VolumeTypeModule(cinder.NewAPI),
		keystone.IdentityProviderModule(keystone.NewAPI),
		keystone.MappingModule(keystone.NewAPI),
		keystone.ProtocolModule(keystone.NewAPI),
		keystone.ServiceProviderModule(keystone.NewAPI),
		neutron.RouterGatewayModule(neutron.NewAPI),
		nova.HostAggregateModule(nova.NewAPI),
		nova.AggregateHostModule(nova.NewAPI),
		ovs.BridgeModule(runner),
		sensu.MetricsCheckModule(root),
		swift.DiskModule(runner, root),
		swift.RingModule(runner, root),
		systemd.ServiceModule(runner, root),
	)
}
