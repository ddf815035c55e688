// Package filters holds the Jinja filters used by the deployment playbooks.
// Each filter takes its arguments as one JSON object and returns a JSON value.
package filters

import (
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/blueboxgroup/ursula/internal/generics"
)

// Filter evaluates a filter against its named arguments.
type Filter func(args gjson.Result) (any, error)

var registry = map[string]Filter{
	"sensu_dependencies": func(a gjson.Result) (any, error) {
		return SensuDependencies(a.Get("check_name").String(), a.Get("hostvars"), a.Get("host_groups"), a.Get("check_groups").String())
	},
	"ursula_controller_ips": func(a gjson.Result) (any, error) {
		return ControllerIPs(a.Get("hostvars"), a.Get("groups"), controllerGroup(a))
	},
	"ursula_memcache_hosts": func(a gjson.Result) (any, error) {
		return MemcacheHosts(a.Get("hostvars"), a.Get("groups"), a.Get("memcache_port").String(), controllerGroup(a))
	},
	"ursula_package_path": func(a gjson.Result) (any, error) {
		return PackagePath(a.Get("project").String(), a.Get("version").String()), nil
	},
	"remove_vlan_tag": func(a gjson.Result) (any, error) {
		return RemoveVlanTag(a.Get("interface").String()), nil
	},
	"net_physical_devices": func(a gjson.Result) (any, error) {
		return NetPhysicalDevices(a.Get("interface")), nil
	},
}

func controllerGroup(a gjson.Result) string {
	if g := a.Get("controller_name"); g.Exists() {
		return g.String()
	}
	return "controller"
}

// Names returns the registered filter names in order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Apply runs the named filter on the JSON encoded arguments and returns the
// JSON encoded result.
func Apply(name string, input []byte) ([]byte, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown filter %q", name)
	}
	if !gjson.ValidBytes(input) {
		return nil, fmt.Errorf("filter %s: arguments are not valid JSON", name)
	}
	out, err := f(gjson.ParseBytes(input))
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", name, err)
	}
	return json.Marshal(out)
}

// key looks up an object member by its literal name; host names contain dots
// which gjson paths would split on.
func key(r gjson.Result, name string) gjson.Result {
	return r.Map()[name]
}

// SensuDependencies returns the sorted "<client>/<check>" dependencies of a
// check on every host of the listed groups. The client name is
// <host>.<ansible_domain>-<stack_env> unless monitoring.client_name is set.
func SensuDependencies(checkName string, hostvars, hostGroups gjson.Result, checkGroups string) ([]string, error) {
	var deps []string
	for _, group := range strings.Split(checkGroups, ",") {
		hosts := key(hostGroups, group)
		if !hosts.Exists() {
			continue
		}
		for _, h := range hosts.Array() {
			host := h.String()
			vars := key(hostvars, host)
			if !vars.Exists() {
				return nil, fmt.Errorf("no hostvars for %s", host)
			}
			client := fmt.Sprintf("%s.%s-%s", host, vars.Get("ansible_domain").String(), vars.Get("stack_env").String())
			if name := vars.Get("monitoring.client_name"); name.Exists() {
				client = name.String()
			}
			deps = append(deps, client+"/"+checkName)
		}
	}
	return generics.SortedSet(deps), nil
}

// ControllerIPs returns the sorted IPv4 addresses of the primary interfaces
// of the controller group.
func ControllerIPs(hostvars, groups gjson.Result, controllerGroup string) ([]string, error) {
	hosts := key(groups, controllerGroup)
	if !hosts.Exists() {
		return nil, fmt.Errorf("no group named %s", controllerGroup)
	}
	var ips []string
	for _, h := range hosts.Array() {
		vars := key(hostvars, h.String())
		iface := vars.Get("primary_interface").String()
		ip := key(vars, iface).Get("ipv4.address")
		if !ip.Exists() {
			return nil, fmt.Errorf("host %s has no ipv4 address on %q", h.String(), iface)
		}
		ips = append(ips, ip.String())
	}
	return generics.SortedSet(ips), nil
}

// MemcacheHosts returns "ip:port" of every controller, comma separated.
func MemcacheHosts(hostvars, groups gjson.Result, port, controllerGroup string) (string, error) {
	ips, err := ControllerIPs(hostvars, groups, controllerGroup)
	if err != nil {
		return "", err
	}
	hosts := make([]string, 0, len(ips))
	for _, ip := range ips {
		hosts = append(hosts, ip+":"+port)
	}
	return strings.Join(hosts, ","), nil
}

func PackagePath(project, version string) string {
	return path.Join("/opt/bbc", "openstack-"+version, project)
}

// RemoveVlanTag strips the ".<vlan>" suffix of an interface name.
func RemoveVlanTag(iface string) string {
	name, _, _ := strings.Cut(iface, ".")
	return name
}

// NetPhysicalDevices returns the bond slaves of an interface definition, or
// its device.
func NetPhysicalDevices(iface gjson.Result) []string {
	devices := []string{}
	switch {
	case iface.Get("slaves").Exists():
		for _, s := range iface.Get("slaves").Array() {
			devices = append(devices, s.String())
		}
	case iface.Get("device").Exists():
		devices = append(devices, iface.Get("device").String())
	}
	return devices
}
