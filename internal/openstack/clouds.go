package openstack

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/blueboxgroup/ursula/internal/envs"
)

// Cloud is one entry of clouds.yaml.
type Cloud struct {
	Auth       AuthParams `yaml:"auth"`
	AuthType   string     `yaml:"auth_type"`
	RegionName string     `yaml:"region_name"`
	Interface  string     `yaml:"interface"`
	Verify     *bool      `yaml:"verify"`
	CACert     string     `yaml:"cacert"`
	Cert       string     `yaml:"cert"`
	Key        string     `yaml:"key"`
}

type cloudsFile struct {
	Clouds map[string]Cloud `yaml:"clouds"`
}

// CloudsFiles lists the locations searched for clouds.yaml, in order.
func CloudsFiles() []string {
	var files []string
	if envs.CloudsFile != "" {
		files = append(files, envs.CloudsFile)
	}
	files = append(files, "clouds.yaml")
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".config", "openstack", "clouds.yaml"))
	}
	return append(files, "/etc/openstack/clouds.yaml")
}

// LoadCloud looks name up in the first clouds.yaml found.
func LoadCloud(name string) (Cloud, error) {
	for _, path := range CloudsFiles() {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Cloud{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return ParseCloud(data, name)
	}
	return Cloud{}, fmt.Errorf("cloud %q requested but no clouds.yaml found", name)
}

// ParseCloud decodes a clouds.yaml document and returns the named entry.
func ParseCloud(data []byte, name string) (Cloud, error) {
	var f cloudsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Cloud{}, fmt.Errorf("failed to parse clouds.yaml: %w", err)
	}
	cloud, ok := f.Clouds[name]
	if !ok {
		return Cloud{}, fmt.Errorf("cloud %q not found in clouds.yaml", name)
	}
	return cloud, nil
}
