package model

import (
	"fmt"
	"strings"
)

// Cluster is one remote host running a set of game server instances.
// Credentials may come from the config document or from KTP_* environment
// overrides applied at load time.
type Cluster struct {
	Name             string `yaml:"-"`
	Host             string `yaml:"host"`
	User             string `yaml:"user"`
	Password         string `yaml:"password"`
	Ports            []int  `yaml:"ports"`
	TestCluster      bool   `yaml:"test_cluster"`
	Hostname         string `yaml:"hostname"`
	ServerNamePrefix string `yaml:"server_name_prefix"`
	Description      string `yaml:"description"`
}

// HomeDir is the remote home directory that all instance directories,
// backups and configs live under.
func (c *Cluster) HomeDir() string {
	return "/home/" + c.User
}

// Instances derives one ServerInstance per configured port, in order.
func (c *Cluster) Instances() []ServerInstance {
	instances := make([]ServerInstance, 0, len(c.Ports))
	for i, port := range c.Ports {
		instances = append(instances, ServerInstance{Index: i + 1, Port: port})
	}
	return instances
}

// DisplayName returns the human-facing cluster name used when deriving
// server name prefixes.
func (c *Cluster) DisplayName() string {
	if c.Hostname != "" {
		return c.Hostname
	}
	return c.Name
}

// ServerInstance is one deployable unit inside a cluster, identified by its
// listening port. Index is 1-based.
type ServerInstance struct {
	Index int
	Port  int
}

// Dir is the instance directory name under the cluster home.
func (s ServerInstance) Dir() string {
	return fmt.Sprintf("dod-%d", s.Port)
}

// ExecName is the LinuxGSM executable name for this instance. The first
// instance has no numeric suffix.
func (s ServerInstance) ExecName() string {
	if s.Index == 1 {
		return "dodserver"
	}
	return fmt.Sprintf("dodserver%d", s.Index)
}

// ClientPort is the HLTV/client port derived from the game port.
func (s ServerInstance) ClientPort() int {
	return s.Port - 10
}

// ServerName builds the display name for this instance from a cluster prefix.
func (s ServerInstance) ServerName(prefix string) string {
	return fmt.Sprintf("%s #%d", prefix, s.Index)
}

// PathMapping maps one source artifact to a destination path relative to an
// instance directory. Chmod is an octal string like "755", empty to skip.
type PathMapping struct {
	Source string `yaml:"source"`
	Dest   string `yaml:"dest"`
	Chmod  string `yaml:"chmod"`
}

// Profile is a named bundle of template variables consumed by the renderer.
type Profile map[string]interface{}

// Title uppercases the first rune, matching how prefixes like
// "KTP Denver" are derived from the cluster name.
func Title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
