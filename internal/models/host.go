// internal/models/host.go

package models

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// HostEntry is one raw host record from the configuration file. Fields left
// empty here are filled from the defaults section during resolution.
type HostEntry struct {
	Host         string `yaml:"host"`
	User         string `yaml:"user"`
	Port         int    `yaml:"port"`
	KeyFilename  string `yaml:"key_filename"`
	Password     string `yaml:"password"`
	ProxyCommand string `yaml:"proxy_command"`
	ForwardAgent *bool  `yaml:"forward_agent"`
	Timeout      int    `yaml:"timeout"`
	Description  string `yaml:"description"`
}

// ProxyEntry is the shared jump host referenced by proxy_command templates.
type ProxyEntry struct {
	Host        string `yaml:"host"`
	User        string `yaml:"user"`
	Port        int    `yaml:"port"`
	KeyFilename string `yaml:"key_filename"`
	Password    string `yaml:"password"`
}

// StepEntry is one raw setup/teardown step from the configuration file.
// Wait is in seconds.
type StepEntry struct {
	Name       string `yaml:"name"`
	Target     string `yaml:"target"`
	Command    string `yaml:"command"`
	Session    string `yaml:"session"`
	Log        string `yaml:"log"`
	Wait       int    `yaml:"wait"`
	Critical   bool   `yaml:"critical"`
	Foreground bool   `yaml:"foreground"`
}

// ConfigFile mirrors the on-disk configuration document. Unrecognized keys
// are ignored by the YAML decoder.
type ConfigFile struct {
	Hosts      map[string]HostEntry `yaml:"hosts"`
	Defaults   HostEntry            `yaml:"defaults"`
	Proxy      *ProxyEntry          `yaml:"proxy"`
	KnownHosts string               `yaml:"known_hosts"`
	Setup      []StepEntry          `yaml:"setup"`
	Teardown   []StepEntry          `yaml:"teardown"`
}

// Hop is one intermediate endpoint on the way to a target host.
type Hop struct {
	Host        string
	User        string
	Port        int
	KeyFilename string
	Password    string
}

// Addr returns the dialable host:port address of the hop.
func (h Hop) Addr() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// ResolvedSpec is the fully merged, validated view of one host. It is never
// mutated after resolution; reloading the configuration produces new specs.
type ResolvedSpec struct {
	Name         string
	Host         string
	User         string
	Port         int
	KeyFilename  string
	Password     string
	ProxyCommand string
	Hops         []Hop
	ForwardAgent bool
	Timeout      time.Duration
	Description  string
	KnownHosts   string
}

// Addr returns the dialable host:port address of the target.
func (s ResolvedSpec) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ConnectionInfo returns the user@host:port identity used in results and logs.
func (s ResolvedSpec) ConnectionInfo() string {
	return fmt.Sprintf("%s@%s:%d", s.User, s.Host, s.Port)
}
