// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"hostman/internal/apperr"
	"hostman/internal/models"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFileName = "hosts_config.yaml"
	// DefaultTimeout applies when neither the host entry nor the defaults
	// section sets one.
	DefaultTimeout = 30 * time.Second
)

// Manager loads the host configuration document and resolves it into
// immutable per-host connection specs. Resolution happens once at Load;
// everything handed out afterwards is read-only.
type Manager struct {
	configPath string
	specs      map[string]models.ResolvedSpec
	proxy      *models.ProxyEntry
	setup      []models.Step
	teardown   []models.Step
}

func NewManager(configPath string) *Manager {
	if configPath == "" {
		configPath = DefaultConfigFileName
	}
	return &Manager{configPath: configPath}
}

// Load reads and parses the configuration file and resolves every host
// entry. It performs no network I/O. Loading the same file twice yields
// structurally equal specs.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", m.configPath, err)
	}

	var file models.ConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", m.configPath, err)
	}

	specs, err := Resolve(&file)
	if err != nil {
		return err
	}

	m.specs = specs
	m.proxy = file.Proxy
	m.setup = convertSteps(file.Setup)
	m.teardown = convertSteps(file.Teardown)
	return nil
}

// Resolve merges every host entry with the defaults section, substitutes the
// shared proxy into proxy_command hop chains and validates required fields.
// It is a pure function of the parsed document.
func Resolve(file *models.ConfigFile) (map[string]models.ResolvedSpec, error) {
	specs := make(map[string]models.ResolvedSpec, len(file.Hosts))
	for name, entry := range file.Hosts {
		spec, err := resolveHost(name, entry, file)
		if err != nil {
			return nil, err
		}
		specs[name] = spec
	}
	return specs, nil
}

func resolveHost(name string, entry models.HostEntry, file *models.ConfigFile) (models.ResolvedSpec, error) {
	merged := mergeEntry(entry, file.Defaults)

	if merged.Host == "" {
		return models.ResolvedSpec{}, apperr.Config(name, "host", "missing required field")
	}
	if merged.User == "" {
		return models.ResolvedSpec{}, apperr.Config(name, "user", "missing required field")
	}
	if merged.Port == 0 {
		return models.ResolvedSpec{}, apperr.Config(name, "port", "missing required field")
	}
	if merged.KeyFilename == "" && merged.Password == "" {
		return models.ResolvedSpec{}, apperr.Config(name, "key_filename", "missing credential")
	}

	timeout := DefaultTimeout
	if merged.Timeout > 0 {
		timeout = time.Duration(merged.Timeout) * time.Second
	}

	forwardAgent := false
	if merged.ForwardAgent != nil {
		forwardAgent = *merged.ForwardAgent
	}

	spec := models.ResolvedSpec{
		Name:         name,
		Host:         merged.Host,
		User:         merged.User,
		Port:         merged.Port,
		KeyFilename:  ExpandUser(merged.KeyFilename),
		Password:     merged.Password,
		ForwardAgent: forwardAgent,
		Timeout:      timeout,
		Description:  merged.Description,
		KnownHosts:   ExpandUser(file.KnownHosts),
	}

	if merged.ProxyCommand != "" {
		if file.Proxy == nil || file.Proxy.Host == "" {
			return models.ResolvedSpec{}, apperr.Config(name, "proxy", "proxy_command set but no proxy section configured")
		}
		spec.ProxyCommand = expandPlaceholders(merged.ProxyCommand, merged.Host, merged.Port)
		spec.Hops = []models.Hop{proxyHop(file.Proxy)}
	}

	return spec, nil
}

// mergeEntry fills any field entry leaves empty from the defaults section.
// The merge is field-wise, so disjoint entries compose in either order.
func mergeEntry(entry, defaults models.HostEntry) models.HostEntry {
	if entry.Host == "" {
		entry.Host = defaults.Host
	}
	if entry.User == "" {
		entry.User = defaults.User
	}
	if entry.Port == 0 {
		entry.Port = defaults.Port
	}
	if entry.KeyFilename == "" {
		entry.KeyFilename = defaults.KeyFilename
	}
	if entry.Password == "" {
		entry.Password = defaults.Password
	}
	if entry.ProxyCommand == "" {
		entry.ProxyCommand = defaults.ProxyCommand
	}
	if entry.ForwardAgent == nil {
		entry.ForwardAgent = defaults.ForwardAgent
	}
	if entry.Timeout == 0 {
		entry.Timeout = defaults.Timeout
	}
	if entry.Description == "" {
		entry.Description = defaults.Description
	}
	return entry
}

func proxyHop(proxy *models.ProxyEntry) models.Hop {
	port := proxy.Port
	if port == 0 {
		port = 22
	}
	return models.Hop{
		Host:        proxy.Host,
		User:        proxy.User,
		Port:        port,
		KeyFilename: ExpandUser(proxy.KeyFilename),
		Password:    proxy.Password,
	}
}

// expandPlaceholders substitutes the OpenSSH-style %h/%p placeholders in a
// proxy_command template with the target's host and port.
func expandPlaceholders(template, host string, port int) string {
	out := strings.ReplaceAll(template, "%h", host)
	out = strings.ReplaceAll(out, "%p", strconv.Itoa(port))
	return strings.ReplaceAll(out, "%%", "%")
}

// ExpandUser resolves a leading ~ against the current user's home directory.
func ExpandUser(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func convertSteps(entries []models.StepEntry) []models.Step {
	if len(entries) == 0 {
		return nil
	}
	steps := make([]models.Step, 0, len(entries))
	for _, e := range entries {
		steps = append(steps, models.Step{
			Name:       e.Name,
			Target:     e.Target,
			Command:    e.Command,
			Session:    e.Session,
			LogPath:    e.Log,
			Wait:       time.Duration(e.Wait) * time.Second,
			Critical:   e.Critical,
			Foreground: e.Foreground,
		})
	}
	return steps
}

// Specs returns the resolved host map. Callers must treat it as read-only.
func (m *Manager) Specs() map[string]models.ResolvedSpec {
	return m.specs
}

// Spec looks up one host by name.
func (m *Manager) Spec(name string) (models.ResolvedSpec, error) {
	spec, ok := m.specs[name]
	if !ok {
		return models.ResolvedSpec{}, apperr.Config(name, "", "host not found in configuration")
	}
	return spec, nil
}

// HostNames returns all configured host names in sorted order.
func (m *Manager) HostNames() []string {
	names := make([]string, 0, len(m.specs))
	for name := range m.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetupSteps returns the setup sequence declared in the config file, if any.
func (m *Manager) SetupSteps() []models.Step {
	return m.setup
}

// TeardownSteps returns the teardown sequence declared in the config file.
func (m *Manager) TeardownSteps() []models.Step {
	return m.teardown
}
