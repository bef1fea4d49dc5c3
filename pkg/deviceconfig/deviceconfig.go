// Package deviceconfig loads WialonIPS device identity/network parameters
// and the server-side credential registry from INI files.
package deviceconfig

import (
	"fmt"

	"github.com/wialon/wips-endpoint/pkg/observer"
	"gopkg.in/ini.v1"
)

// Config is the device's identity and network configuration.
type Config struct {
	Version  string
	IMEI     string
	Password string
	Host     string
	Port     string
}

// Load reads a device configuration from an INI file's [device] section.
// ver defaults to "2.0" when absent.
func Load(path string) (Config, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("deviceconfig: load %s: %w", path, err)
	}
	sec := cfg.Section("device")
	out := Config{
		Version:  sec.Key("ver").MustString("2.0"),
		IMEI:     sec.Key("imei").String(),
		Password: sec.Key("password").String(),
		Host:     sec.Key("host").String(),
		Port:     sec.Key("port").String(),
	}
	return out, nil
}

// ObserverConfig adapts Config to observer.Config (the same keyed-lookup
// interface so the protocol codec need not distinguish auth params from
// any other named param).
func (c Config) ObserverConfig() observer.Config {
	return observer.Config{
		Version:  c.Version,
		IMEI:     c.IMEI,
		Password: c.Password,
		Host:     c.Host,
		Port:     c.Port,
	}
}

// Credential is one server-side registry entry: an IMEI's expected
// password.
type Credential struct {
	Password string
}

// Registry is the server-side IMEI -> Credential lookup table.
type Registry struct {
	entries map[string]Credential
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]Credential{}}
}

// LoadRegistry reads a server-side IMEI registry from an INI file where
// each section name is an IMEI and its "password" key is the expected
// credential.
func LoadRegistry(path string) (*Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("deviceconfig: load registry %s: %w", path, err)
	}
	r := NewRegistry()
	for _, sec := range cfg.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		r.entries[sec.Name()] = Credential{Password: sec.Key("password").String()}
	}
	return r, nil
}

var errAlreadyRegistered = fmt.Errorf("deviceconfig: device already registered")

// Register adds a new IMEI/credential pair.
func (r *Registry) Register(imei string, cred Credential) error {
	if _, exists := r.entries[imei]; exists {
		return fmt.Errorf("%w: %s", errAlreadyRegistered, imei)
	}
	r.entries[imei] = cred
	return nil
}

// Unregister removes an IMEI from the registry.
func (r *Registry) Unregister(imei string) error {
	if _, exists := r.entries[imei]; !exists {
		return fmt.Errorf("deviceconfig: device not registered: %s", imei)
	}
	delete(r.entries, imei)
	return nil
}

// Lookup returns the credential for imei, if registered.
func (r *Registry) Lookup(imei string) (Credential, bool) {
	cred, ok := r.entries[imei]
	return cred, ok
}
