package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// CalDAVProvider is one CalDAV server calendars can be mirrored from.
type CalDAVProvider struct {
	ServerURL string `toml:"server_url"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

type GoogleProvider struct {
	// CredentialsFile is a service-account key in JSON form.
	CredentialsFile string `toml:"credentials_file"`
}

// Providers lists the remote calendar services available for mirroring.
type Providers struct {
	CalDAV map[string]CalDAVProvider `toml:"caldav"`
	Google *GoogleProvider           `toml:"google"`
}

// LoadProviders reads a providers TOML file. A relative credentials_file is
// resolved against the file's directory.
func LoadProviders(filename string) (*Providers, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file: %w", err)
	}

	var p Providers
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse providers file: %w", err)
	}

	for name, dav := range p.CalDAV {
		if dav.ServerURL == "" {
			return nil, fmt.Errorf("caldav.%s: server_url is required", name)
		}
	}
	if p.Google != nil {
		if p.Google.CredentialsFile == "" {
			return nil, fmt.Errorf("google: credentials_file is required")
		}
		if !filepath.IsAbs(p.Google.CredentialsFile) {
			p.Google.CredentialsFile = filepath.Join(filepath.Dir(filename), p.Google.CredentialsFile)
		}
	}

	return &p, nil
}
