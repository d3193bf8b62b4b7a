package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
	"github.com/sovrn-labs/trustedserver/internal/gatewayerr"
)

// LoadSettings decodes the TOML-shaped domain configuration (publisher
// origin, synthetic ID scheme, auction providers, vendor integrations) from
// path. Loading is intentionally thin: a struct decode plus Validate, no
// hot-reload or layered source merging.
func LoadSettings(path string) (*gateway.Settings, error) {
	var settings gateway.Settings
	if _, err := toml.DecodeFile(path, &settings); err != nil {
		return nil, fmt.Errorf("config: decode settings %s: %w", path, err)
	}
	settings.Publisher.Normalize()

	if err := settings.Validate(); err != nil {
		return nil, gatewayerr.ConfigInvalid(err)
	}
	return &settings, nil
}
