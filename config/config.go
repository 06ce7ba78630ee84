package config

import (
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes the environment overrides, e.g.
// SETTLEMENT_MYSQL_PASSWORD.
const EnvPrefix = "settlement"

// Defaulter is implemented by configs that fill unset values.
type Defaulter interface {
	SetDefaults()
}

// Load reads the yaml file at path into config, applies environment
// overrides for any `envconfig`-tagged fields, then defaults.
func Load(path string, config interface{}) error {
	if path == "" {
		return errors.New("please setup the config file path")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "fail to open config file")
	}

	if err := yaml.UnmarshalStrict(raw, config); err != nil {
		return errors.Wrap(err, "fail to decode config file")
	}

	if o, ok := config.(interface{ Overrides() interface{} }); ok {
		if err := envconfig.Process(EnvPrefix, o.Overrides()); err != nil {
			return errors.Wrap(err, "fail to read environment overrides")
		}
	}

	if d, ok := config.(Defaulter); ok {
		d.SetDefaults()
	}

	return nil
}
