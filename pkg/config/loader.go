package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg, a pointer to a struct with `env` and `envDefault` tags,
// from the process environment:
//
//	type Config struct {
//	    Port       int    `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`
//	    BackendURL string `env:"BACKEND_API_URL" envDefault:"http://localhost:8088"`
//	}
func Load(cfg any) error {
	return parse(cfg, env.Options{})
}

// LoadWithPrefix reads only variables named prefix+tag. A missing trailing
// underscore is added, so "ADMIN" reads ADMIN_BACKEND_API_URL.
func LoadWithPrefix(cfg any, prefix string) error {
	if prefix != "" && !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return parse(cfg, env.Options{Prefix: prefix})
}

func parse(cfg any, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		if opts.Prefix != "" {
			return fmt.Errorf("load %s* config: %w", opts.Prefix, err)
		}
		return fmt.Errorf("load config: %w", err)
	}
	return nil
}
