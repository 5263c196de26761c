package config

import (
	"fmt"
	"strings"
)

func Validate(cfg Config) error {
	if cfg.Version != SchemaVersion {
		return fmt.Errorf("DOC_CONFIG_VERSION: unsupported version %d", cfg.Version)
	}
	if cfg.Cache.Root == "" {
		return fmt.Errorf("DOC_CONFIG_CACHE: missing cache root")
	}
	if cfg.Manifests.Dir == "" {
		return fmt.Errorf("DOC_CONFIG_MANIFESTS: missing manifests dir")
	}

	names := map[string]struct{}{}
	for _, r := range cfg.Repos {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("DOC_CONFIG_REPO: repo name is required")
		}
		if _, ok := names[r.Name]; ok {
			return fmt.Errorf("DOC_CONFIG_REPO: duplicate repo name %q", r.Name)
		}
		names[r.Name] = struct{}{}
		if r.URL == "" {
			return fmt.Errorf("DOC_CONFIG_REPO: repo %q missing url", r.Name)
		}
	}
	return nil
}
