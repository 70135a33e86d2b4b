package config

import (
	"fmt"

	"nit/internal/predicate"
)

// Validate checks a loaded Config for internal consistency beyond what
// JSON decoding already enforces: duplicate linter names, conflicting
// digests for one URL, and invalid predicate patterns. It takes cfg by
// pointer so the regexes predicate.Compile caches onto Include/Exclude
// (and each linter's overrides) survive into the caller's Config rather
// than being compiled onto a throwaway copy.
func Validate(cfg *Config) error {
	if err := predicate.Compile(&cfg.Include); err != nil {
		return fmt.Errorf("CONFIG_VALIDATE: include: %w", err)
	}
	if err := predicate.Compile(&cfg.Exclude); err != nil {
		return fmt.Errorf("CONFIG_VALIDATE: exclude: %w", err)
	}

	seenNames := make(map[string]struct{}, len(cfg.Linters))
	urlDigests := make(map[string]string, len(cfg.Linters))

	for _, l := range cfg.Linters {
		if l.Name == "" {
			return fmt.Errorf("CONFIG_VALIDATE: linter entry has an empty name")
		}
		if _, dup := seenNames[l.Name]; dup {
			return fmt.Errorf("CONFIG_VALIDATE: duplicate linter name %q", l.Name)
		}
		seenNames[l.Name] = struct{}{}

		if l.OverrideInclude != nil {
			if err := predicate.Compile(l.OverrideInclude); err != nil {
				return fmt.Errorf("CONFIG_VALIDATE: linter %q override_include: %w", l.Name, err)
			}
		}
		if l.OverrideExclude != nil {
			if err := predicate.Compile(l.OverrideExclude); err != nil {
				return fmt.Errorf("CONFIG_VALIDATE: linter %q override_exclude: %w", l.Name, err)
			}
		}

		switch l.Location.Kind {
		case LocationRemote:
			if l.Location.URL == "" {
				return fmt.Errorf("CONFIG_VALIDATE: linter %q has an empty remote url", l.Name)
			}
			if existing, ok := urlDigests[l.Location.URL]; ok && existing != l.Location.Digest.String() {
				return fmt.Errorf("CONFIG_VALIDATE: conflicting hashes for url %s", l.Location.URL)
			}
			urlDigests[l.Location.URL] = l.Location.Digest.String()
		case LocationLocal:
			if l.Location.Path == "" {
				return fmt.Errorf("CONFIG_VALIDATE: linter %q has an empty local path", l.Name)
			}
		}
	}

	if cfg.Concurrency < 0 {
		return fmt.Errorf("CONFIG_VALIDATE: concurrency must be >= 0, got %d", cfg.Concurrency)
	}

	return nil
}
