package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/dittouploads/pkg/disk/factory"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Validation is performed in two stages:
//  1. Struct tag validation using go-playground/validator
//  2. Custom business logic validation
//
// Returns an error describing all validation failures.
func Validate(cfg *Config) error {
	// Stage 1: Struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Stage 2: Custom business logic validation
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs validation that cannot be expressed with struct tags.
func validateCustomRules(cfg *Config) error {
	if _, ok := cfg.Disks[cfg.Uploads.DefaultDisk]; !ok {
		return fmt.Errorf("uploads.default_disk: disk %q is not configured", cfg.Uploads.DefaultDisk)
	}

	names := make([]string, 0, len(cfg.Disks))
	for name := range cfg.Disks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := validateDisk(name, cfg.Disks[name]); err != nil {
			return err
		}
	}

	return validateRepository(&cfg.Repository)
}

// validateDisk checks the options each disk kind cannot work without.
// The factory repeats these checks; failing here reports them before any
// disk is built.
func validateDisk(name string, d factory.Config) error {
	switch d.Type {
	case factory.KindFilesystem:
		if path, _ := d.Filesystem["path"].(string); path == "" {
			return fmt.Errorf("disks.%s.filesystem.path: required for filesystem disks", name)
		}
	case factory.KindS3:
		if bucket, _ := d.S3["bucket"].(string); bucket == "" {
			return fmt.Errorf("disks.%s.s3.bucket: required for s3 disks", name)
		}
		if region, _ := d.S3["region"].(string); region == "" {
			return fmt.Errorf("disks.%s.s3.region: required for s3 disks", name)
		}
	}
	return nil
}

func validateRepository(cfg *RepositoryConfig) error {
	switch cfg.Type {
	case "badger":
		path, _ := cfg.Badger["path"].(string)
		inMemory, _ := cfg.Badger["in_memory"].(bool)
		if path == "" && !inMemory {
			return fmt.Errorf("repository.badger.path: required unless in_memory is set")
		}
	case "redis":
		if url, _ := cfg.Redis["url"].(string); url == "" {
			return fmt.Errorf("repository.redis.url: required for redis repository")
		}
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	// Return first error with helpful context
	if len(validationErrors) > 0 {
		e := validationErrors[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}

	return err
}
