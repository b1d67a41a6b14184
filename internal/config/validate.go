package config

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Duration lower bounds.
const (
	minSettingsTTL    = 1 * time.Second
	minConnectTimeout = 1 * time.Second
	minRequestTimeout = 5 * time.Second
)

// newValidator reports field errors by their TOML names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	if err := newValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating config: %w", err)
		}

		for _, fe := range verrs {
			errs = append(errs, fieldError(fe))
		}
	}

	errs = append(errs, validateHostPort("cache.redis_addr", cfg.Cache.RedisAddr)...)
	errs = append(errs, validateDurationMin("cache.settings_ttl", cfg.Cache.SettingsTTL, minSettingsTTL)...)
	errs = append(errs, validateDurationMin("graph.connect_timeout", cfg.Graph.ConnectTimeout, minConnectTimeout)...)
	errs = append(errs, validateDurationMin("graph.request_timeout", cfg.Graph.RequestTimeout, minRequestTimeout)...)

	return errors.Join(errs...)
}

// fieldError renders one validator failure as "section.key: problem".
func fieldError(fe validator.FieldError) error {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")

	switch fe.Tag() {
	case "oneof":
		return fmt.Errorf("%s: must be one of %s; got %q", field,
			strings.Join(strings.Fields(fe.Param()), ", "), fe.Value())
	case "required_if":
		return fmt.Errorf("%s: required when %s", field, strings.Replace(fe.Param(), " ", " = ", 1))
	case "min", "gte":
		return fmt.Errorf("%s: must be >= %s, got %v", field, fe.Param(), fe.Value())
	case "max", "lte":
		return fmt.Errorf("%s: must be <= %s, got %v", field, fe.Param(), fe.Value())
	default:
		return fmt.Errorf("%s: invalid value %q (%s)", field, fmt.Sprint(fe.Value()), fe.Tag())
	}
}

// validateDuration checks that a duration string is valid and meets a minimum.
func validateDuration(field, value string, minimum time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}

	if d < minimum {
		return fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)
	}

	return nil
}

func validateDurationMin(field, value string, minimum time.Duration) []error {
	if err := validateDuration(field, value, minimum); err != nil {
		return []error{err}
	}

	return nil
}

// validateHostPort accepts an empty value or "host:port".
func validateHostPort(field, value string) []error {
	if value == "" {
		return nil
	}

	if _, port, err := net.SplitHostPort(value); err != nil || port == "" {
		return []error{fmt.Errorf("%s: must be host:port, got %q", field, value)}
	}

	return nil
}
