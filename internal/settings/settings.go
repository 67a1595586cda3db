//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

// Package settings defines configuration of the site: location of the
// OpenNext build, environment, domain, per function settings, warmer and
// firewall. Configuration is read from YAML file.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/fogfish/nextsite/internal/warmer"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFile = "nextsite.yaml"
	DefaultPath = "../apps/web"
)

var ErrInvalid = errors.New("invalid config")

var validate = validator.New()

// Domain of the site, certificate has to be issued in us-east-1
type Domain struct {
	Name        string `yaml:"name" validate:"required,fqdn"`
	Certificate string `yaml:"certificate" validate:"required"`
}

// Firewall config of CloudFront web ACL
type Firewall struct {
	Enabled        bool     `yaml:"enabled"`
	RateLimit      int      `yaml:"rateLimit,omitempty" validate:"omitempty,min=10"`
	CommonRuleSet  *bool    `yaml:"commonRuleSet,omitempty"`
	KnownBadInputs *bool    `yaml:"knownBadInputs,omitempty"`
	AnonymousIPs   bool     `yaml:"anonymousIpList,omitempty"`
	IPReputation   bool     `yaml:"ipReputationList,omitempty"`
	BlockIPs       []string `yaml:"blockIpAddresses,omitempty" validate:"dive,cidrv4"`
	AllowIPs       []string `yaml:"allowIpAddresses,omitempty" validate:"dive,cidrv4"`
	BlockCountries []string `yaml:"blockCountries,omitempty" validate:"dive,iso3166_1_alpha2"`
	Metrics        *bool    `yaml:"metrics,omitempty"`
	Sampling       *bool    `yaml:"sampledRequests,omitempty"`
}

// Site config
type Site struct {
	Path        string            `yaml:"path,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Domain      *Domain           `yaml:"domain,omitempty"`
	Functions   map[string]Lambda `yaml:"functions,omitempty"`
	Warmer      warmer.Config     `yaml:"warmer,omitempty"`
	Waf         Firewall          `yaml:"waf,omitempty"`
}

// Default site config
func Default() *Site {
	return &Site{Path: DefaultPath}
}

// Load site config from file, defaults are used if file does not exist.
func Load(file string) (*Site, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}

	return Parse(raw)
}

// Parse site config
func Parse(raw []byte) (*Site, error) {
	site := Default()
	if err := yaml.Unmarshal(raw, site); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if site.Path == "" {
		site.Path = DefaultPath
	}

	if err := site.Validate(); err != nil {
		return nil, err
	}

	return site, nil
}

// Validate config, each invalid function is reported by its name
func (site *Site) Validate() error {
	var errs []error

	keys := make([]string, 0, len(site.Functions))
	for key := range site.Functions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := site.Functions[key].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%w: function %s: %w", ErrInvalid, key, err))
		}
	}

	if site.Domain != nil {
		if err := validate.Struct(site.Domain); err != nil {
			errs = append(errs, fmt.Errorf("%w: domain: %w", ErrInvalid, explain(err)))
		}
	}

	if err := validate.Struct(site.Warmer); err != nil {
		errs = append(errs, fmt.Errorf("%w: warmer: %w", ErrInvalid, explain(err)))
	}

	if err := validate.Struct(site.Waf); err != nil {
		errs = append(errs, fmt.Errorf("%w: waf: %w", ErrInvalid, explain(err)))
	}

	return errors.Join(errs...)
}

func explain(err error) error {
	var verr validator.ValidationErrors
	if !errors.As(err, &verr) {
		return err
	}

	msgs := make([]string, 0, len(verr))
	for _, e := range verr {
		switch e.Tag() {
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", e.Field(), e.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", e.Field(), e.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %v", e.Field(), e.Param(), e.Value()))
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", e.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed validation: %s", e.Field(), e.Tag()))
		}
	}

	return errors.New(strings.Join(msgs, "; "))
}
