//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

package settings_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fogfish/it/v2"
	"github.com/fogfish/nextsite/internal/settings"
)

const config = `
path: ../web
environment:
  SITE: nextsite
domain:
  name: www.example.com
  certificate: arn:aws:acm:us-east-1:000000000000:certificate/abc
functions:
  default:
    runtime: nodejs22.x
    environment:
      LOG: info
  defaultServer:
    memory: 2048
    environment:
      LOG: debug
  api:
    timeout: 60
    architecture: arm64
warmer:
  enabled: true
  concurrency: 2
  functions:
    api:
      concurrency: 5
waf:
  enabled: true
  rateLimit: 2000
  blockCountries: [RU]
`

func TestParse(t *testing.T) {
	site, err := settings.Parse([]byte(config))
	it.Then(t).Should(
		it.Nil(err),
		it.Equal(site.Path, "../web"),
		it.Equal(site.Environment["SITE"], "nextsite"),
		it.Equal(site.Domain.Name, "www.example.com"),
		it.Equal(site.Warmer.Enabled, true),
		it.Equal(*site.Warmer.Functions["api"].Concurrency, 5),
		it.Equal(site.Waf.RateLimit, 2000),
		it.Equiv(site.Waf.BlockCountries, []string{"RU"}),
	)
}

func TestResolve(t *testing.T) {
	site, err := settings.Parse([]byte(config))
	it.Then(t).Should(it.Nil(err))

	t.Run("DefaultServer", func(t *testing.T) {
		l := site.Resolve("default")
		it.Then(t).Should(
			it.Equal(l.Memory, 2048),
			it.Equal(l.Timeout, 15),
			it.Equal(l.Runtime, "nodejs22.x"),
			it.Equal(l.Architecture, settings.ArchX86),
			it.Equal(l.Environment["LOG"], "debug"),
		)
	})

	t.Run("ImageOptimizer", func(t *testing.T) {
		l := site.Resolve("imageOptimizer")
		it.Then(t).Should(
			it.Equal(l.Memory, 1024),
			it.Equal(l.Timeout, 30),
			it.Equal(l.Runtime, "nodejs22.x"),
			it.Equal(l.Environment["LOG"], "info"),
		)
	})

	t.Run("SplitServer", func(t *testing.T) {
		l := site.Resolve("api")
		it.Then(t).Should(
			it.Equal(l.Memory, 256),
			it.Equal(l.Timeout, 60),
			it.Equal(l.Architecture, settings.ArchArm),
		)
	})

	t.Run("NoConfig", func(t *testing.T) {
		l := settings.Default().Resolve("default")
		it.Then(t).Should(
			it.Equal(l.Memory, 512),
			it.Equal(l.Timeout, 15),
			it.Equal(l.Runtime, "nodejs20.x"),
		)
	})
}

func TestMergeEnvironment(t *testing.T) {
	base := settings.Lambda{Environment: map[string]string{"A": "1", "B": "1"}}
	l := base.Merge(settings.Lambda{Environment: map[string]string{"B": "2"}})

	it.Then(t).Should(
		it.Equal(l.Environment["A"], "1"),
		it.Equal(l.Environment["B"], "2"),
		it.Equal(base.Environment["B"], "1"),
	)
}

func TestInvalid(t *testing.T) {
	for name, raw := range map[string]string{
		"Memory":       "functions: {api: {memory: 64}}",
		"Timeout":      "functions: {api: {timeout: 901}}",
		"Runtime":      "functions: {api: {runtime: nodejs12.x}}",
		"Architecture": "functions: {api: {architecture: mips}}",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := settings.Parse([]byte(raw))
			it.Then(t).Should(
				it.True(errors.Is(err, settings.ErrInvalid)),
				it.True(strings.Contains(err.Error(), "function api")),
			)
		})
	}

	t.Run("Waf", func(t *testing.T) {
		_, err := settings.Parse([]byte("waf: {blockIpAddresses: [not-an-ip]}"))
		it.Then(t).Should(it.True(errors.Is(err, settings.ErrInvalid)))
	})

	t.Run("Yaml", func(t *testing.T) {
		_, err := settings.Parse([]byte("functions: ["))
		it.Then(t).Should(it.True(errors.Is(err, settings.ErrInvalid)))
	})
}

func TestLoad(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		site, err := settings.Load(filepath.Join(t.TempDir(), settings.DefaultFile))
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(site.Path, settings.DefaultPath),
		)
	})

	t.Run("Found", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), settings.DefaultFile)
		if err := os.WriteFile(file, []byte(config), 0644); err != nil {
			t.Fatal(err)
		}

		site, err := settings.Load(file)
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(site.Path, "../web"),
		)
	})
}
