//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

package settings

import "maps"

const (
	ArchX86 = "x86_64"
	ArchArm = "arm64"
)

// Sections of config with special meaning
const (
	// applied to every function
	SectionDefault = "default"
	// applied to the default server origin
	SectionDefaultServer = "defaultServer"
)

// Lambda settings of the function, zero values are not set.
type Lambda struct {
	Memory       int               `yaml:"memory,omitempty" validate:"omitempty,min=128,max=10240"`
	Timeout      int               `yaml:"timeout,omitempty" validate:"omitempty,min=1,max=900"`
	Runtime      string            `yaml:"runtime,omitempty" validate:"omitempty,oneof=nodejs18.x nodejs20.x nodejs22.x python3.9 python3.10 python3.11 python3.12 java8.al2 java11 java17 java21 dotnet6 dotnet8 go1.x ruby3.2 ruby3.3"`
	Architecture string            `yaml:"architecture,omitempty" validate:"omitempty,oneof=x86_64 arm64"`
	Environment  map[string]string `yaml:"environment,omitempty"`
}

func (l Lambda) Validate() error {
	if err := validate.Struct(l); err != nil {
		return explain(err)
	}
	return nil
}

// Base settings of every function
var Base = Lambda{
	Memory:       256,
	Timeout:      15,
	Runtime:      "nodejs20.x",
	Architecture: ArchX86,
}

// Defaults of servers by origin
var Servers = map[string]Lambda{
	"default":        {Memory: 512, Timeout: 15},
	"imageOptimizer": {Memory: 1024, Timeout: 30},
}

// Merge settings, defined values of other win
func (l Lambda) Merge(other Lambda) Lambda {
	if other.Memory != 0 {
		l.Memory = other.Memory
	}
	if other.Timeout != 0 {
		l.Timeout = other.Timeout
	}
	if other.Runtime != "" {
		l.Runtime = other.Runtime
	}
	if other.Architecture != "" {
		l.Architecture = other.Architecture
	}
	if len(other.Environment) > 0 {
		env := make(map[string]string, len(l.Environment)+len(other.Environment))
		maps.Copy(env, l.Environment)
		maps.Copy(env, other.Environment)
		l.Environment = env
	}
	return l
}

// Resolve settings of the function identified by origin key. Layers are
// merged in the order: base, server defaults, user "default" section, user
// section of the function ("defaultServer" for the default origin).
func (site *Site) Resolve(key string) Lambda {
	l := Base.Merge(Servers[key])

	if site == nil {
		return l
	}

	l = l.Merge(site.Functions[SectionDefault])

	section := key
	if key == SectionDefault {
		section = SectionDefaultServer
	}

	return l.Merge(site.Functions[section])
}
