//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

package awsnext

import (
	"fmt"
	"maps"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/jsii-runtime-go"
	"github.com/fogfish/nextsite/internal/opennext"
	"github.com/fogfish/nextsite/internal/settings"
	"github.com/samber/lo"
)

// Prefixes of cache and assets within the bucket
const (
	KeyPrefixCache  = "_cache"
	KeyPrefixAssets = "_assets"
)

func (c *Site) createFunctions(props *SiteProps) {
	origins := c.output.FunctionOrigins()

	ids := map[string]string{}
	for _, origin := range origins {
		id := resourceID(origin.Name)
		if other, has := ids[id]; has {
			panic(fmt.Errorf("origins %s and %s have the same construct id %s, rename one of them", other, origin.Name, id))
		}
		ids[id] = origin.Name
	}

	for _, origin := range origins {
		if unsupported := origin.UnsupportedOverrides(); len(unsupported) > 0 {
			warning(c.Stack, "origin %s uses overrides without infrastructure support: %s", origin.Name, strings.Join(unsupported, ", "))
		}
		c.createFunction(origin)
	}

	if ecs := lo.PickBy(c.output.Origins,
		func(_ string, o opennext.Origin) bool { return o.Type == opennext.TypeECS },
	); len(ecs) > 0 {
		warning(c.Stack, "ecs origins are not supported, skipped: %s", strings.Join(lo.Keys(ecs), ", "))
	}
}

func (c *Site) createFunction(origin opennext.NamedOrigin) {
	spec := c.site.Resolve(origin.Name)

	env := map[string]*string{}
	maps.Copy(env, c.environment())
	for k, v := range c.site.Environment {
		env[k] = jsii.String(v)
	}
	for k, v := range spec.Environment {
		env[k] = jsii.String(v)
	}

	f := awslambda.NewFunction(c.Stack, jsii.String(resourceID(origin.Name)),
		&awslambda.FunctionProps{
			Runtime:      runtime(spec.Runtime),
			Architecture: architecture(spec.Architecture),
			Handler:      jsii.String(origin.Handler),
			Code:         awslambda.Code_FromAsset(c.bundle(origin.Bundle), nil),
			MemorySize:   jsii.Number(float64(spec.Memory)),
			Timeout:      awscdk.Duration_Seconds(jsii.Number(float64(spec.Timeout))),
			Environment:  &env,
		},
	)

	c.Bucket.GrantReadWrite(f, nil)
	c.Table.GrantReadWriteData(f)
	c.Queue.GrantSendMessages(f)

	mode := awslambda.InvokeMode_BUFFERED
	if origin.Streaming {
		mode = awslambda.InvokeMode_RESPONSE_STREAM
	}

	c.urls[origin.Name] = f.AddFunctionUrl(
		&awslambda.FunctionUrlOptions{
			AuthType:   awslambda.FunctionUrlAuthType_NONE,
			InvokeMode: mode,
		},
	)
	c.Functions[origin.Name] = f
}

// environment shared by server functions to reach cache
func (c *Site) environment() map[string]*string {
	return map[string]*string{
		"CACHE_BUCKET_NAME":         c.Bucket.BucketName(),
		"CACHE_BUCKET_KEY_PREFIX":   jsii.String(KeyPrefixCache),
		"CACHE_BUCKET_REGION":       c.Stack.Region(),
		"REVALIDATION_QUEUE_URL":    c.Queue.QueueUrl(),
		"REVALIDATION_QUEUE_REGION": c.Stack.Region(),
		"CACHE_DYNAMO_TABLE":        c.Table.TableName(),
		"BUCKET_NAME":               c.Bucket.BucketName(),
		"BUCKET_KEY_PREFIX":         jsii.String(KeyPrefixAssets),
	}
}

// resourceID converts origin key to construct id (e.g. fetchingPage -> FetchingPageServer)
func resourceID(key string) string {
	return lo.PascalCase(key) + "Server"
}

func runtime(name string) awslambda.Runtime {
	family := awslambda.RuntimeFamily_OTHER
	switch {
	case strings.HasPrefix(name, "nodejs"):
		family = awslambda.RuntimeFamily_NODEJS
	case strings.HasPrefix(name, "python"):
		family = awslambda.RuntimeFamily_PYTHON
	case strings.HasPrefix(name, "java"):
		family = awslambda.RuntimeFamily_JAVA
	case strings.HasPrefix(name, "dotnet"):
		family = awslambda.RuntimeFamily_DOTNET_CORE
	case strings.HasPrefix(name, "go"):
		family = awslambda.RuntimeFamily_GO
	case strings.HasPrefix(name, "ruby"):
		family = awslambda.RuntimeFamily_RUBY
	}

	return awslambda.NewRuntime(jsii.String(name), family, nil)
}

func architecture(arch string) awslambda.Architecture {
	if arch == settings.ArchArm {
		return awslambda.Architecture_ARM_64()
	}
	return awslambda.Architecture_X86_64()
}
