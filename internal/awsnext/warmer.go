//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

package awsnext

import (
	"encoding/json"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awseventstargets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/jsii-runtime-go"
	"github.com/fogfish/nextsite/internal/warmer"
	"github.com/fogfish/scud"
)

func (c *Site) createWarmer(props *SiteProps) {
	cfg := c.site.Warmer.Resolve()
	if !cfg.Enabled {
		return
	}

	names := map[string]string{}
	for key, f := range c.Functions {
		names[key] = *f.FunctionName()
	}

	// function names are tokens, resolved within the string at deployment
	params, err := json.Marshal(warmer.Targets(names, cfg))
	if err != nil {
		panic(err)
	}

	env := &map[string]*string{
		warmer.EnvWarmParams: jsii.String(string(params)),
	}

	switch bundle := c.output.AdditionalProps.Warmer; {
	case bundle != nil:
		c.Warmer = awslambda.NewFunction(c.Stack, jsii.String("Warmer"),
			&awslambda.FunctionProps{
				Runtime:      awslambda.Runtime_NODEJS_20_X(),
				Architecture: awslambda.Architecture_X86_64(),
				Handler:      jsii.String(bundle.Handler),
				Code:         awslambda.Code_FromAsset(c.bundle(bundle.Bundle), nil),
				MemorySize:   jsii.Number(128),
				Timeout:      awscdk.Duration_Seconds(jsii.Number(900)),
				Environment:  env,
			},
		)
	case *props.Native:
		c.Warmer = scud.NewFunctionGo(c.Stack, jsii.String("Warmer"),
			&scud.FunctionGoProps{
				SourceCodeModule: SourceCodeModule,
				SourceCodeLambda: "internal/cmd/lambda/warmer",
				FunctionProps: &awslambda.FunctionProps{
					MemorySize:  jsii.Number(128),
					Timeout:     awscdk.Duration_Seconds(jsii.Number(900)),
					Environment: env,
				},
			},
		)
	default:
		warning(c.Stack, "warmer is enabled but the build has no warmer function, skipped")
		return
	}

	for key, f := range c.Functions {
		if cfg.Warms(key) {
			f.GrantInvoke(c.Warmer)
		}
	}

	var input awsevents.RuleTargetInput
	if len(cfg.Payload) > 0 {
		input = awsevents.RuleTargetInput_FromObject(cfg.Payload)
	}

	rule := awsevents.NewRule(c.Stack, jsii.String("WarmerSchedule"),
		&awsevents.RuleProps{
			Description: jsii.String("periodic warming of Next.js server functions"),
			Schedule:    awsevents.Schedule_Expression(jsii.String(cfg.Schedule)),
		},
	)

	rule.AddTarget(
		awseventstargets.NewLambdaFunction(c.Warmer,
			&awseventstargets.LambdaFunctionProps{Event: input},
		),
	)
}
