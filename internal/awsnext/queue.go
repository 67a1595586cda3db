//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

package awsnext

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambdaeventsources"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/jsii-runtime-go"
	"github.com/fogfish/nextsite/internal/opennext"
	"github.com/fogfish/scud"
)

func (c *Site) createQueue(props *SiteProps) {
	c.Queue = awssqs.NewQueue(c.Stack, jsii.String("RevalidationQueue"),
		&awssqs.QueueProps{
			Fifo:                      jsii.Bool(true),
			ContentBasedDeduplication: jsii.Bool(true),
			ReceiveMessageWaitTime:    awscdk.Duration_Seconds(jsii.Number(20)),
			VisibilityTimeout:         awscdk.Duration_Seconds(jsii.Number(30)),
		},
	)

	var f awslambda.Function

	switch revalidation := c.output.AdditionalProps.RevalidationFunction; {
	case revalidation != nil:
		f = awslambda.NewFunction(c.Stack, jsii.String("Revalidate"),
			&awslambda.FunctionProps{
				Runtime:      awslambda.Runtime_NODEJS_20_X(),
				Architecture: awslambda.Architecture_X86_64(),
				Handler:      jsii.String(revalidation.Handler),
				Code:         awslambda.Code_FromAsset(c.bundle(revalidation.Bundle), nil),
				Timeout:      awscdk.Duration_Seconds(jsii.Number(30)),
			},
		)
	case *props.Native:
		previewModeID, err := opennext.PreviewModeID(c.site.Path)
		if err != nil {
			warning(c.Stack, "revalidation function is not deployed: %s", err)
			return
		}

		f = scud.NewFunctionGo(c.Stack, jsii.String("Revalidate"),
			&scud.FunctionGoProps{
				SourceCodeModule: SourceCodeModule,
				SourceCodeLambda: "internal/cmd/lambda/revalidate",
				FunctionProps: &awslambda.FunctionProps{
					Timeout: awscdk.Duration_Seconds(jsii.Number(30)),
					Environment: &map[string]*string{
						"REVALIDATE_PREVIEW_MODE_ID": jsii.String(previewModeID),
					},
				},
			},
		)
	default:
		info(c.Stack, "revalidation function is not defined, queue has no consumer")
		return
	}

	f.AddEventSource(
		awslambdaeventsources.NewSqsEventSource(c.Queue,
			&awslambdaeventsources.SqsEventSourceProps{
				BatchSize:               jsii.Number(5),
				ReportBatchItemFailures: jsii.Bool(true),
			},
		),
	)
}
