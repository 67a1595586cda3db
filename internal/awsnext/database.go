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
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/triggers"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// Index of tags by path
const IndexRevalidate = "revalidate"

func (c *Site) createDatabase(props *SiteProps) {
	c.Table = awsdynamodb.NewTable(c.Stack, jsii.String("Revalidation"),
		&awsdynamodb.TableProps{
			PartitionKey: &awsdynamodb.Attribute{
				Name: jsii.String("tag"),
				Type: awsdynamodb.AttributeType_STRING,
			},
			SortKey: &awsdynamodb.Attribute{
				Name: jsii.String("path"),
				Type: awsdynamodb.AttributeType_STRING,
			},
			BillingMode:         awsdynamodb.BillingMode_PAY_PER_REQUEST,
			PointInTimeRecovery: jsii.Bool(true),
			RemovalPolicy:       awscdk.RemovalPolicy_DESTROY,
		},
	)

	c.Table.AddGlobalSecondaryIndex(
		&awsdynamodb.GlobalSecondaryIndexProps{
			IndexName: jsii.String(IndexRevalidate),
			PartitionKey: &awsdynamodb.Attribute{
				Name: jsii.String("path"),
				Type: awsdynamodb.AttributeType_STRING,
			},
			SortKey: &awsdynamodb.Attribute{
				Name: jsii.String("revalidatedAt"),
				Type: awsdynamodb.AttributeType_NUMBER,
			},
			ProjectionType:   awsdynamodb.ProjectionType_INCLUDE,
			NonKeyAttributes: jsii.Strings("tag"),
		},
	)

	c.createSeeder(props)
}

// seeds the table with tags collected at build time
func (c *Site) createSeeder(props *SiteProps) {
	init := c.output.AdditionalProps.InitializationFunction
	if init == nil {
		info(c.Stack, "initialization function is not defined, revalidation table is not seeded")
		return
	}

	f := awslambda.NewFunction(c.Stack, jsii.String("Seeder"),
		&awslambda.FunctionProps{
			Runtime:      awslambda.Runtime_NODEJS_20_X(),
			Architecture: awslambda.Architecture_X86_64(),
			Handler:      jsii.String(init.Handler),
			Code:         awslambda.Code_FromAsset(c.bundle(init.Bundle), nil),
			MemorySize:   jsii.Number(128),
			Timeout:      awscdk.Duration_Seconds(jsii.Number(15)),
			LogRetention: awslogs.RetentionDays_ONE_DAY,
			Environment: &map[string]*string{
				"CACHE_DYNAMO_TABLE": c.Table.TableName(),
			},
		},
	)

	c.Table.GrantReadWriteData(f)

	triggers.NewTrigger(c.Stack, jsii.String("SeederTrigger"),
		&triggers.TriggerProps{
			Handler:                f,
			ExecuteOnHandlerChange: jsii.Bool(true),
			ExecuteAfter:           &[]constructs.Construct{c.Table},
		},
	)
}
