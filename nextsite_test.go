//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

package main

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/fogfish/it/v2"
	"github.com/fogfish/nextsite/internal/awsnext"
)

func app(ctx map[string]any) awscdk.App {
	ctx["path"] = "internal/awsnext/testdata/app"
	return awscdk.NewApp(&awscdk.AppProps{Context: &ctx})
}

func TestStacks(t *testing.T) {
	t.Setenv("CDK_DEFAULT_ACCOUNT", "000000000000")
	t.Setenv("CDK_DEFAULT_REGION", "eu-west-1")

	t.Run("Firewall", func(t *testing.T) {
		site, firewall := stacks(app(map[string]any{"waf": "on"}))
		it.Then(t).ShouldNot(it.Nil(firewall))
		it.Then(t).Should(
			it.Equal(*firewall.Region(), awsnext.FirewallRegion),
			it.Equal(*site.Region(), "eu-west-1"),
		)

		waf := assertions.Template_FromStack(firewall.Stack, nil)
		waf.ResourceCountIs(jsii.String("AWS::WAFv2::WebACL"), jsii.Number(1))
		waf.ResourceCountIs(jsii.String("Custom::CrossRegionExportWriter"), jsii.Number(1))

		template := assertions.Template_FromStack(site.Stack, nil)
		template.ResourceCountIs(jsii.String("Custom::CrossRegionExportReader"), jsii.Number(1))
		template.HasResourceProperties(jsii.String("AWS::CloudFront::Distribution"),
			map[string]any{
				"DistributionConfig": assertions.Match_ObjectLike(&map[string]any{
					"WebACLId": assertions.Match_AnyValue(),
				}),
			},
		)
	})

	t.Run("NoFirewall", func(t *testing.T) {
		site, firewall := stacks(app(map[string]any{"waf": "off"}))
		it.Then(t).Should(it.Nil(firewall))

		template := assertions.Template_FromStack(site.Stack, nil)
		template.ResourceCountIs(jsii.String("Custom::CrossRegionExportReader"), jsii.Number(0))
		template.HasResourceProperties(jsii.String("AWS::CloudFront::Distribution"),
			map[string]any{
				"DistributionConfig": assertions.Match_ObjectLike(&map[string]any{
					"WebACLId": assertions.Match_Absent(),
				}),
			},
		)
	})
}
