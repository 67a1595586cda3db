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

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awswafv2"
	"github.com/aws/jsii-runtime-go"
	"github.com/fogfish/nextsite/internal/settings"
	"github.com/fogfish/tagver"
	"github.com/samber/lo"
)

// Web ACL of CloudFront exists only in this region
const FirewallRegion = "us-east-1"

const scopeCloudFront = "CLOUDFRONT"

type FirewallProps struct {
	*awscdk.StackProps
	Version tagver.Version

	// Name of the site, used as stack name and prefix of metrics.
	//
	// Default: nextsite
	Name string

	Firewall settings.Firewall
}

// Firewall is the stack of web ACL protecting the site.
type Firewall struct {
	awscdk.Stack
	WebAcl awswafv2.CfnWebACL
}

func NewFirewall(app awscdk.App, props *FirewallProps) *Firewall {
	if props.Name == "" {
		props.Name = "nextsite"
	}

	if props.StackProps == nil || props.StackProps.Env == nil || stringOf(props.StackProps.Env.Region) != FirewallRegion {
		panic(fmt.Errorf("firewall of CloudFront requires region %s", FirewallRegion))
	}

	stack := awscdk.NewStack(app,
		jsii.String(props.Version.Tag(props.Name+"-waf")),
		props.StackProps,
	)

	c := &Firewall{Stack: stack}
	c.createWebAcl(props)

	return c
}

func (c *Firewall) createWebAcl(props *FirewallProps) {
	cfg := props.Firewall

	var block, allow *string
	if len(cfg.BlockIPs) > 0 {
		block = c.createIPSet("BlockedIPs", cfg.BlockIPs)
	}
	if len(cfg.AllowIPs) > 0 {
		allow = c.createIPSet("AllowedIPs", cfg.AllowIPs)
	}

	rules := lo.ToAnySlice(Rules(props.Name, cfg, block, allow))

	c.WebAcl = awswafv2.NewCfnWebACL(c.Stack, jsii.String("WebAcl"),
		&awswafv2.CfnWebACLProps{
			Scope:       jsii.String(scopeCloudFront),
			Description: jsii.String("web ACL of Next.js site"),
			DefaultAction: &awswafv2.CfnWebACL_DefaultActionProperty{
				Allow: &awswafv2.CfnWebACL_AllowActionProperty{},
			},
			Rules:            &rules,
			VisibilityConfig: visibility(props.Name, "waf", cfg),
			Tags: &[]*awscdk.CfnTag{
				{Key: jsii.String("Name"), Value: jsii.String(props.Name + "-waf")},
				{Key: jsii.String("ManagedBy"), Value: jsii.String("nextsite")},
			},
		},
	)

	awscdk.NewCfnOutput(c.Stack, jsii.String("WebAclArn"),
		&awscdk.CfnOutputProps{Value: c.WebAcl.AttrArn()},
	)
}

func (c *Firewall) createIPSet(id string, addresses []string) *string {
	set := awswafv2.NewCfnIPSet(c.Stack, jsii.String(id),
		&awswafv2.CfnIPSetProps{
			Scope:            jsii.String(scopeCloudFront),
			IpAddressVersion: jsii.String("IPV4"),
			Addresses:        jsii.Strings(addresses...),
		},
	)

	return set.AttrArn()
}

// Rules of web ACL, priorities are assigned sequentially in the order:
// rate limit, blocked IPs, allowed IPs, blocked countries, managed rule groups.
// ARNs of IP sets are required when corresponding addresses are configured.
func Rules(name string, cfg settings.Firewall, blockIPs, allowIPs *string) []*awswafv2.CfnWebACL_RuleProperty {
	var seq []*awswafv2.CfnWebACL_RuleProperty

	rule := func(r *awswafv2.CfnWebACL_RuleProperty, metric string) {
		r.Priority = jsii.Number(float64(len(seq) + 1))
		r.VisibilityConfig = visibility(name, metric, cfg)
		seq = append(seq, r)
	}

	block := &awswafv2.CfnWebACL_RuleActionProperty{Block: &awswafv2.CfnWebACL_BlockActionProperty{}}
	allow := &awswafv2.CfnWebACL_RuleActionProperty{Allow: &awswafv2.CfnWebACL_AllowActionProperty{}}

	if cfg.RateLimit > 0 {
		rule(&awswafv2.CfnWebACL_RuleProperty{
			Name:   jsii.String("RateLimitRule"),
			Action: block,
			Statement: &awswafv2.CfnWebACL_StatementProperty{
				RateBasedStatement: &awswafv2.CfnWebACL_RateBasedStatementProperty{
					Limit:            jsii.Number(float64(cfg.RateLimit)),
					AggregateKeyType: jsii.String("IP"),
				},
			},
		}, "rate-limit")
	}

	if len(cfg.BlockIPs) > 0 && blockIPs != nil {
		rule(&awswafv2.CfnWebACL_RuleProperty{
			Name:   jsii.String("BlockSpecificIPs"),
			Action: block,
			Statement: &awswafv2.CfnWebACL_StatementProperty{
				IpSetReferenceStatement: &awswafv2.CfnWebACL_IPSetReferenceStatementProperty{Arn: blockIPs},
			},
		}, "blocked-ips")
	}

	if len(cfg.AllowIPs) > 0 && allowIPs != nil {
		rule(&awswafv2.CfnWebACL_RuleProperty{
			Name:   jsii.String("AllowSpecificIPs"),
			Action: allow,
			Statement: &awswafv2.CfnWebACL_StatementProperty{
				IpSetReferenceStatement: &awswafv2.CfnWebACL_IPSetReferenceStatementProperty{Arn: allowIPs},
			},
		}, "allowed-ips")
	}

	if len(cfg.BlockCountries) > 0 {
		rule(&awswafv2.CfnWebACL_RuleProperty{
			Name:   jsii.String("BlockCountries"),
			Action: block,
			Statement: &awswafv2.CfnWebACL_StatementProperty{
				GeoMatchStatement: &awswafv2.CfnWebACL_GeoMatchStatementProperty{
					CountryCodes: jsii.Strings(cfg.BlockCountries...),
				},
			},
		}, "blocked-countries")
	}

	managed := []struct {
		enabled bool
		group   string
		metric  string
	}{
		{enabledOr(cfg.CommonRuleSet, true), "AWSManagedRulesCommonRuleSet", "common-rule-set"},
		{enabledOr(cfg.KnownBadInputs, true), "AWSManagedRulesKnownBadInputsRuleSet", "known-bad-inputs"},
		{cfg.AnonymousIPs, "AWSManagedRulesAnonymousIpList", "anonymous-ip-list"},
		{cfg.IPReputation, "AWSManagedRulesAmazonIpReputationList", "ip-reputation-list"},
	}

	for _, m := range managed {
		if !m.enabled {
			continue
		}

		rule(&awswafv2.CfnWebACL_RuleProperty{
			Name: jsii.String(m.group),
			OverrideAction: &awswafv2.CfnWebACL_OverrideActionProperty{
				None: map[string]any{},
			},
			Statement: &awswafv2.CfnWebACL_StatementProperty{
				ManagedRuleGroupStatement: &awswafv2.CfnWebACL_ManagedRuleGroupStatementProperty{
					VendorName: jsii.String("AWS"),
					Name:       jsii.String(m.group),
				},
			},
		}, m.metric)
	}

	return seq
}

func visibility(name, metric string, cfg settings.Firewall) *awswafv2.CfnWebACL_VisibilityConfigProperty {
	return &awswafv2.CfnWebACL_VisibilityConfigProperty{
		CloudWatchMetricsEnabled: jsii.Bool(enabledOr(cfg.Metrics, true)),
		SampledRequestsEnabled:   jsii.Bool(enabledOr(cfg.Sampling, true)),
		MetricName:               jsii.String(fmt.Sprintf("%s-%s-metric", name, metric)),
	}
}

func enabledOr(flag *bool, def bool) bool {
	if flag == nil {
		return def
	}
	return *flag
}

func stringOf(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
