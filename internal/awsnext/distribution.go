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
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfrontorigins"
	"github.com/aws/jsii-runtime-go"
	"github.com/fogfish/nextsite/internal/opennext"
)

// Headers of request making server response distinct
var ServerCacheHeaders = []string{
	"accept",
	"rsc",
	"next-router-prefetch",
	"next-router-state-tree",
	"next-url",
	"x-prerender-revalidate",
}

const viewerRequest = `function handler(event) {
  var request = event.request;
  request.headers["x-forwarded-host"] = request.headers.host;
  return request;
}`

func (c *Site) createDistribution(props *SiteProps) {
	viewer := awscloudfront.NewFunction(c.Stack, jsii.String("ViewerRequest"),
		&awscloudfront.FunctionProps{
			Code:    awscloudfront.FunctionCode_FromInline(jsii.String(viewerRequest)),
			Runtime: awscloudfront.FunctionRuntime_JS_1_0(),
		},
	)

	serverCachePolicy := awscloudfront.NewCachePolicy(c.Stack, jsii.String("ServerCache"),
		&awscloudfront.CachePolicyProps{
			Comment:                    jsii.String("server response cache policy"),
			DefaultTtl:                 awscdk.Duration_Seconds(jsii.Number(60)),
			MaxTtl:                     awscdk.Duration_Days(jsii.Number(365)),
			MinTtl:                     awscdk.Duration_Seconds(jsii.Number(0)),
			CookieBehavior:             awscloudfront.CacheCookieBehavior_None(),
			HeaderBehavior:             awscloudfront.CacheHeaderBehavior_AllowList(*jsii.Strings(ServerCacheHeaders...)...),
			QueryStringBehavior:        awscloudfront.CacheQueryStringBehavior_All(),
			EnableAcceptEncodingGzip:   jsii.Bool(true),
			EnableAcceptEncodingBrotli: jsii.Bool(true),
		},
	)

	origins := c.createOrigins()

	behavior := func(origin string) *awscloudfront.BehaviorOptions {
		spec := &awscloudfront.BehaviorOptions{
			Origin:               origins[origin],
			ViewerProtocolPolicy: awscloudfront.ViewerProtocolPolicy_REDIRECT_TO_HTTPS,
			AllowedMethods:       awscloudfront.AllowedMethods_ALLOW_GET_HEAD_OPTIONS(),
			CachedMethods:        awscloudfront.CachedMethods_CACHE_GET_HEAD_OPTIONS(),
			Compress:             jsii.Bool(true),
			FunctionAssociations: &[]*awscloudfront.FunctionAssociation{
				{Function: viewer, EventType: awscloudfront.FunctionEventType_VIEWER_REQUEST},
			},
		}

		if origin == opennext.OriginS3 {
			spec.CachePolicy = awscloudfront.CachePolicy_CACHING_OPTIMIZED()
		} else {
			spec.AllowedMethods = awscloudfront.AllowedMethods_ALLOW_ALL()
			spec.CachePolicy = serverCachePolicy
			spec.OriginRequestPolicy = awscloudfront.OriginRequestPolicy_ALL_VIEWER_EXCEPT_HOST_HEADER()
		}

		return spec
	}

	defaultBehavior, _ := c.output.DefaultBehavior()
	defaultOrigin := c.originOf(defaultBehavior, origins)
	if defaultOrigin == "" {
		panic(fmt.Errorf("default behavior is not served by supported origin"))
	}

	var (
		domainNames *[]*string
		certificate awscertificatemanager.ICertificate
	)
	if domain := c.site.Domain; domain != nil {
		domainNames = jsii.Strings(domain.Name)
		certificate = awscertificatemanager.Certificate_FromCertificateArn(c.Stack,
			jsii.String("Certificate"),
			jsii.String(domain.Certificate),
		)
	}

	c.Distribution = awscloudfront.NewDistribution(c.Stack, jsii.String("Distribution"),
		&awscloudfront.DistributionProps{
			Comment:         jsii.String(fmt.Sprintf("Next.js site %s", *c.Stack.StackName())),
			DefaultBehavior: behavior(defaultOrigin),
			HttpVersion:     awscloudfront.HttpVersion_HTTP2,
			EnableIpv6:      jsii.Bool(true),
			WebAclId:        props.WebAclArn,
			DomainNames:     domainNames,
			Certificate:     certificate,
		},
	)

	for _, b := range c.output.OrderedBehaviors() {
		origin := c.originOf(b, origins)
		if origin == "" {
			continue
		}

		opts := behavior(origin)
		c.Distribution.AddBehavior(jsii.String(b.Pattern), opts.Origin,
			&awscloudfront.AddBehaviorOptions{
				ViewerProtocolPolicy: opts.ViewerProtocolPolicy,
				AllowedMethods:       opts.AllowedMethods,
				CachedMethods:        opts.CachedMethods,
				Compress:             opts.Compress,
				FunctionAssociations: opts.FunctionAssociations,
				CachePolicy:          opts.CachePolicy,
				OriginRequestPolicy:  opts.OriginRequestPolicy,
			},
		)
	}

	awscdk.NewCfnOutput(c.Stack, jsii.String("DistributionDomainName"),
		&awscdk.CfnOutputProps{Value: c.Distribution.DistributionDomainName()},
	)

	awscdk.NewCfnOutput(c.Stack, jsii.String("Url"),
		&awscdk.CfnOutputProps{Value: jsii.String("https://" + *c.Distribution.DistributionDomainName())},
	)
}

func (c *Site) createOrigins() map[string]awscloudfront.IOrigin {
	origins := map[string]awscloudfront.IOrigin{
		opennext.OriginS3: awscloudfrontorigins.S3BucketOrigin_WithOriginAccessControl(c.Bucket,
			&awscloudfrontorigins.S3BucketOriginWithOACProps{
				OriginId:   jsii.String(opennext.OriginS3),
				OriginPath: jsii.String("/" + c.output.S3().OriginPath),
			},
		),
	}

	for key, url := range c.urls {
		origins[key] = awscloudfrontorigins.NewFunctionUrlOrigin(url,
			&awscloudfrontorigins.FunctionUrlOriginProps{
				OriginId:    jsii.String(key),
				ReadTimeout: awscdk.Duration_Seconds(jsii.Number(10)),
			},
		)
	}

	return origins
}

// originOf resolves key of origin serving the behavior, behaviors of edge
// functions and ecs origins are skipped, unknown origin fails synthesis.
func (c *Site) originOf(b opennext.Behavior, origins map[string]awscloudfront.IOrigin) string {
	if b.Origin == "" {
		warning(c.Stack, "behavior %s served by edge function %s is not supported, skipped", b.Pattern, b.EdgeFunction)
		return ""
	}

	key := opennext.OriginID(b.Origin)
	if _, has := origins[key]; has {
		return key
	}

	if o, has := c.output.Origins[key]; has && o.Type == opennext.TypeECS && b.Pattern != opennext.PatternDefault {
		warning(c.Stack, "behavior %s served by ecs origin %s is not supported, skipped", b.Pattern, key)
		return ""
	}

	panic(fmt.Errorf("behavior %s refers to unknown origin %s", b.Pattern, b.Origin))
}
