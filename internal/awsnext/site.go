//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

// Package awsnext provisions AWS infrastructure of Next.js application
// packaged by OpenNext: assets bucket, revalidation table and queue, server
// functions, CloudFront distribution, firewall and warmer.
package awsnext

import (
	"fmt"
	"path/filepath"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/fogfish/nextsite/internal/opennext"
	"github.com/fogfish/nextsite/internal/settings"
	"github.com/fogfish/tagver"
)

// Go module hosting native lambdas
const SourceCodeModule = "github.com/fogfish/nextsite"

type SiteProps struct {
	*awscdk.StackProps
	Version tagver.Version

	// Name of the site, used as stack name.
	//
	// Default: nextsite
	Name string

	// Site configuration.
	//
	// Default: settings.Default()
	Site *settings.Site

	// OpenNext build manifest, it is loaded from the site path if not defined.
	Output *opennext.Output

	// ARN of web ACL protecting the distribution
	WebAclArn *string

	// Deploy Go warmer and revalidation lambdas if OpenNext build misses them.
	//
	// Default: false
	Native *bool
}

type Site struct {
	awscdk.Stack
	site   *settings.Site
	output *opennext.Output

	Bucket       awss3.Bucket
	Table        awsdynamodb.Table
	Queue        awssqs.Queue
	Functions    map[string]awslambda.Function
	urls         map[string]awslambda.FunctionUrl
	Distribution awscloudfront.Distribution
	Warmer       awslambda.Function
}

func New(app awscdk.App, props *SiteProps) *Site {
	if props.Name == "" {
		props.Name = "nextsite"
	}

	if props.Site == nil {
		props.Site = settings.Default()
	}

	if props.Native == nil {
		props.Native = jsii.Bool(false)
	}

	if props.Output == nil {
		output, err := opennext.Load(props.Site.Path)
		if err != nil {
			panic(err)
		}
		props.Output = output
	}

	stack := awscdk.NewStack(app,
		jsii.String(props.Version.Tag(props.Name)),
		props.StackProps,
	)

	c := &Site{
		Stack:     stack,
		site:      props.Site,
		output:    props.Output,
		Functions: map[string]awslambda.Function{},
		urls:      map[string]awslambda.FunctionUrl{},
	}

	c.createStorage(props)
	c.createDatabase(props)
	c.createQueue(props)
	c.createFunctions(props)
	c.createDistribution(props)
	c.createWarmer(props)

	return c
}

// path to the bundle of OpenNext build
func (c *Site) bundle(dir string) *string {
	return jsii.String(filepath.Join(c.site.Path, dir))
}

func warning(scope constructs.Construct, format string, args ...any) {
	awscdk.Annotations_Of(scope).AddWarning(jsii.String(fmt.Sprintf(format, args...)))
}

func info(scope constructs.Construct, format string, args ...any) {
	awscdk.Annotations_Of(scope).AddInfo(jsii.String(fmt.Sprintf(format, args...)))
}
