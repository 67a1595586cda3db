//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

package main

import (
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/fogfish/nextsite/internal/awsnext"
	"github.com/fogfish/nextsite/internal/settings"
	"github.com/fogfish/tagver"
)

func main() {
	app := awscdk.NewApp(nil)
	stacks(app)
	app.Synth(nil)
}

// stacks of the site configured by app context, firewall is nil if disabled
func stacks(app awscdk.App) (*awsnext.Site, *awsnext.Firewall) {
	// nextsite-vX
	vsn := FromContextVsn(app)

	name := FromContext(app, "name")
	if name == "" {
		name = "nextsite"
	}

	file := FromContext(app, "config")
	if file == "" {
		file = settings.DefaultFile
	}

	site, err := settings.Load(file)
	if err != nil {
		panic(err)
	}

	if path := FromContext(app, "path"); path != "" {
		site.Path = path
	}

	if warmer := FromContextBool(app, "warmer"); warmer != nil {
		site.Warmer.Enabled = *warmer
	}

	if waf := FromContextBool(app, "waf"); waf != nil {
		site.Waf.Enabled = *waf
	}

	account := jsii.String(os.Getenv("CDK_DEFAULT_ACCOUNT"))
	config := &awscdk.StackProps{
		Env: &awscdk.Environment{
			Account: account,
			Region:  jsii.String(os.Getenv("CDK_DEFAULT_REGION")),
		},
	}

	var (
		firewall  *awsnext.Firewall
		webAclArn *string
	)
	if site.Waf.Enabled {
		firewall = awsnext.NewFirewall(app,
			&awsnext.FirewallProps{
				StackProps: &awscdk.StackProps{
					Env: &awscdk.Environment{
						Account: account,
						Region:  jsii.String(awsnext.FirewallRegion),
					},
					CrossRegionReferences: jsii.Bool(true),
				},
				Version:  vsn.Get(name, "main"),
				Name:     name,
				Firewall: site.Waf,
			},
		)
		webAclArn = firewall.WebAcl.AttrArn()
		config.CrossRegionReferences = jsii.Bool(true)
	}

	stack := awsnext.New(app,
		&awsnext.SiteProps{
			StackProps: config,
			Version:    vsn.Get(name, "main"),
			Name:       name,
			Site:       site,
			WebAclArn:  webAclArn,
			Native:     FromContextBool(app, "native"),
		},
	)

	return stack, firewall
}

//------------------------------------------------------------------------------

func FromContext(app awscdk.App, key string) string {
	val := app.Node().TryGetContext(jsii.String(key))
	switch v := val.(type) {
	case string:
		return v
	default:
		return ""
	}
}

func FromContextBool(app awscdk.App, key string) *bool {
	switch FromContext(app, key) {
	case "on":
		return jsii.Bool(true)
	case "off":
		return jsii.Bool(false)
	default:
		return nil
	}
}

func FromContextVsn(app awscdk.App) tagver.Versions {
	return tagver.NewVersions(FromContext(app, "vsn"))
}
