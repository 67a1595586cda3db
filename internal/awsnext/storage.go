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
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3deployment"
	"github.com/aws/jsii-runtime-go"
	"github.com/fogfish/nextsite/internal/opennext"
)

const (
	CacheControlImmutable   = "public,max-age=31536000,immutable"
	CacheControlRevalidated = "public,max-age=0,s-maxage=31536000,must-revalidate"
)

// CacheControl of assets copied to the bucket
func CacheControl(copy opennext.Copy) string {
	if copy.Cached {
		return CacheControlImmutable
	}
	return CacheControlRevalidated
}

func (c *Site) createStorage(props *SiteProps) {
	c.Bucket = awss3.NewBucket(c.Stack, jsii.String("Assets"),
		&awss3.BucketProps{
			BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
			Encryption:        awss3.BucketEncryption_S3_MANAGED,
			EnforceSSL:        jsii.Bool(true),
			RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
			AutoDeleteObjects: jsii.Bool(true),
		},
	)

	for i, copy := range c.output.S3().Copy {
		source := c.bundle(copy.From)
		if _, err := os.Stat(*source); err != nil {
			warning(c.Stack, "assets %s are not found, skipped", *source)
			continue
		}

		awss3deployment.NewBucketDeployment(c.Stack, jsii.String(fmt.Sprintf("Assets%d", i)),
			&awss3deployment.BucketDeploymentProps{
				Sources: &[]awss3deployment.ISource{
					awss3deployment.Source_Asset(source, nil),
				},
				DestinationBucket:    c.Bucket,
				DestinationKeyPrefix: jsii.String(copy.To),
				CacheControl: &[]awss3deployment.CacheControl{
					awss3deployment.CacheControl_FromString(jsii.String(CacheControl(copy))),
				},
				Prune: jsii.Bool(false),
			},
		)
	}
}
