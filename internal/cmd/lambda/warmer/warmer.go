//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

package main

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/caarlos0/env/v11"
	_ "github.com/fogfish/logger/v3"
	"github.com/fogfish/nextsite/internal/warmer"
)

type Config struct {
	WarmParams string `env:"WARM_PARAMS,required"`
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Error("invalid config", "err", err)
		panic(err)
	}

	targets, err := warmer.DecodeTargets(cfg.WarmParams)
	if err != nil {
		slog.Error("invalid warm params", "err", err)
		panic(err)
	}

	// AWS Lambda Service
	aws, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		slog.Error("fatal failure of lambda client", "err", err)
		panic(err)
	}

	service := New(warmer.New(awslambda.NewFromConfig(aws)), targets)

	lambda.Start(service.Run)
}
