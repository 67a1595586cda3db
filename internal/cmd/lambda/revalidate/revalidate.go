//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/caarlos0/env/v11"
	_ "github.com/fogfish/logger/v3"
)

type Config struct {
	PreviewModeID string        `env:"REVALIDATE_PREVIEW_MODE_ID,required"`
	Timeout       time.Duration `env:"REVALIDATE_TIMEOUT" envDefault:"5s"`
	MaxTries      uint          `env:"REVALIDATE_MAX_TRIES" envDefault:"3"`
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Error("invalid config", "err", err)
		panic(err)
	}

	client := &http.Client{Timeout: cfg.Timeout}
	service := New(client, cfg.PreviewModeID, cfg.MaxTries)

	lambda.Start(service.Run)
}
