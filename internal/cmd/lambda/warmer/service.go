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

	"github.com/aws/aws-lambda-go/events"
	"github.com/fogfish/nextsite/internal/warmer"
)

type Warmer interface {
	Warm(ctx context.Context, targets []warmer.Target) ([]string, error)
}

type Service struct {
	warmer  Warmer
	targets []warmer.Target
}

func New(warmer Warmer, targets []warmer.Target) *Service {
	return &Service{
		warmer:  warmer,
		targets: targets,
	}
}

// Run warming cycle on scheduled event
func (s *Service) Run(ctx context.Context, evt events.CloudWatchEvent) error {
	if len(s.targets) == 0 {
		slog.Warn("nothing to warm", "event", evt.ID)
		return nil
	}

	ids, err := s.warmer.Warm(ctx, s.targets)
	if err != nil {
		slog.Error("warming failed", "event", evt.ID, "err", err)
		return err
	}

	slog.Info("warmed", "event", evt.ID, "servers", ids)

	return nil
}
