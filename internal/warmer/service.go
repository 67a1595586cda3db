//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

package warmer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/fogfish/nextsite/internal/events"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Delay (ms) servers hold the warming request, so that concurrent requests
// land on distinct instances.
const Delay = 75

type Invoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

type Service struct {
	api Invoker
}

func New(api Invoker) *Service {
	return &Service{api: api}
}

// Warm invokes every target concurrency times in parallel, returns ids of
// distinct server instances responded to warming request.
func (s *Service) Warm(ctx context.Context, targets []Target) ([]string, error) {
	warmerID := uuid.New().String()

	var (
		mu  sync.Mutex
		ids = map[string]struct{}{}
	)

	eg, ctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		for i := 0; i < target.Concurrency; i++ {
			evt := events.Warming{
				Type:        events.TypeWarmer,
				WarmerID:    warmerID,
				Index:       i,
				Concurrency: target.Concurrency,
				Delay:       Delay,
			}

			eg.Go(func() error {
				id, err := s.invoke(ctx, target.Function, evt)
				if err != nil {
					return err
				}

				if id != "" {
					mu.Lock()
					ids[id] = struct{}{}
					mu.Unlock()
				}
				return nil
			})
		}
	}

	err := eg.Wait()

	seq := make([]string, 0, len(ids))
	for id := range ids {
		seq = append(seq, id)
	}
	sort.Strings(seq)

	slog.Info("functions warmed", "warmer", warmerID, "targets", len(targets), "servers", len(seq))

	return seq, err
}

func (s *Service) invoke(ctx context.Context, function string, evt events.Warming) (string, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return "", err
	}

	out, err := s.api.Invoke(ctx,
		&lambda.InvokeInput{
			FunctionName:   aws.String(function),
			InvocationType: types.InvocationTypeRequestResponse,
			Payload:        payload,
		},
	)
	if err != nil {
		return "", fmt.Errorf("warming %s failed: %w", function, err)
	}

	if out.FunctionError != nil {
		return "", fmt.Errorf("warming %s failed: %s", function, aws.ToString(out.FunctionError))
	}

	var rsp events.Warmed
	if err := json.Unmarshal(out.Payload, &rsp); err != nil || rsp.Type != events.TypeWarmer {
		slog.Debug("unexpected warmer response", "function", function, "payload", string(out.Payload))
		return "", nil
	}

	return rsp.ServerID, nil
}
