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
	"fmt"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/fogfish/it/v2"
	"github.com/fogfish/nextsite/internal/warmer"
)

type mock struct {
	expectVal []warmer.Target
	returnErr error
	called    int
}

func (m *mock) Warm(ctx context.Context, targets []warmer.Target) ([]string, error) {
	m.called++

	if len(targets) != len(m.expectVal) {
		return nil, fmt.Errorf("unexpected targets")
	}

	for i, t := range targets {
		if t != m.expectVal[i] {
			return nil, fmt.Errorf("unexpected target %s", t.Function)
		}
	}

	if m.returnErr != nil {
		return nil, m.returnErr
	}

	return []string{"server-1"}, nil
}

func TestService(t *testing.T) {
	targets := []warmer.Target{
		{Function: "site-default", Concurrency: 2},
		{Function: "site-api", Concurrency: 1},
	}

	t.Run("Warm", func(t *testing.T) {
		m := &mock{expectVal: targets}
		service := New(m, targets)

		err := service.Run(context.Background(), events.CloudWatchEvent{ID: "test"})
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(m.called, 1),
		)
	})

	t.Run("WarmFailed", func(t *testing.T) {
		m := &mock{expectVal: targets, returnErr: fmt.Errorf("throttled")}
		service := New(m, targets)

		err := service.Run(context.Background(), events.CloudWatchEvent{ID: "test"})
		it.Then(t).ShouldNot(it.Nil(err))
	})

	t.Run("NoTargets", func(t *testing.T) {
		m := &mock{}
		service := New(m, nil)

		err := service.Run(context.Background(), events.CloudWatchEvent{ID: "test"})
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(m.called, 0),
		)
	})
}
