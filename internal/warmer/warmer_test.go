//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

package warmer_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/fogfish/it/v2"
	"github.com/fogfish/nextsite/internal/events"
	"github.com/fogfish/nextsite/internal/warmer"
)

func TestTargets(t *testing.T) {
	functions := map[string]string{
		"default":        "site-default",
		"imageOptimizer": "site-image",
		"api":            "site-api",
		"fetchingPage":   "site-fetching",
	}

	t.Run("Defaults", func(t *testing.T) {
		seq := warmer.Targets(functions, warmer.Config{Enabled: true})
		it.Then(t).Should(
			it.Equiv(seq, []warmer.Target{
				{Function: "site-api", Concurrency: 1},
				{Function: "site-default", Concurrency: 1},
				{Function: "site-fetching", Concurrency: 1},
				{Function: "site-image", Concurrency: 1},
			}),
		)
	})

	t.Run("PerFunction", func(t *testing.T) {
		seq := warmer.Targets(functions, warmer.Config{
			Enabled:     true,
			Concurrency: 2,
			Functions: map[string]warmer.Function{
				"api":            {Concurrency: aws.Int(5)},
				"fetchingPage":   {Enabled: aws.Bool(false)},
				"imageOptimizer": {Enabled: aws.Bool(true)},
			},
		})
		it.Then(t).Should(
			it.Equiv(seq, []warmer.Target{
				{Function: "site-api", Concurrency: 5},
				{Function: "site-default", Concurrency: 2},
				{Function: "site-image", Concurrency: 2},
			}),
		)
	})

	t.Run("Encoding", func(t *testing.T) {
		raw, err := json.Marshal(warmer.Targets(map[string]string{"default": "fn"}, warmer.Config{}))
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(string(raw), `[{"function":"fn","concurrency":1}]`),
		)

		seq, err := warmer.DecodeTargets(string(raw))
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(seq[0].Function, "fn"),
		)
	})
}

func TestResolve(t *testing.T) {
	cfg := warmer.Config{}.Resolve()
	it.Then(t).Should(
		it.Equal(cfg.Enabled, false),
		it.Equal(cfg.Schedule, warmer.DefaultSchedule),
		it.Equal(cfg.Concurrency, warmer.DefaultConcurrency),
	)
}

func TestWarms(t *testing.T) {
	cfg := warmer.Config{
		Enabled: true,
		Functions: map[string]warmer.Function{
			"api":            {Concurrency: aws.Int(2)},
			"imageOptimizer": {Enabled: aws.Bool(false)},
			"default":        {Enabled: aws.Bool(true)},
		},
	}

	it.Then(t).Should(
		it.True(cfg.Warms("default")),
		it.True(cfg.Warms("api")),
		it.True(cfg.Warms("fetchingPage")),
		it.True(!cfg.Warms("imageOptimizer")),
	)
}

//------------------------------------------------------------------------------

type mock struct {
	sync.Mutex
	calls map[string][]events.Warming
	fail  string
}

func (m *mock) Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	name := aws.ToString(params.FunctionName)
	if name == m.fail {
		return nil, fmt.Errorf("throttled")
	}

	var evt events.Warming
	if err := json.Unmarshal(params.Payload, &evt); err != nil {
		return nil, err
	}

	m.Lock()
	m.calls[name] = append(m.calls[name], evt)
	m.Unlock()

	rsp, _ := json.Marshal(events.Warmed{
		Type:     events.TypeWarmer,
		ServerID: fmt.Sprintf("%s-%d", name, evt.Index),
	})

	return &lambda.InvokeOutput{StatusCode: 200, Payload: rsp}, nil
}

func TestService(t *testing.T) {
	t.Run("Warm", func(t *testing.T) {
		api := &mock{calls: map[string][]events.Warming{}}
		service := warmer.New(api)

		ids, err := service.Warm(context.Background(), []warmer.Target{
			{Function: "a", Concurrency: 2},
			{Function: "b", Concurrency: 1},
		})
		it.Then(t).Should(
			it.Nil(err),
			it.Equiv(ids, []string{"a-0", "a-1", "b-0"}),
			it.Equal(len(api.calls["a"]), 2),
			it.Equal(api.calls["a"][0].Type, events.TypeWarmer),
			it.Equal(api.calls["a"][0].Concurrency, 2),
			it.Equal(api.calls["a"][0].WarmerID, api.calls["b"][0].WarmerID),
		)
	})

	t.Run("Failed", func(t *testing.T) {
		api := &mock{calls: map[string][]events.Warming{}, fail: "b"}
		service := warmer.New(api)

		_, err := service.Warm(context.Background(), []warmer.Target{
			{Function: "b", Concurrency: 1},
		})
		it.Then(t).ShouldNot(it.Nil(err))
	})
}
