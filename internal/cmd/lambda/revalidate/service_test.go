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
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/fogfish/it/v2"
)

const previewModeID = "4c2a1f9e0b7d3e5a"

type mock struct {
	status map[string]int
	calls  []*http.Request
}

func (m *mock) Do(req *http.Request) (*http.Response, error) {
	m.calls = append(m.calls, req)

	if req.Method != http.MethodHead {
		return nil, fmt.Errorf("unexpected method %s", req.Method)
	}

	if req.Header.Get(HeaderRevalidate) != previewModeID || req.Header.Get(HeaderISR) != "1" {
		return nil, fmt.Errorf("revalidation headers are missing")
	}

	status, has := m.status[req.URL.String()]
	if !has {
		return nil, fmt.Errorf("connection refused")
	}

	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

func sqs(id, body string) events.SQSMessage {
	return events.SQSMessage{MessageId: id, Body: body}
}

func TestService(t *testing.T) {
	m := &mock{
		status: map[string]int{
			"https://example.com/blog/1": http.StatusOK,
			"https://example.com/blog/2": http.StatusNotFound,
			"https://example.com/broken": http.StatusBadGateway,
		},
	}
	service := New(m, previewModeID, 2)

	t.Run("Revalidate", func(t *testing.T) {
		m.calls = nil
		rsp, err := service.Run(context.Background(), events.SQSEvent{
			Records: []events.SQSMessage{
				sqs("1", `{"host": "example.com", "url": "/blog/1"}`),
				sqs("2", `{"host": "example.com", "url": "/blog/2"}`),
			},
		})
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(len(rsp.BatchItemFailures), 0),
			it.Equal(len(m.calls), 2),
			it.Equal(m.calls[0].URL.Host, "example.com"),
		)
	})

	t.Run("Failures", func(t *testing.T) {
		m.calls = nil
		rsp, err := service.Run(context.Background(), events.SQSEvent{
			Records: []events.SQSMessage{
				sqs("1", `{"host": "example.com", "url": "/blog/1"}`),
				sqs("2", `{"host": "example.com", "url": "/broken"}`),
				sqs("3", `{"host": "unknown.com", "url": "/"}`),
				sqs("4", `not a json`),
				sqs("5", `{"host": "", "url": "/"}`),
			},
		})
		it.Then(t).Should(
			it.Nil(err),
			it.Equiv(rsp.BatchItemFailures, []events.SQSBatchItemFailure{
				{ItemIdentifier: "2"},
				{ItemIdentifier: "3"},
				{ItemIdentifier: "4"},
				{ItemIdentifier: "5"},
			}),
			// one call for success, retries for each failed request
			it.Equal(len(m.calls), 5),
		)
	})
}

// hang keeps connection open until request is cancelled
type hang struct{ urls []string }

func (h *hang) Do(req *http.Request) (*http.Response, error) {
	h.urls = append(h.urls, req.URL.String())
	<-req.Context().Done()
	return nil, req.Context().Err()
}

func TestServiceDeadline(t *testing.T) {
	records := []events.SQSMessage{
		sqs("1", `{"host": "example.com", "url": "/slow/1"}`),
		sqs("2", `{"host": "example.com", "url": "/slow/2"}`),
	}

	t.Run("Budget", func(t *testing.T) {
		h := &hang{}
		service := New(h, previewModeID, 3)
		service.reserve = 50 * time.Millisecond

		deadline := time.Now().Add(600 * time.Millisecond)
		ctx, cancel := context.WithDeadline(context.Background(), deadline)
		defer cancel()

		rsp, err := service.Run(ctx, events.SQSEvent{Records: records})
		it.Then(t).Should(
			it.Nil(err),
			it.True(time.Now().Before(deadline)),
			it.Equiv(rsp.BatchItemFailures, []events.SQSBatchItemFailure{
				{ItemIdentifier: "1"},
				{ItemIdentifier: "2"},
			}),
			it.Equiv(h.urls, []string{
				"https://example.com/slow/1",
				"https://example.com/slow/2",
			}),
		)
	})

	t.Run("NoTimeLeft", func(t *testing.T) {
		h := &hang{}
		service := New(h, previewModeID, 3)
		service.reserve = 50 * time.Millisecond

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		rsp, err := service.Run(ctx, events.SQSEvent{Records: records})
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(len(rsp.BatchItemFailures), 2),
			it.Equal(len(h.urls), 0),
		)
	})
}
