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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	lambda "github.com/aws/aws-lambda-go/events"
	"github.com/cenkalti/backoff/v5"
	"github.com/fogfish/nextsite/internal/events"
)

// Headers instructing Next.js server to regenerate the page. The server
// regenerates only if x-prerender-revalidate equals preview mode id of
// the build.
const (
	HeaderRevalidate = "x-prerender-revalidate"
	HeaderISR        = "x-isr"
)

// Time kept in reserve before the invocation deadline to report failures
const Reserve = 500 * time.Millisecond

var ErrDeadline = errors.New("no time left before invocation deadline")

type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

type Service struct {
	client        Client
	previewModeID string
	maxTries      uint
	reserve       time.Duration
}

func New(client Client, previewModeID string, maxTries uint) *Service {
	if maxTries == 0 {
		maxTries = 1
	}

	return &Service{
		client:        client,
		previewModeID: previewModeID,
		maxTries:      maxTries,
		reserve:       Reserve,
	}
}

// Run revalidates pages requested by messages, failed messages are returned
// to the queue. Time left till the invocation deadline is shared equally by
// pending messages, messages left without time are failed.
func (s *Service) Run(ctx context.Context, evt lambda.SQSEvent) (lambda.SQSEventResponse, error) {
	var rsp lambda.SQSEventResponse

	for i, msg := range evt.Records {
		budget, err := s.budget(ctx, len(evt.Records)-i)
		if err == nil {
			err = s.revalidate(ctx, msg, budget)
		}

		if err != nil {
			slog.Error("revalidation failed", "id", msg.MessageId, "err", err)
			rsp.BatchItemFailures = append(rsp.BatchItemFailures,
				lambda.SQSBatchItemFailure{ItemIdentifier: msg.MessageId},
			)
		}
	}

	return rsp, nil
}

// budget of time for the message, zero if invocation has no deadline
func (s *Service) budget(ctx context.Context, pending int) (time.Duration, error) {
	deadline, has := ctx.Deadline()
	if !has {
		return 0, nil
	}

	left := time.Until(deadline) - s.reserve
	if left <= 0 {
		return 0, ErrDeadline
	}

	return left / time.Duration(pending), nil
}

func (s *Service) revalidate(ctx context.Context, msg lambda.SQSMessage, budget time.Duration) error {
	var page events.Revalidation
	if err := json.Unmarshal([]byte(msg.Body), &page); err != nil {
		return fmt.Errorf("malformed message: %w", err)
	}

	if page.Host == "" || !strings.HasPrefix(page.URL, "/") {
		return fmt.Errorf("malformed message: host %q, url %q", page.Host, page.URL)
	}

	url := "https://" + page.Host + page.URL

	opts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.maxTries),
	}

	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()

		opts = append(opts, backoff.WithMaxElapsedTime(budget))
	}

	status, err := backoff.Retry(ctx,
		func() (int, error) { return s.head(ctx, url) },
		opts...,
	)
	if err != nil {
		return err
	}

	slog.Info("page revalidated", "url", url, "status", status)

	return nil
}

func (s *Service) head(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	req.Header.Set(HeaderRevalidate, s.previewModeID)
	req.Header.Set(HeaderISR, "1")

	rsp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, backoff.Permanent(err)
		}
		return 0, err
	}
	defer rsp.Body.Close()
	io.Copy(io.Discard, rsp.Body)

	if rsp.StatusCode >= 500 {
		return rsp.StatusCode, fmt.Errorf("%s responded %s", url, rsp.Status)
	}

	return rsp.StatusCode, nil
}
