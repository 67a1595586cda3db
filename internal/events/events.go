//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

// Package events defines payloads exchanged with OpenNext servers and
// the revalidation queue.
package events

const TypeWarmer = "warmer"

// Warming request, OpenNext servers recognize it by type and hold the
// request for delay (ms) so that concurrent requests land on distinct
// instances.
type Warming struct {
	Type        string `json:"type"`
	WarmerID    string `json:"warmerId"`
	Index       int    `json:"index"`
	Concurrency int    `json:"concurrency"`
	Delay       int    `json:"delay"`
}

// Warmed is response of the server on warming request
type Warmed struct {
	Type     string `json:"type"`
	ServerID string `json:"serverId"`
}

// Revalidation of the page, the message of revalidation queue.
// (e.g. {"host": "example.com", "url": "/blog/1"})
type Revalidation struct {
	Host string `json:"host"`
	URL  string `json:"url"`
}
