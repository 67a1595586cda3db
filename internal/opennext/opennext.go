//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

// Package opennext reads the build manifest produced by the OpenNext
// adapter (.open-next/open-next.output.json) and exposes the origins,
// behaviors and bundles the infrastructure is derived from.
package opennext

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/samber/lo"
)

const (
	OutputDir  = ".open-next"
	OutputFile = "open-next.output.json"
)

// Well-known origins of OpenNext output
const (
	OriginS3      = "s3"
	OriginDefault = "default"
	OriginImage   = "imageOptimizer"
)

// Kinds of origins
const (
	TypeFunction = "function"
	TypeECS      = "ecs"
	TypeS3       = "s3"
)

// Path pattern of the default behavior
const PatternDefault = "*"

var (
	ErrNotFound  = errors.New("open-next output not found")
	ErrMalformed = errors.New("malformed open-next output")
)

// Function is a deployable bundle
type Function struct {
	Handler string `json:"handler"`
	Bundle  string `json:"bundle"`
}

// Copy instructs to upload the directory to the bucket
type Copy struct {
	From            string `json:"from"`
	To              string `json:"to"`
	Cached          bool   `json:"cached"`
	VersionedSubDir string `json:"versionedSubDir,omitempty"`
}

// Origin is union of function, ecs and s3 origins
type Origin struct {
	Type string `json:"type"`

	// function and ecs
	Handler    string `json:"handler,omitempty"`
	Bundle     string `json:"bundle,omitempty"`
	Streaming  bool   `json:"streaming,omitempty"`
	Dockerfile string `json:"dockerfile,omitempty"`

	// overrides applied by adapter to the unit
	Wrapper          string `json:"wrapper,omitempty"`
	Converter        string `json:"converter,omitempty"`
	Queue            string `json:"queue,omitempty"`
	IncrementalCache string `json:"incrementalCache,omitempty"`
	TagCache         string `json:"tagCache,omitempty"`
	ImageLoader      string `json:"imageLoader,omitempty"`

	// s3
	OriginPath string `json:"originPath,omitempty"`
	Copy       []Copy `json:"copy,omitempty"`
}

// Overrides of server units backed by this infrastructure (Lambda function
// URL, S3, DynamoDB and SQS). Undefined override is the adapter default.
var SupportedOverrides = map[string][]string{
	"wrapper":          {"aws-lambda", "aws-lambda-streaming", "aws-lambda-compressed"},
	"converter":        {"aws-apigw-v2"},
	"incrementalCache": {"s3", "s3-lite", "multi-tier-ddb-s3"},
	"tagCache":         {"dynamodb", "dynamodb-lite", "dynamodb-nextMode"},
	"queue":            {"sqs", "sqs-lite", "direct"},
	"imageLoader":      {"s3", "s3-lite", "host"},
}

// Overrides defined for the origin
func (o Origin) Overrides() map[string]string {
	return lo.PickBy(
		map[string]string{
			"wrapper":          o.Wrapper,
			"converter":        o.Converter,
			"incrementalCache": o.IncrementalCache,
			"tagCache":         o.TagCache,
			"queue":            o.Queue,
			"imageLoader":      o.ImageLoader,
		},
		func(_ string, v string) bool { return v != "" },
	)
}

// UnsupportedOverrides of the origin as name=value, ordered by name
func (o Origin) UnsupportedOverrides() []string {
	var seq []string
	for name, value := range o.Overrides() {
		if !lo.Contains(SupportedOverrides[name], value) {
			seq = append(seq, name+"="+value)
		}
	}
	sort.Strings(seq)
	return seq
}

// Behavior routes path pattern to the origin
type Behavior struct {
	Pattern      string `json:"pattern"`
	Origin       string `json:"origin,omitempty"`
	EdgeFunction string `json:"edgeFunction,omitempty"`
}

type AdditionalProps struct {
	DisableIncrementalCache bool      `json:"disableIncrementalCache,omitempty"`
	DisableTagCache         bool      `json:"disableTagCache,omitempty"`
	InitializationFunction  *Function `json:"initializationFunction,omitempty"`
	Warmer                  *Function `json:"warmer,omitempty"`
	RevalidationFunction    *Function `json:"revalidationFunction,omitempty"`
}

// Output is the manifest of OpenNext build
type Output struct {
	EdgeFunctions   map[string]Function `json:"edgeFunctions"`
	Origins         map[string]Origin   `json:"origins"`
	Behaviors       []Behavior          `json:"behaviors"`
	AdditionalProps AdditionalProps     `json:"additionalProps"`
}

// NamedOrigin is origin together with its key in the manifest
type NamedOrigin struct {
	Name string
	Origin
}

// Load the manifest of OpenNext build located at the application path
func Load(path string) (*Output, error) {
	file := filepath.Join(path, OutputDir, OutputFile)

	raw, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, file)
		}
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}

	return Parse(raw)
}

// Parse the manifest of OpenNext build
func Parse(raw []byte) (*Output, error) {
	var out Output
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if err := out.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return &out, nil
}

func (out *Output) validate() error {
	s3, has := out.Origins[OriginS3]
	if !has || s3.Type != TypeS3 {
		return errors.New("origin s3 is required")
	}

	for key, origin := range out.Origins {
		if origin.Type == TypeFunction && (origin.Handler == "" || origin.Bundle == "") {
			return fmt.Errorf("origin %s requires handler and bundle", key)
		}
	}

	if _, has := out.DefaultBehavior(); !has {
		return fmt.Errorf("behavior %q is required", PatternDefault)
	}

	return nil
}

// S3 origin of static assets
func (out *Output) S3() Origin { return out.Origins[OriginS3] }

// FunctionOrigins lists origins served by Lambda functions, s3 and ecs
// origins are skipped. The default server comes first, followed by image
// optimizer and split servers ordered by name.
func (out *Output) FunctionOrigins() []NamedOrigin {
	fns := lo.PickBy(out.Origins,
		func(_ string, o Origin) bool { return o.Type == TypeFunction },
	)

	keys := lo.Keys(fns)
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})

	return lo.Map(keys,
		func(key string, _ int) NamedOrigin { return NamedOrigin{Name: key, Origin: fns[key]} },
	)
}

func rank(key string) int {
	switch key {
	case OriginDefault:
		return 0
	case OriginImage:
		return 1
	default:
		return 2
	}
}

// DefaultBehavior is the catch-all behavior
func (out *Output) DefaultBehavior() (Behavior, bool) {
	return lo.Find(out.Behaviors,
		func(b Behavior) bool { return b.Pattern == PatternDefault },
	)
}

// OrderedBehaviors are non default behaviors in the order of manifest
func (out *Output) OrderedBehaviors() []Behavior {
	return lo.Filter(out.Behaviors,
		func(b Behavior, _ int) bool { return b.Pattern != PatternDefault },
	)
}

// OriginID maps origin referenced by behavior to the key of origin.
func OriginID(origin string) string {
	switch origin {
	case "imageOptimization":
		return OriginImage
	default:
		return origin
	}
}
