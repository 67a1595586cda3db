//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

package opennext

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Prerender manifest of Next.js build, relative to the application path
const PrerenderManifest = ".next/prerender-manifest.json"

type prerender struct {
	Preview struct {
		PreviewModeID string `json:"previewModeId"`
	} `json:"preview"`
}

// PreviewModeID of the Next.js build. Server regenerates the page only if
// x-prerender-revalidate header carries this value.
func PreviewModeID(path string) (string, error) {
	file := filepath.Join(path, PrerenderManifest)

	raw, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, file)
		}
		return "", fmt.Errorf("reading %s: %w", file, err)
	}

	var manifest prerender
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrMalformed, file, err)
	}

	if manifest.Preview.PreviewModeID == "" {
		return "", fmt.Errorf("%w: %s: previewModeId is not defined", ErrMalformed, file)
	}

	return manifest.Preview.PreviewModeID, nil
}
