//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

package main

import (
	"fmt"

	"github.com/fogfish/nextsite/internal/opennext"
	"github.com/spf13/cobra"
)

var fixSymlinksCmd = &cobra.Command{
	Use:   "fix-symlinks [dir]",
	Short: "Replace broken pnpm symlinks of OpenNext build with executables",
	Args:  cobra.MaximumNArgs(1),
	RunE:  fixSymlinks,
}

func fixSymlinks(cmd *cobra.Command, args []string) error {
	report, err := opennext.FixSymlinks(appDir(args))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "fixed %d, failed %d\n", report.Fixed, report.Failed)

	return nil
}
