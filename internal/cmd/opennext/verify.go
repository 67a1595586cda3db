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

var verifyCmd = &cobra.Command{
	Use:   "verify [dir]",
	Short: "Verify OpenNext build is deployable",
	Long: `Checks the OpenNext build of application located at the directory:
the manifest exists, server and image optimization functions are bundled,
the build has no broken symlinks.`,
	Args: cobra.MaximumNArgs(1),
	RunE: verify,
}

func verify(cmd *cobra.Command, args []string) error {
	dir := appDir(args)

	if err := opennext.Verify(dir); err != nil {
		return err
	}

	output, err := opennext.Load(dir)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "OpenNext build at %s is deployable: %d functions, %d behaviors\n",
		dir, len(output.FunctionOrigins()), len(output.Behaviors))

	return nil
}
