//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

package main

import (
	"os"

	_ "github.com/fogfish/logger/v3"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "opennext",
	Short:         "Utilities for OpenNext build deployed with nextsite",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(verifyCmd, fixSymlinksCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// application directory, current one if not given
func appDir(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}
