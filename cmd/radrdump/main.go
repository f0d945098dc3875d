// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Command radrdump inspects RADR archives and CSAV save files from the
// command line, paralleling saferwall-pe's cmd/dump.go + cmd/main.go
// split but organized as a cobra.Command tree (`dump archive`,
// `dump save`) instead of a single flag.FlagSet, since this module has
// two independent top-level subjects that benefit from a subcommand
// tree the way the single-subject PE dumper didn't.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "radrdump",
		Short: "Inspect RADR archives and CSAV save files",
	}
	dump := &cobra.Command{
		Use:   "dump",
		Short: "Dump a parsed archive or save file as JSON",
	}
	dump.AddCommand(newDumpArchiveCmd())
	dump.AddCommand(newDumpSaveCmd())
	root.AddCommand(dump)
	return root
}
