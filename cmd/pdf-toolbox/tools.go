// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pdf-toolbox/internal/help"
)

var toolsCmd = &cobra.Command{
	Use:   "tools [tool]",
	Short: "List the available tools or show the parameters of one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, registry := state.services()
		defer svc.Close()

		h := help.NewSystem(cmd.OutOrStdout(), noColor)
		if len(args) == 0 {
			h.ShowToolsHelp(registry.Categories())
			return nil
		}
		t, _ := registry.Get(args[0])
		if !h.ShowToolHelp(args[0], t) {
			return fmt.Errorf("unknown tool %q", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
