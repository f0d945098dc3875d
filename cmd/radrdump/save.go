// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/redxtools/radrkit/csav"
	"github.com/redxtools/radrkit/csys/catalog"
	"github.com/redxtools/radrkit/internal/rlog"
)

type saveDump struct {
	Version        csav.Version   `json:"version"`
	Inventory      *inventoryDump `json:"inventory,omitempty"`
	FactsTable     *factsDump     `json:"facts_table,omitempty"`
	PSDataObjects  int            `json:"ps_data_objects,omitempty"`
	GenericSystems map[string]int `json:"generic_system_object_counts,omitempty"`
}

type inventoryDump struct {
	SubInventories int `json:"sub_inventories"`
	TotalItems     int `json:"total_items"`
}

type factsDump struct {
	Count int              `json:"count"`
	Facts []factEntryDump  `json:"facts"`
}

type factEntryDump struct {
	Hash  string `json:"hash"`
	Value uint32 `json:"value"`
}

func newDumpSaveCmd() *cobra.Command {
	var blueprintsPath, enumsPath string

	cmd := &cobra.Command{
		Use:   "save <save.csav>",
		Short: "Decode a save file's recognized node tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := rlog.NewFilter(rlog.NewStdLogger(os.Stderr), rlog.FilterLevel(rlog.LevelWarn))
			cat := catalog.New(rlog.NewHelper(logger))

			if blueprintsPath != "" {
				f, err := os.Open(blueprintsPath)
				if err != nil {
					return fmt.Errorf("open blueprints: %w", err)
				}
				defer f.Close()
				if err := cat.LoadBlueprints(f); err != nil {
					return fmt.Errorf("load blueprints: %w", err)
				}
			}
			if enumsPath != "" {
				f, err := os.Open(enumsPath)
				if err != nil {
					return fmt.Errorf("open enums: %w", err)
				}
				defer f.Close()
				if err := cat.LoadEnums(f); err != nil {
					return fmt.Errorf("load enums: %w", err)
				}
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read save: %w", err)
			}
			tree, err := csav.Decode(raw)
			if err != nil {
				return fmt.Errorf("decode container: %w", err)
			}
			save, err := csav.Dispatch(tree, cat)
			if err != nil {
				return fmt.Errorf("dispatch nodes: %w", err)
			}

			return printJSON(summarize(save))
		},
	}

	cmd.Flags().StringVar(&blueprintsPath, "blueprints", "", "path to the blueprint catalog JSON resource")
	cmd.Flags().StringVar(&enumsPath, "enums", "", "path to the enum table JSON resource")
	return cmd
}

func summarize(save *csav.Save) saveDump {
	dmp := saveDump{Version: save.Tree.Version}

	if save.Inventory != nil {
		items := 0
		for _, sub := range save.Inventory.SubInventories {
			items += len(sub.Items)
		}
		dmp.Inventory = &inventoryDump{
			SubInventories: len(save.Inventory.SubInventories),
			TotalItems:     items,
		}
	}

	if save.FactsTable != nil {
		fd := &factsDump{Count: len(save.FactsTable.Facts)}
		for _, f := range save.FactsTable.Facts {
			fd.Facts = append(fd.Facts, factEntryDump{
				Hash:  fmt.Sprintf("%#08x", f.Hash),
				Value: f.Value,
			})
		}
		dmp.FactsTable = fd
	}

	if save.PSData != nil {
		dmp.PSDataObjects = len(save.PSData.System.Objects)
	}

	if len(save.GenericSystems) > 0 {
		dmp.GenericSystems = make(map[string]int, len(save.GenericSystems))
		for name, gs := range save.GenericSystems {
			dmp.GenericSystems[name] = len(gs.System.Objects)
		}
	}

	return dmp
}
