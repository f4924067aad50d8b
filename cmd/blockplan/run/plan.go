package run

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/blockplan-io/blockplan/pkg/device"
	"github.com/blockplan-io/blockplan/pkg/ptable"
	"github.com/blockplan-io/blockplan/pkg/storageconfig"
	"github.com/blockplan-io/blockplan/utils/log"
)

var planFlags struct {
	configFile string
	apply      bool
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute partition tables for a storage configuration",
	Long: `plan reads a storage configuration document, orders it by
dependency, and computes the partition table and wipe plan for every
disk that carries a gpt or dos table. With --apply the tables are
written with sfdisk and preserved partitions are reconciled against the
live disks first.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		raw, err := os.ReadFile(planFlags.configFile)
		if err != nil {
			return err
		}
		var doc storageWrapper
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return err
		}

		merged, err := orderConfig(storageconfig.NewConfig(doc.Storage.Config))
		if err != nil {
			return err
		}

		observed := map[string]*ptable.ObservedTable{}
		sectorSizes := map[string]uint64{}
		scanner := device.NewDiskScanner()
		if planFlags.apply {
			for _, it := range merged.Items() {
				if it.Type != storageconfig.Disk || it.Path == "" {
					continue
				}
				// each disk plans with its own logical sector size,
				// a 4096-byte disk must not inherit the 512 default
				sectorSizes[it.ID] = device.SectorSizeOrDefault(it.Path)
				label, err := scanner.TableLabel(it.Path)
				if err != nil || label == "" {
					continue
				}
				table, err := scanner.ObservedTable(it.Path, label, sectorSizes[it.ID])
				if err != nil {
					return err
				}
				observed[it.ID] = table
			}
		}

		plans, err := ptable.PlanConfig(merged, config.sectorSize, sectorSizes, observed, nil)
		if err != nil {
			return err
		}
		for _, plan := range plans {
			fmt.Printf("# %s (%s)\n", plan.Disk.ID, plan.Disk.Path)
			fmt.Print(plan.Layout.Table.Render())
			for _, entry := range plan.Layout.Table.Entries() {
				fmt.Printf("# wipe %d: %s\n", entry.Number, plan.Layout.Wipes[entry.Start])
			}
			for _, deleted := range plan.Layout.Deleted {
				fmt.Printf("# delete %s\n", deleted.Node)
			}
		}

		if planFlags.apply {
			return applyPlans(merged, plans)
		}
		return nil
	},
}

func orderConfig(cfg *storageconfig.Config) (*storageconfig.Config, error) {
	var trees []*storageconfig.Tree
	for _, it := range cfg.Items() {
		tree, err := storageconfig.BuildConfigTree(it.ID, cfg)
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}
	return storageconfig.NewConfig(storageconfig.MergeConfigTrees(trees)), nil
}

func applyPlans(cfg *storageconfig.Config, plans []ptable.DiskPlan) error {
	applier := device.NewSfdiskApplier()
	for _, plan := range plans {
		if plan.Disk.Path == "" {
			return fmt.Errorf("disk %s has no path, cannot apply", plan.Disk.ID)
		}
		log.Infof("applying layout to %s", plan.Disk.Path)
		if err := applier.Apply(plan.Disk.Path, plan.Layout); err != nil {
			return err
		}
	}

	// arrays assembled on the new partitions must settle before anything
	// is built on top of them
	waiter, err := device.NewRaidWaiter()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	for _, it := range cfg.Items() {
		if it.Type != storageconfig.Raid {
			continue
		}
		log.Infof("waiting for raid %s to settle", it.Name)
		if err := waiter.WaitSynced(ctx, it.Name); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	planCmd.Flags().StringVarP(&planFlags.configFile, "config", "c", "", "Storage configuration document")
	planCmd.Flags().BoolVar(&planFlags.apply, "apply", false, "Write the computed tables to the disks")
	planCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(planCmd)
}
