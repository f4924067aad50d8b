package run

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blockplan-io/blockplan/pkg/configuration"
	"github.com/blockplan-io/blockplan/pkg/device"
)

var ptableList bool

var ptableCmd = &cobra.Command{
	Use:   "ptable [device]",
	Short: "Show the observed partition table of a disk",
	Long: `ptable scans a live disk and prints its partition table as the
layout engine observes it. With --list, the disks matching the
configured disk selectors are listed instead.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		scanner := device.NewDiskScanner()

		if ptableList {
			disks, err := scanner.ListDevices("")
			if err != nil {
				return err
			}
			for _, group := range configuration.DiskSelector() {
				for _, d := range device.MatchDisks(disks, group.Re) {
					fmt.Printf("%s\t%s\n", group.Name, d.Name)
				}
			}
			return nil
		}

		if len(args) != 1 {
			return fmt.Errorf("expected exactly one device argument")
		}
		devPath := args[0]

		label, err := scanner.TableLabel(devPath)
		if err != nil {
			return err
		}
		if label == "" {
			fmt.Printf("%s has no partition table\n", devPath)
			return nil
		}

		sectorBytes := device.SectorSizeOrDefault(devPath)
		table, err := scanner.ObservedTable(devPath, label, sectorBytes)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(table, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	ptableCmd.Flags().BoolVar(&ptableList, "list", false, "List disks matching the configured selectors")
	rootCmd.AddCommand(ptableCmd)
}
