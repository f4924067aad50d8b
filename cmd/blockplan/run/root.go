package run

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	blockplan "github.com/blockplan-io/blockplan"
	"github.com/blockplan-io/blockplan/pkg/storageconfig"
)

var config struct {
	probeData  string
	strict     bool
	sectorSize uint64
}

var rootCmd = &cobra.Command{
	Use:     "blockplan",
	Version: blockplan.Version,
	Short:   "Installer storage planning",
	Long: `blockplan resolves declarative storage configuration into a
dependency-ordered action list and computes the partition tables to
write, including preserve reconciliation and wipe planning.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&config.probeData, "probe-data", blockplan.DefaultProbeDataPath, "Path of the probe data snapshot")
	pf.BoolVar(&config.strict, "strict", false, "Treat extraction validation errors as fatal")
	pf.Uint64Var(&config.sectorSize, "sector-size", 512, "Logical sector size used for planning")
}

// storageWrapper is the on-disk document shape: a single storage key
// holding the versioned configuration list.
type storageWrapper struct {
	Storage storageDoc `yaml:"storage" json:"storage"`
}

type storageDoc struct {
	Version int                   `yaml:"version" json:"version"`
	Config  []*storageconfig.Item `yaml:"config" json:"config"`
}

func wrapItems(items []*storageconfig.Item) storageWrapper {
	return storageWrapper{Storage: storageDoc{
		Version: blockplan.StorageConfigVersion,
		Config:  items,
	}}
}
