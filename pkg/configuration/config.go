/*
   Copyright @ 2021 bocloud <fushaosong@beyondcent.com>.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package configuration

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	blockplan "github.com/blockplan-io/blockplan"
	"github.com/blockplan-io/blockplan/utils"
	"github.com/blockplan-io/blockplan/utils/log"
)

const configPath = blockplan.DefaultConfigPath

var configModifyNotice []chan<- struct{}
var GlobalConfig *viper.Viper
var planConfig Plan
var configLoaded bool

var opt = viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
	mapstructure.StringToTimeDurationHookFunc(),
	mapstructure.StringToSliceHookFunc(","),
	func(rf reflect.Kind, rt reflect.Kind, data interface{}) (interface{}, error) {
		if rf != reflect.Map || rt != reflect.Struct {
			return data, nil
		}
		mapstructure.Decode(data.(map[string]interface{}), &planConfig)
		planConfig.DiskSelectors = []DiskSelectorItem{}
		mapstructure.Decode(data.(map[string]interface{})["diskselector"], &planConfig.DiskSelectors)
		return data, nil
	},
))

// DiskSelectorItem names one group of disks eligible for planning and
// the expressions that select them.
type DiskSelectorItem struct {
	Name   string   `json:"name"`
	Re     []string `json:"re"`
	Policy string   `json:"policy"`
}

type Plan struct {
	DiskSelectors    []DiskSelectorItem `json:"diskSelectors"`
	DiskScanInterval int64              `json:"diskScanInterval"`
	StrictExtract    bool               `json:"strictExtract"`
	DefaultPtable    string             `json:"defaultPtable"`
}

func init() {
	log.Info("Loading global configuration ...")
	GlobalConfig = initConfig()
	if configLoaded {
		go dynamicConfig()
	}
}

func initConfig() *viper.Viper {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName("config")
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		log.Warnf("No configuration at %sconfig.json, using defaults: %s", configPath, err)
		return v
	}
	if err := v.Unmarshal(&planConfig, opt); err != nil {
		log.Errorf("Failed to unmarshal the configuration: %s, using defaults", err)
		return v
	}
	if err := validate(planConfig); err != nil {
		log.Errorf("Failed to validate the configuration: %s, using defaults", err)
		planConfig = Plan{}
		return v
	}
	configLoaded = true
	return v
}

func dynamicConfig() {
	GlobalConfig.WatchConfig()
	GlobalConfig.OnConfigChange(func(event fsnotify.Event) {
		log.Infof("Detect config change: %s", event.String())
		if err := GlobalConfig.Unmarshal(&planConfig, opt); err != nil {
			log.Errorf("Failed to unmarshal the configuration: %s, ignore this change", err)
			return
		}
		if err := validate(planConfig); err != nil {
			log.Errorf("Failed to validate the configuration: %s, ignore this change", err)
			return
		}
		for _, c := range configModifyNotice {
			log.Info("Generates the configuration change event")
			c <- struct{}{}
		}
	})
}

func RegisterListenerChan(c chan<- struct{}) {
	configModifyNotice = append(configModifyNotice, c)
}

// DiskSelector returns the configured disk groups. Changing selectors on
// a live system needs care: narrowing an expression can pull disks that
// are already planned out of scope.
func DiskSelector() []DiskSelectorItem {
	diskSelector := planConfig.DiskSelectors
	if len(diskSelector) == 0 {
		log.Warn("No disk is eligible because disk selector is not configured")
	}
	return diskSelector
}

// DiskScanInterval is the rescan period in seconds, 300s minimum. Zero
// disables rescanning.
func DiskScanInterval() int64 {
	diskScanInterval := GlobalConfig.GetInt64("diskScanInterval")
	if diskScanInterval == 0 {
		return 0
	}
	if diskScanInterval < 300 {
		diskScanInterval = 300
	}
	return diskScanInterval
}

// StrictExtract reports whether probe extraction treats validation
// errors as fatal instead of dropping the offending entries.
func StrictExtract() bool {
	return GlobalConfig.GetBool("strictExtract")
}

// DefaultPtable is the table label given to disks whose configuration
// does not name one.
func DefaultPtable() string {
	ptable := GlobalConfig.GetString("defaultPtable")
	if !utils.ContainsString([]string{"gpt", "dos", "msdos"}, ptable) {
		ptable = "gpt"
	}
	return ptable
}

func validate(plan Plan) error {
	groups := make(map[string]bool)
	var groupNameRegexp = regexp.MustCompile("^([A-Za-z0-9][-A-Za-z0-9_.]*)?[A-Za-z0-9]$")
	var scanIntervalRegexp = regexp.MustCompile("(?i)^([0-9]*)?$")
	var ptableRegexp = regexp.MustCompile("(?i)^(gpt|dos|msdos)?$")

	if !scanIntervalRegexp.MatchString(strconv.FormatInt(plan.DiskScanInterval, 10)) {
		return fmt.Errorf("diskScanInterval must be a number: %s", strconv.FormatInt(plan.DiskScanInterval, 10))
	}
	if !ptableRegexp.MatchString(plan.DefaultPtable) {
		return fmt.Errorf("defaultPtable must be gpt, dos or msdos: %s", plan.DefaultPtable)
	}
	for _, dc := range plan.DiskSelectors {
		if len(dc.Name) == 0 {
			return errors.New("disk group name should not be empty")
		}
		if !groupNameRegexp.MatchString(dc.Name) {
			return fmt.Errorf("disk group name should consist of alphanumeric characters, '-', '_' or '.', and should start and end with an alphanumeric character: %s", dc.Name)
		}
		if len(dc.Re) == 0 {
			log.Warnf("disk regexp should not be empty: %s", dc.Name)
		}
		if groups[dc.Name] {
			return fmt.Errorf("duplicate disk group: %s", dc.Name)
		}
		groups[dc.Name] = true
	}
	return nil
}

// SelectorRes collects the expressions of one named disk group.
func SelectorRes(group string) []string {
	for _, v := range planConfig.DiskSelectors {
		if v.Name == group {
			return v.Re
		}
	}
	return nil
}
