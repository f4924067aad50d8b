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

package device

import (
	"errors"

	"github.com/blockplan-io/blockplan/pkg/ptable"
	"github.com/blockplan-io/blockplan/utils/exec"
	"github.com/blockplan-io/blockplan/utils/log"
	"github.com/blockplan-io/blockplan/utils/mutx"
)

const diskMutex = "DiskMutex"

// Applier writes a computed layout to a disk.
type Applier interface {
	Apply(devPath string, layout *ptable.Layout) error
	UdevSettle() error
}

// SfdiskApplier feeds the rendered table to sfdisk on stdin. One disk at
// a time; the global lock serializes overlapping apply calls.
type SfdiskApplier struct {
	Mutex    *mutx.GlobalLocks
	Executor exec.Executor
}

func NewSfdiskApplier() *SfdiskApplier {
	return &SfdiskApplier{
		Mutex:    mutx.NewGlobalLocks(),
		Executor: &exec.CommandExecutor{},
	}
}

func (a *SfdiskApplier) Apply(devPath string, layout *ptable.Layout) error {
	if !a.Mutex.TryAcquire(diskMutex) {
		log.Info("wait other task release mutex, please retry...")
		return errors.New("get global mutex failed")
	}
	defer a.Mutex.Release(diskMutex)

	// partitions leaving the disk lose their signatures first, while
	// their nodes still exist
	for _, deleted := range layout.Deleted {
		if err := a.wipeSuperblock(deleted.Node); err != nil {
			return err
		}
	}

	script := layout.Table.Render()
	log.Debugf("writing partition table to %s:\n%s", devPath, script)
	if _, err := a.Executor.ExecuteCommandWithInput(script, "sfdisk",
		"--no-tell-kernel", "--no-reread", devPath); err != nil {
		log.Errorf("sfdisk failed on %s: %v", devPath, err)
		return err
	}
	if err := a.Executor.ExecuteCommand("partprobe", devPath); err != nil {
		return err
	}
	if err := a.UdevSettle(); err != nil {
		return err
	}

	for _, entry := range layout.Table.Entries() {
		if layout.Wipes[entry.Start] != ptable.WipeSuperblock {
			continue
		}
		if err := a.wipeSuperblock(PartitionNode(devPath, entry.Number)); err != nil {
			return err
		}
	}
	return nil
}

func (a *SfdiskApplier) wipeSuperblock(node string) error {
	log.Infof("wiping superblock on %s", node)
	if _, err := a.Executor.ExecuteCommandWithOutput("wipefs", "--all", node); err != nil {
		log.Errorf("wipefs failed on %s: %v", node, err)
		return err
	}
	return nil
}

func (a *SfdiskApplier) UdevSettle() error {
	_, err := a.Executor.ExecuteCommandWithOutput("udevadm", "settle")
	return err
}
