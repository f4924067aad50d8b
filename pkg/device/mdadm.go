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
	"context"
	"fmt"
	"time"

	"github.com/prometheus/procfs"

	"github.com/blockplan-io/blockplan/utils/log"
	"github.com/blockplan-io/blockplan/utils/retry"
)

// RaidWaiter polls /proc/mdstat until an MD array settles. Waiting is
// bounded; an array that never converges surfaces as an error instead of
// blocking the apply forever.
type RaidWaiter struct {
	fs     procfs.FS
	Policy retry.Policy
}

func NewRaidWaiter() (*RaidWaiter, error) {
	fs, err := procfs.NewFS("/proc")
	if err != nil {
		return nil, err
	}
	return &RaidWaiter{
		fs: fs,
		Policy: retry.Policy{
			MaxAttempts: 60,
			Backoff:     2 * time.Second,
		},
	}, nil
}

func raidSettled(state string) bool {
	return state == "active" || state == "idle" || state == "clean"
}

// WaitSynced blocks until the named array reports a settled activity
// state, the context ends, or the retry budget runs out.
func (w *RaidWaiter) WaitSynced(ctx context.Context, name string) error {
	return w.Policy.Do(ctx, func() (bool, error) {
		stats, err := w.fs.MDStat()
		if err != nil {
			return false, err
		}
		for _, md := range stats {
			if md.Name != name {
				continue
			}
			if raidSettled(md.ActivityState) {
				return true, nil
			}
			log.Debugf("raid %s is %s, %d/%d blocks synced",
				name, md.ActivityState, md.BlocksSynced, md.BlocksTotal)
			return false, nil
		}
		return false, fmt.Errorf("raid %s not present in /proc/mdstat", name)
	})
}
