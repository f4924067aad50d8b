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

package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAttemptsExhausted reports that the condition never held within the
// policy's attempt budget.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Policy bounds a polling loop. Zero values mean one attempt with no
// delay.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Do calls fn until it reports done, the attempt budget runs out, or the
// context is canceled. A non-nil error from fn stops the loop at once.
func (p Policy) Do(ctx context.Context, fn func() (bool, error)) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		done, err := fn()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff):
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrAttemptsExhausted, attempts)
}
