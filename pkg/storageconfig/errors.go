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

package storageconfig

import "errors"

var (
	// ErrUnknownType is returned for a storage type not in the registry.
	ErrUnknownType = errors.New("unknown storage type")

	// ErrItemNotFound is returned when a referenced id is absent from
	// the configuration.
	ErrItemNotFound = errors.New("item not found in storage config")

	// ErrInvalidDependency is returned when a dependency edge violates
	// the allowed type pairs.
	ErrInvalidDependency = errors.New("invalid dependency")

	// ErrInvalidItem is returned by structural validation.
	ErrInvalidItem = errors.New("invalid storage item")
)
