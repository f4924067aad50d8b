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

package blockplan

const (
	// Version project
	Version = "beta"

	// DefaultConfigPath is where the planner configuration lives.
	DefaultConfigPath = "/etc/blockplan/"

	// DefaultProbeDataPath is the default location of probe data written
	// by the probing collaborator.
	DefaultProbeDataPath = "/run/blockplan/probe-data.json"

	// DefaultServerAddr is the listen address of the planning server.
	DefaultServerAddr = ":8580"

	// StorageConfigVersion is the storage configuration document version
	// this planner produces.
	StorageConfigVersion = 2
)
