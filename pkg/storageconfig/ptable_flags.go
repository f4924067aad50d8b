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

import "strings"

// FlagEntry pairs a partition flag name with its sgdisk type code.
type FlagEntry struct {
	Flag     string
	Typecode string
}

// GPTGUIDMap maps GUID partition type ids
// (https://en.wikipedia.org/wiki/GUID_Partition_Table#Partition_type_GUIDs)
// to partition flags and sgdisk type codes.
var GPTGUIDMap = map[string]FlagEntry{
	"C12A7328-F81F-11D2-BA4B-00A0C93EC93B": {"boot", "EF00"},
	"21686148-6449-6E6F-744E-656564454649": {"bios_grub", "EF02"},
	"933AC7E1-2EB4-4F13-B844-0E14E2AEF915": {"home", "8302"},
	"0FC63DAF-8483-4772-8E79-3D69D8477DE4": {"linux", "8300"},
	"E6D6D379-F507-44C2-A23C-238F2A3DF928": {"lvm", "8e00"},
	"024DEE41-33E7-11D3-9D69-0008C781F39F": {"mbr", ""},
	"9E1A2D38-C612-4316-AA26-8B49521E5A8B": {"prep", "4200"},
	"A19D880F-05FC-4D3B-A006-743F0F84911E": {"raid", "fd00"},
	"0657FD6D-A4AB-43C4-84E5-0933C84B4F4F": {"swap", "8200"},
}

// MBRTypeMap maps MBR partition type bytes
// (https://www.win.tue.nl/~aeb/partitions/partition_types-2.html)
// to partition flags.
var MBRTypeMap = map[string]FlagEntry{
	"0XF":  {"extended", "f"},
	"0X5":  {"extended", "f"},
	"0X83": {"linux", "83"},
	"0X85": {"extended", "f"},
	"0XC5": {"extended", "f"},
}

// MBRBootFlag is the MBR bootable-partition attribute.
const MBRBootFlag = "0x80"

// PtableUUIDToFlagEntry looks up a partition flag and type code from a
// probed GPT GUID or MBR type byte. Unknown values return empty strings.
func PtableUUIDToFlagEntry(guid string) (string, string) {
	if guid == "" {
		return "", ""
	}
	up := strings.ToUpper(guid)
	// prefix bare MBR type bytes with 0x
	if !strings.Contains(up, "-") && !strings.HasPrefix(up, "0X") {
		up = "0X" + up
	}
	if e, ok := GPTGUIDMap[up]; ok {
		return e.Flag, e.Typecode
	}
	if e, ok := MBRTypeMap[up]; ok {
		return e.Flag, e.Typecode
	}
	return "", ""
}
