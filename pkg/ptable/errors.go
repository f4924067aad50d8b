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

package ptable

import "errors"

var (
	// ErrTooManyPrimaries is returned when an MBR primary partition
	// number above 4 is requested.
	ErrTooManyPrimaries = errors.New("primary partition number above 4")

	// ErrMissingExtendedPartition is returned when a logical partition
	// is added with no extended partition in place.
	ErrMissingExtendedPartition = errors.New("logical partition without extended partition")

	// ErrPartitionNotFound is returned when a preserved action's start
	// offset has no matching on-disk partition.
	ErrPartitionNotFound = errors.New("no existing partition at offset")

	// ErrPreserveMismatch is returned when a preserved action disagrees
	// with the observed on-disk partition.
	ErrPreserveMismatch = errors.New("preserved partition mismatch")

	// ErrBadSectorSize is returned when the sector size does not divide
	// one mebibyte.
	ErrBadSectorSize = errors.New("sector size does not divide 1MiB")

	// ErrUnknownLabel is returned for a partition table flavor the
	// layout engine cannot compute.
	ErrUnknownLabel = errors.New("unknown partition table label")
)
