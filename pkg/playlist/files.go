/*
 * iptv-bridge is a reverse proxy and aggregator for IPTV providers.
 * Copyright (C) 2026  Lucas Duport
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package playlist

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lucasduport/iptv-bridge/pkg/utils"
)

// keepPerVariant is how many generated files survive a purge, per
// variant: the served one and its immediate predecessor.
const keepPerVariant = 2

// BuildFilePath composes the file name of one rendered variant. The
// unix timestamp component makes lexicographic order match
// chronological order, which LatestFile and PurgeObsolete rely on.
func BuildFilePath(dir string, variant Variant, now time.Time) string {
	name := fmt.Sprintf("%s_%d_%s.m3u", variant, now.Unix(), now.UTC().Format(time.RFC3339))
	return filepath.Join(dir, name)
}

// listVariantFiles returns the generated files of one variant sorted
// lexicographically ascending, oldest first.
func listVariantFiles(dir string, variant Variant) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	prefix := string(variant) + "_"
	files := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".m3u") {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}

// LatestFile returns the path of the newest generated file of a
// variant, or an empty string when none exists.
func LatestFile(dir string, variant Variant) (string, error) {
	files, err := listVariantFiles(dir, variant)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", nil
	}
	return filepath.Join(dir, files[len(files)-1]), nil
}

// LatestAnyFile returns the newest generated file across all variants,
// or an empty string when none exists. Used by the get.php and /m3u
// endpoints, which serve whatever is newest. Name comparison alone
// would let the variant prefix outweigh the timestamp, so candidates
// are ordered by their embedded unix stamp.
func LatestAnyFile(dir string) (string, error) {
	newest := ""
	var newestStamp int64 = -1
	for _, variant := range Variants() {
		files, err := listVariantFiles(dir, variant)
		if err != nil {
			return "", err
		}
		if len(files) == 0 {
			continue
		}
		name := files[len(files)-1]
		if stamp := fileUnixStamp(name); stamp > newestStamp {
			newestStamp = stamp
			newest = name
		}
	}
	if newest == "" {
		return "", nil
	}
	return filepath.Join(dir, newest), nil
}

// fileUnixStamp extracts the unix timestamp component of a generated
// file name, -1 when the name does not carry one.
func fileUnixStamp(name string) int64 {
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return -1
	}
	stamp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return -1
	}
	return stamp
}

// AnyFileExists reports whether at least one generated file exists for
// any variant.
func AnyFileExists(dir string) (bool, error) {
	for _, variant := range Variants() {
		latest, err := LatestFile(dir, variant)
		if err != nil {
			return false, err
		}
		if latest != "" {
			return true, nil
		}
	}
	return false, nil
}

// PurgeObsolete deletes all but the two newest generated files of each
// variant and returns the number of deleted files. Readers holding an
// open handle keep their file until they close it.
func PurgeObsolete(dir string) (int, error) {
	removed := 0
	for _, variant := range Variants() {
		files, err := listVariantFiles(dir, variant)
		if err != nil {
			return removed, err
		}
		if len(files) <= keepPerVariant {
			continue
		}
		for _, name := range files[:len(files)-keepPerVariant] {
			path := filepath.Join(dir, name)
			if err := os.Remove(path); err != nil {
				utils.WarnLog("Could not remove obsolete playlist %s: %v", path, err)
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		utils.InfoLog("Purged %d obsolete playlist files", removed)
	}
	return removed, nil
}
