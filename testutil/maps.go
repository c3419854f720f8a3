package testutil

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// MappingPerms returns the permission field ("r-xp", "r--s", ...) of the
// mapping in /proc/self/maps that contains addr. ok is false if addr is not
// mapped or the maps file is unavailable.
func MappingPerms(addr uintptr) (perms string, ok bool) {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		lo, hi, found := strings.Cut(fields[0], "-")
		if !found {
			continue
		}
		start, err := strconv.ParseUint(lo, 16, 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseUint(hi, 16, 64)
		if err != nil {
			continue
		}
		if uint64(addr) >= start && uint64(addr) < end {
			return fields[1], true
		}
	}
	return "", false
}

// ProcMapsAvailable reports whether /proc/self/maps can be read.
func ProcMapsAvailable() bool {
	_, err := os.Stat("/proc/self/maps")
	return err == nil
}
