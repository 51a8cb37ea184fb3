// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package controller

// ProbeFunc reports whether an interface currently has real upstream
// connectivity.
type ProbeFunc func(iface string) bool

// SelectBest walks the priority list in order and returns the first
// interface whose probe succeeds. The interface currently known to be
// failing is skipped without a probe. Health is binary, so strict list
// order is the only tie-break; an empty result signals total outage.
func SelectBest(priority []string, current string, probeFn ProbeFunc) (string, bool) {
	for _, iface := range priority {
		if iface == current {
			continue
		}
		if probeFn(iface) {
			return iface, true
		}
	}
	return "", false
}
