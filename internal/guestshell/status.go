// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package guestshell

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"k8s.io/utils/ptr"

	"github.com/ironcore-dev/nxos-guestshell/api/v1alpha1"
)

// ErrNotCreated is returned when the guestshell has not been created on the device yet.
var ErrNotCreated = errors.New("guestshell: not created")

// ParseStatus parses the output of "show guestshell | json".
// An empty output means the guestshell does not exist and yields [ErrNotCreated].
func ParseStatus(out string) (*v1alpha1.GuestShellStatus, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, ErrNotCreated
	}
	if !gjson.Valid(out) {
		return nil, fmt.Errorf("guestshell: invalid status output: %q", out)
	}
	row := gjson.Get(out, "TABLE_detail.ROW_detail")
	// A list is returned if more than one virtual service is listed.
	if row.IsArray() {
		rows := row.Array()
		if len(rows) == 0 {
			return nil, ErrNotCreated
		}
		row = rows[0]
	}
	if !row.Exists() || !row.Get("state").Exists() {
		return nil, fmt.Errorf("guestshell: unexpected status output: %q", out)
	}
	return &v1alpha1.GuestShellStatus{
		State:      v1alpha1.GuestShellState(row.Get("state").String()),
		RootfsMB:   int(row.Get("disk_reservation").Int()),
		MemoryMB:   int(row.Get("memory_reservation").Int()),
		CPUPercent: int(row.Get("cpu_reservation").Int()),
	}, nil
}

// NeedsResize reports whether any reservation is below the profile threshold.
func NeedsResize(s *v1alpha1.GuestShellStatus, p *v1alpha1.Profile) bool {
	return s.RootfsMB < ptr.Deref(p.MinRootfsMB, 0) ||
		s.MemoryMB < ptr.Deref(p.MinMemoryMB, 0) ||
		s.CPUPercent < ptr.Deref(p.MinCPUPercent, 0)
}

// IsActivated reports whether the guestshell is running.
func IsActivated(s *v1alpha1.GuestShellStatus) bool {
	return strings.EqualFold(string(s.State), string(v1alpha1.GuestShellActivated))
}

// IsDeactivated reports whether the guestshell is stopped.
func IsDeactivated(s *v1alpha1.GuestShellStatus) bool {
	return strings.EqualFold(string(s.State), string(v1alpha1.GuestShellDeactivated))
}

// IsBusy reports whether the guestshell is in a transitional state
// such as "Activating", "Deactivating" or "Installing".
func IsBusy(s *v1alpha1.GuestShellStatus) bool {
	return strings.Contains(strings.ToLower(string(s.State)), "ing")
}
