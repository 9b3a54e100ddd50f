// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package nxos

import "github.com/ironcore-dev/nxos-guestshell/internal/gnmiext"

// Version represents the operating system version of the target device.
type Version string

const (
	VersionUnknown  Version = "Unknown"
	VersionNX10_4_3 Version = "10.4(3)"
	VersionNX10_4_4 Version = "10.4(4)"
	VersionNX10_4_5 Version = "10.4(5)"
	VersionNX10_4_6 Version = "10.4(6)"
	VersionNX10_5_1 Version = "10.5(1)"
	VersionNX10_5_2 Version = "10.5(2)"
	VersionNX10_5_3 Version = "10.5(3)"
	VersionNX10_6_1 Version = "10.6(1)"
)

// deviceModel is the name of the native NX-OS yang model.
const deviceModel = "Cisco-NX-OS-device"

// nxosVersions maps the revision date of the native yang model to the release it ships with.
var nxosVersions = map[string]Version{
	"2024-03-26": VersionNX10_4_3,
	"2024-10-17": VersionNX10_4_4,
	"2025-03-01": VersionNX10_4_5,
	"2025-08-30": VersionNX10_4_6,
	"2024-07-25": VersionNX10_5_1,
	"2024-11-26": VersionNX10_5_2,
	"2025-04-23": VersionNX10_5_3,
	"2025-08-12": VersionNX10_6_1,
}

// NXVersion returns the NX-OS release of the target device based on the supported models.
// If the version cannot be determined, [VersionUnknown] is returned.
func NXVersion(c *gnmiext.Capabilities) Version {
	m, ok := c.Model(deviceModel)
	if !ok {
		return VersionUnknown
	}
	if v, ok := nxosVersions[m.Version]; ok {
		return v
	}
	return VersionUnknown
}
