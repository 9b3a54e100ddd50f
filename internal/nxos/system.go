// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package nxos

import "github.com/ironcore-dev/nxos-guestshell/internal/gnmiext"

var (
	_ gnmiext.Readable = (*Hostname)(nil)
	_ gnmiext.Readable = (*Model)(nil)
	_ gnmiext.Readable = (*SerialNumber)(nil)
	_ gnmiext.Readable = (*FirmwareVersion)(nil)
)

// Hostname is the configured hostname of the device, e.g. "leaf1".
type Hostname string

func (*Hostname) XPath() string {
	return "System/name"
}

// Model is the chassis model of the device, e.g. "N9K-C9336C-FX2".
type Model string

func (*Model) XPath() string {
	return "System/ch-items/model"
}

// SerialNumber is the serial number of the device, e.g. "9VT9OHZBC3H".
type SerialNumber string

func (*SerialNumber) XPath() string {
	return "System/serial"
}

// FirmwareVersion is the firmware version of the device, e.g. "10.4(3)".
type FirmwareVersion string

func (*FirmwareVersion) XPath() string {
	return "System/showversion-items/nxosVersion"
}
