// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package guestshell

import (
	"fmt"
	"strings"
)

// NX-OS exec commands managing the guestshell.
const (
	CmdShowStatus = "show guestshell | json"
	CmdEnable     = "guestshell enable"
	CmdReboot     = "guestshell reboot"

	// ConfirmPrompt is printed by commands that ask for confirmation.
	ConfirmPrompt = "(y/n)"
)

// CmdResize returns the command to change a guestshell reservation.
// Resource is one of "rootfs", "memory" or "cpu".
func CmdResize(resource string, value int) string {
	return fmt.Sprintf("guestshell resize %s %d", resource, value)
}

// CmdRun returns the command to run args inside the guestshell.
func CmdRun(args ...string) string {
	return "guestshell run " + strings.Join(args, " ")
}

// CmdRunInVRF returns the command to run args as root inside the guestshell,
// with the network namespace of the given VRF.
func CmdRunInVRF(vrf string, args ...string) string {
	return CmdRun(append([]string{"sudo", "chvrf", vrf}, args...)...)
}

// CmdAlias returns the configuration command for a CLI alias.
func CmdAlias(name, command string) string {
	return fmt.Sprintf("cli alias name %s %s", name, command)
}

// CmdWriteNameserver returns the command that replaces /etc/resolv.conf with a single nameserver.
func CmdWriteNameserver(ns string) string {
	return CmdRun("sudo", "sh", "-c", fmt.Sprintf("'echo nameserver %s > /etc/resolv.conf'", ns))
}
