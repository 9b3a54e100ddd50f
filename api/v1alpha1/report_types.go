// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Outcome is the result of the provisioning pipeline on a single host.
type Outcome string

const (
	// OutcomeReady indicates that the guestshell is fully provisioned.
	OutcomeReady Outcome = "Ready"
	// OutcomeEnabling indicates that the guestshell did not exist and is being created.
	OutcomeEnabling Outcome = "Enabling"
	// OutcomeResized indicates that the guestshell was resized and is rebooting.
	OutcomeResized Outcome = "Resized"
	// OutcomeActivating indicates that a deactivated guestshell is being enabled.
	OutcomeActivating Outcome = "Activating"
	// OutcomeBusy indicates that the guestshell is in a transitional state.
	OutcomeBusy Outcome = "Busy"
	// OutcomeFailed indicates that a step of the pipeline failed.
	OutcomeFailed Outcome = "Failed"
)

// Retry reports whether running the provisioning again later is expected to make progress.
func (o Outcome) Retry() bool {
	switch o {
	case OutcomeEnabling, OutcomeResized, OutcomeActivating, OutcomeBusy:
		return true
	default:
		return false
	}
}

// GuestShellState is the state of the guestshell as reported by "show guestshell".
type GuestShellState string

const (
	GuestShellActivated   GuestShellState = "Activated"
	GuestShellDeactivated GuestShellState = "Deactivated"
	GuestShellActivating  GuestShellState = "Activating"
)

// GuestShellStatus holds the state and resource reservations of a guestshell.
type GuestShellStatus struct {
	State GuestShellState `json:"state"`
	// RootfsMB is the disk reservation in megabytes.
	RootfsMB int `json:"rootfsMB"`
	// MemoryMB is the memory reservation in megabytes.
	MemoryMB int `json:"memoryMB"`
	// CPUPercent is the CPU reservation in percent.
	CPUPercent int `json:"cpuPercent"`
}

// Facts are device details collected over gNMI.
type Facts struct {
	Hostname        string `json:"hostname,omitempty"`
	Model           string `json:"model,omitempty"`
	SerialNumber    string `json:"serialNumber,omitempty"`
	FirmwareVersion string `json:"firmwareVersion,omitempty"`
}

// HostReport is the result of running a command against a single host.
type HostReport struct {
	Name    string `json:"name"`
	Address string `json:"address"`

	// +optional
	Outcome Outcome `json:"outcome,omitempty"`

	// +optional
	StartTime metav1.Time `json:"startTime,omitzero"`

	// +optional
	CompletionTime metav1.Time `json:"completionTime,omitzero"`

	// GuestShell is the last observed status of the guestshell.
	// +optional
	GuestShell *GuestShellStatus `json:"guestShell,omitempty"`

	// +optional
	Facts *Facts `json:"facts,omitempty"`

	// The conditions are a list of status objects that describe the state of the host.
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// GetConditions implements conditions.Getter.
func (r *HostReport) GetConditions() []metav1.Condition {
	return r.Conditions
}

// SetConditions implements conditions.Setter.
func (r *HostReport) SetConditions(conditions []metav1.Condition) {
	r.Conditions = conditions
}

// Report is the result of running a command against all hosts of an inventory.
type Report struct {
	metav1.TypeMeta `json:",inline"`

	Hosts []HostReport `json:"hosts"`
}
