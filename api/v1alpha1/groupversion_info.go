// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package v1alpha1 contains the file formats of the guestshell provisioner:
// the host inventory, the provisioning profile and the per-host report.
package v1alpha1

// GroupVersion is the apiVersion written to and expected in all documents.
const GroupVersion = "guestshell.ironcore.dev/v1alpha1"

// Kinds of the documents in this group.
const (
	InventoryKind = "Inventory"
	ProfileKind   = "Profile"
	ReportKind    = "Report"
)

// Condition types reported for every host.
const (
	// ReadyCondition is the top-level status condition that reports if the guestshell of
	// a host is fully provisioned. It is calculated based on all other conditions.
	ReadyCondition = "Ready"

	// ConnectedCondition indicates whether a CLI session to the host could be established.
	ConnectedCondition = "Connected"

	// SizedCondition indicates whether the guestshell exists, is activated and has sufficient
	// disk, memory and CPU reservations.
	SizedCondition = "Sized"

	// ReachableCondition indicates whether the guestshell can reach the internet
	// through the management VRF.
	ReachableCondition = "Reachable"

	// DNSResolvedCondition indicates whether name resolution works inside the guestshell.
	DNSResolvedCondition = "DNSResolved"

	// DependenciesInstalledCondition indicates whether all packages, python modules and
	// the scripts repository are present in the guestshell.
	DependenciesInstalledCondition = "DependenciesInstalled"

	// AliasesConfiguredCondition indicates whether the NX-OS CLI aliases have been configured.
	AliasesConfiguredCondition = "AliasesConfigured"
)

// FactsCollectedCondition indicates whether device facts could be read over gNMI.
// It is informational and not taken into account for the Ready condition.
const FactsCollectedCondition = "FactsCollected"

// Reasons that are used across different conditions.
const (
	// ReadyReason indicates that the guestshell is ready for use.
	ReadyReason = "Ready"

	// NotReadyReason indicates that the guestshell is not ready for use.
	NotReadyReason = "NotReady"

	// PendingReason indicates that the step has not been carried out yet.
	PendingReason = "Pending"

	// SucceededReason indicates that the step has completed successfully.
	SucceededReason = "Succeeded"

	// ErrorReason indicates that an error occurred while carrying out the step.
	ErrorReason = "Error"

	// DryRunReason indicates that state-changing commands were skipped.
	DryRunReason = "DryRun"
)

// Reasons that are specific to the [SizedCondition].
const (
	// NotCreatedReason indicates that the guestshell did not exist and is being enabled.
	NotCreatedReason = "NotCreated"

	// ResizedReason indicates that reservations were increased and the guestshell is rebooting.
	ResizedReason = "Resized"

	// ActivatingReason indicates that a deactivated guestshell is being enabled.
	ActivatingReason = "Activating"

	// BusyReason indicates that the guestshell is in a transitional state (e.g. "Activating").
	BusyReason = "Busy"
)

// Reasons that are specific to the network conditions.
const (
	// UnreachableReason indicates that the probe address could not be pinged.
	UnreachableReason = "Unreachable"

	// UnresolvedReason indicates that the probe hostname could not be resolved.
	UnresolvedReason = "Unresolved"
)

// Reasons that are specific to the [ConnectedCondition].
const (
	// UnauthenticatedReason indicates that the credentials were rejected.
	UnauthenticatedReason = "Unauthenticated"

	// UnreachableDeviceReason indicates that the device did not answer.
	UnreachableDeviceReason = "DeviceUnreachable"
)
