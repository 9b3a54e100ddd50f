// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package conditions provides utilities for managing status conditions on host reports.
package conditions

import (
	"cmp"
	"slices"

	grpcstatus "google.golang.org/grpc/status"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/ironcore-dev/nxos-guestshell/api/v1alpha1"
)

// Getter defines methods that a report should implement in order to
// use the conditions package for getting conditions.
type Getter interface {
	// GetConditions returns the list of conditions.
	GetConditions() []metav1.Condition
}

// Setter defines methods that a report should implement in order to
// use the conditions package for setting conditions.
type Setter interface {
	Getter
	// SetConditions sets the list of conditions.
	SetConditions([]metav1.Condition)
}

// informational condition types are not taken into account by [RecomputeReady].
var informational = []string{v1alpha1.FactsCollectedCondition}

// Set adds or updates a condition on the target.
// It returns true if the condition was changed, false otherwise.
func Set(target Setter, condition metav1.Condition) (changed bool) {
	conditions := target.GetConditions()
	if changed = meta.SetStatusCondition(&conditions, condition); !changed {
		return
	}
	Sort(conditions)
	target.SetConditions(conditions)
	return
}

// Del removes a condition of the specified type from the target.
// It returns true if the condition was removed, false otherwise.
func Del(target Setter, conditionType string) (changed bool) {
	conditions := target.GetConditions()
	if changed = meta.RemoveStatusCondition(&conditions, conditionType); !changed {
		return
	}
	Sort(conditions)
	target.SetConditions(conditions)
	return
}

// IsReady looks at the [v1alpha1.ReadyCondition] condition type and returns true
// if that condition is set to true.
func IsReady(target Getter) bool {
	condition := GetTopLevelCondition(target)
	if condition == nil {
		return false
	}
	return condition.Status == metav1.ConditionTrue
}

// GetTopLevelCondition finds and returns the top level condition (Ready Condition).
func GetTopLevelCondition(target Getter) *metav1.Condition {
	return meta.FindStatusCondition(target.GetConditions(), v1alpha1.ReadyCondition)
}

// InitializeConditions sets all given conditions to Unknown if not set.
func InitializeConditions(target Setter, types ...string) (changed bool) {
	conditions := target.GetConditions()
	for _, t := range types {
		if meta.FindStatusCondition(conditions, t) == nil {
			changed = meta.SetStatusCondition(&conditions, metav1.Condition{
				Type:    t,
				Status:  metav1.ConditionUnknown,
				Reason:  v1alpha1.PendingReason,
				Message: "Step has not been carried out yet",
			}) || changed
		}
	}
	Sort(conditions)
	target.SetConditions(conditions)
	return
}

// RecomputeReady recomputes the Ready Condition based on all other conditions.
// It sets the Ready Condition to false if any other condition is not ready,
// or to true if all other conditions are ready. Informational conditions
// (e.g. [v1alpha1.FactsCollectedCondition]) are ignored.
func RecomputeReady(target Setter) (changed bool) {
	cond := metav1.Condition{
		Type:    v1alpha1.ReadyCondition,
		Status:  metav1.ConditionTrue,
		Reason:  v1alpha1.ReadyReason,
		Message: "All conditions are ready",
	}

	// A failed condition takes precedence over one that is still unknown.
	var notReady *metav1.Condition
	conditions := target.GetConditions()
	for i := range conditions {
		c := &conditions[i]
		if c.Type == v1alpha1.ReadyCondition || slices.Contains(informational, c.Type) || c.Status == metav1.ConditionTrue {
			continue
		}
		if notReady == nil || (notReady.Status != metav1.ConditionFalse && c.Status == metav1.ConditionFalse) {
			notReady = c
		}
	}
	if notReady != nil {
		cond.Status = metav1.ConditionFalse
		cond.Reason = v1alpha1.NotReadyReason
		cond.Message = notReady.Type + " is not ready: " + notReady.Message
	}

	return Set(target, cond)
}

// Sort sorts the given conditions slice in place.
// The Ready condition is sorted to the top, followed by other conditions
// in alphabetical order of their type.
func Sort(conditions []metav1.Condition) {
	slices.SortStableFunc(conditions, func(i, j metav1.Condition) int {
		switch {
		case i.Type == v1alpha1.ReadyCondition && j.Type != v1alpha1.ReadyCondition:
			return -1
		case i.Type != v1alpha1.ReadyCondition && j.Type == v1alpha1.ReadyCondition:
			return 1
		default:
			return cmp.Compare(i.Type, j.Type)
		}
	})
}

// True returns a condition of the given type with status true.
func True(conditionType, reason, message string) metav1.Condition {
	return metav1.Condition{
		Type:    conditionType,
		Status:  metav1.ConditionTrue,
		Reason:  reason,
		Message: message,
	}
}

// False returns a condition of the given type with status false.
func False(conditionType, reason, message string) metav1.Condition {
	return metav1.Condition{
		Type:    conditionType,
		Status:  metav1.ConditionFalse,
		Reason:  reason,
		Message: message,
	}
}

// FromError creates a condition of the given type from the given error.
// If the error is nil, it returns a condition indicating success.
// If the error is a gRPC status error, it extracts the code and message
// to populate the condition's Reason and Message fields.
func FromError(conditionType string, err error) metav1.Condition {
	cond := True(conditionType, v1alpha1.SucceededReason, "Completed successfully")
	if err != nil {
		cond.Status = metav1.ConditionFalse
		cond.Reason = v1alpha1.ErrorReason
		cond.Message = err.Error()

		// If the error is a gRPC status error, extract the code and message
		if statusErr, ok := grpcstatus.FromError(err); ok {
			cond.Reason = statusErr.Code().String()
			cond.Message = statusErr.Message()
		}
	}
	return cond
}
