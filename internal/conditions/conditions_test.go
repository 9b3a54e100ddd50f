// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package conditions

import (
	"errors"
	"fmt"
	"testing"

	. "github.com/onsi/gomega"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/ironcore-dev/nxos-guestshell/api/v1alpha1"
)

func TestSet(t *testing.T) {
	g := NewWithT(t)

	r := &v1alpha1.HostReport{Name: "leaf1"}
	g.Expect(Set(r, True(v1alpha1.SizedCondition, v1alpha1.SucceededReason, "ok"))).To(BeTrue())
	g.Expect(Set(r, True(v1alpha1.SizedCondition, v1alpha1.SucceededReason, "ok"))).To(BeFalse())
	g.Expect(Set(r, False(v1alpha1.SizedCondition, v1alpha1.ResizedReason, "resized"))).To(BeTrue())
	g.Expect(r.Conditions).To(HaveLen(1))
	g.Expect(r.Conditions[0].Reason).To(Equal(v1alpha1.ResizedReason))

	g.Expect(Del(r, v1alpha1.SizedCondition)).To(BeTrue())
	g.Expect(Del(r, v1alpha1.SizedCondition)).To(BeFalse())
	g.Expect(r.Conditions).To(BeEmpty())
}

func TestInitializeConditions(t *testing.T) {
	g := NewWithT(t)

	r := &v1alpha1.HostReport{Name: "leaf1"}
	Set(r, True(v1alpha1.ConnectedCondition, v1alpha1.SucceededReason, "ok"))
	g.Expect(InitializeConditions(r, v1alpha1.ConnectedCondition, v1alpha1.SizedCondition, v1alpha1.ReadyCondition)).To(BeTrue())
	g.Expect(r.Conditions).To(HaveLen(3))
	g.Expect(r.Conditions[0].Type).To(Equal(v1alpha1.ReadyCondition))
	g.Expect(meta.IsStatusConditionTrue(r.Conditions, v1alpha1.ConnectedCondition)).To(BeTrue())
	sized := meta.FindStatusCondition(r.Conditions, v1alpha1.SizedCondition)
	g.Expect(sized.Status).To(Equal(metav1.ConditionUnknown))
	g.Expect(sized.Reason).To(Equal(v1alpha1.PendingReason))

	g.Expect(InitializeConditions(r, v1alpha1.SizedCondition)).To(BeFalse())
}

func TestRecomputeReady(t *testing.T) {
	tests := []struct {
		name       string
		conditions []metav1.Condition
		want       metav1.ConditionStatus
	}{
		{
			name: "All true",
			conditions: []metav1.Condition{
				True(v1alpha1.SizedCondition, v1alpha1.SucceededReason, ""),
				True(v1alpha1.ReachableCondition, v1alpha1.SucceededReason, ""),
			},
			want: metav1.ConditionTrue,
		},
		{
			name: "One false",
			conditions: []metav1.Condition{
				True(v1alpha1.SizedCondition, v1alpha1.SucceededReason, ""),
				False(v1alpha1.ReachableCondition, v1alpha1.UnreachableReason, "100% packet loss"),
			},
			want: metav1.ConditionFalse,
		},
		{
			name: "One unknown",
			conditions: []metav1.Condition{
				{Type: v1alpha1.SizedCondition, Status: metav1.ConditionUnknown, Reason: v1alpha1.PendingReason},
			},
			want: metav1.ConditionFalse,
		},
		{
			name: "Informational ignored",
			conditions: []metav1.Condition{
				True(v1alpha1.SizedCondition, v1alpha1.SucceededReason, ""),
				False(v1alpha1.FactsCollectedCondition, v1alpha1.ErrorReason, "no gNMI"),
			},
			want: metav1.ConditionTrue,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g := NewWithT(t)
			r := &v1alpha1.HostReport{Conditions: test.conditions}
			RecomputeReady(r)
			cond := GetTopLevelCondition(r)
			g.Expect(cond).NotTo(BeNil())
			g.Expect(cond.Status).To(Equal(test.want))
			g.Expect(IsReady(r)).To(Equal(test.want == metav1.ConditionTrue))
		})
	}
}

func TestRecomputeReady_FailedBeforeUnknown(t *testing.T) {
	g := NewWithT(t)

	r := &v1alpha1.HostReport{}
	InitializeConditions(r, v1alpha1.AliasesConfiguredCondition, v1alpha1.ReachableCondition)
	Set(r, False(v1alpha1.ReachableCondition, v1alpha1.UnreachableReason, "100% packet loss"))
	RecomputeReady(r)

	cond := GetTopLevelCondition(r)
	g.Expect(cond).NotTo(BeNil())
	g.Expect(cond.Reason).To(Equal(v1alpha1.NotReadyReason))
	g.Expect(cond.Message).To(Equal("Reachable is not ready: 100% packet loss"))
}

func TestSort(t *testing.T) {
	g := NewWithT(t)

	conditions := []metav1.Condition{
		{Type: v1alpha1.SizedCondition},
		{Type: v1alpha1.ReadyCondition},
		{Type: v1alpha1.AliasesConfiguredCondition},
	}
	Sort(conditions)
	g.Expect(conditions[0].Type).To(Equal(v1alpha1.ReadyCondition))
	g.Expect(conditions[1].Type).To(Equal(v1alpha1.AliasesConfiguredCondition))
	g.Expect(conditions[2].Type).To(Equal(v1alpha1.SizedCondition))
}

func TestFromError(t *testing.T) {
	g := NewWithT(t)

	cond := FromError(v1alpha1.FactsCollectedCondition, nil)
	g.Expect(cond.Status).To(Equal(metav1.ConditionTrue))
	g.Expect(cond.Reason).To(Equal(v1alpha1.SucceededReason))

	cond = FromError(v1alpha1.FactsCollectedCondition, errors.New("boom"))
	g.Expect(cond.Status).To(Equal(metav1.ConditionFalse))
	g.Expect(cond.Reason).To(Equal(v1alpha1.ErrorReason))
	g.Expect(cond.Message).To(Equal("boom"))

	cond = FromError(v1alpha1.FactsCollectedCondition, status.Error(codes.Unauthenticated, "bad credentials"))
	g.Expect(cond.Reason).To(Equal(codes.Unauthenticated.String()))
	g.Expect(cond.Message).To(Equal("bad credentials"))

	cond = FromError(v1alpha1.FactsCollectedCondition, fmt.Errorf("wrapped: %w", errors.New("inner")))
	g.Expect(cond.Reason).To(Equal(v1alpha1.ErrorReason))
}
