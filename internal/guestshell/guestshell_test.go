// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package guestshell

import (
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/ironcore-dev/nxos-guestshell/api/v1alpha1"
	"github.com/ironcore-dev/nxos-guestshell/internal/conditions"
)

func statusJSON(state string, rootfs, memory, cpu int) string {
	return fmt.Sprintf(`{"TABLE_detail": {"ROW_detail": {"name": "guestshell+", "state": %q, "package_name": "guestshell.ova", "disk_reservation": "%d", "memory_reservation": "%d", "cpu_reservation": "%d"}}}`, state, rootfs, memory, cpu)
}

// provisioned registers answers for a fully provisioned guestshell.
func provisioned(term *fakeTerminal, p *v1alpha1.Profile) *fakeTerminal {
	term.On(CmdShowStatus, statusJSON("Activated", 2000, 2048, 5))
	term.On(CmdRunInVRF(p.VRF, "ping", "-c", "1", p.ProbeAddress), "1 packets transmitted, 1 received, 0% packet loss, time 0ms")
	term.On(CmdRunInVRF(p.VRF, "getent", "hosts", p.ProbeHostname), "149.112.112.112 quad9.com")
	term.On(CmdRun("yum", "repolist"), "repo id            repo name\nendpoint/7/x86_64  End Point repository")
	for _, pkg := range p.Packages {
		term.On(CmdRun("yum", "list", "installed", "|", "grep", pkg), pkg+".x86_64   1.0-1   @base")
	}
	term.On(CmdRunInVRF(p.VRF, "pip3", "install", "--upgrade", "pip"), "Requirement already satisfied: pip")
	term.On(CmdRun("pip", "freeze"), "natsort==8.4.0")
	term.On(CmdRun("ls", p.Scripts.Dir), "README.md\npython")
	return term
}

func conditionStatus(r *v1alpha1.HostReport, conditionType string) metav1.ConditionStatus {
	for _, c := range r.Conditions {
		if c.Type == conditionType {
			return c.Status
		}
	}
	return ""
}

var _ = Describe("Provisioner", func() {
	var (
		profile *v1alpha1.Profile
		term    *fakeTerminal
		report  *v1alpha1.HostReport
	)

	BeforeEach(func() {
		profile = DefaultProfile()
		term = newFakeTerminal()
		report = &v1alpha1.HostReport{Name: "leaf1", Address: "10.0.0.11:22"}
	})

	Context("When the guestshell has not been created", func() {
		It("Should enable the guestshell and stop", func() {
			p := New(term, WithProfile(profile))
			Expect(p.Provision(ctx, report)).To(Succeed())
			Expect(report.Outcome).To(Equal(v1alpha1.OutcomeEnabling))
			Expect(report.Outcome.Retry()).To(BeTrue())
			Expect(term.Sent()).To(Equal([]string{CmdShowStatus, CmdEnable}))
			Expect(conditionStatus(report, v1alpha1.SizedCondition)).To(Equal(metav1.ConditionFalse))
			Expect(conditionStatus(report, v1alpha1.ReachableCondition)).To(Equal(metav1.ConditionUnknown))
			Expect(conditions.IsReady(report)).To(BeFalse())
		})

		It("Should wait for the guestshell to become activated when requested", func() {
			term = provisioned(term, profile)
			term.On(CmdShowStatus, "", statusJSON("Installing", 2000, 2048, 5), statusJSON("Activated", 2000, 2048, 5))
			p := New(term, WithProfile(profile), WithWait(time.Minute), WithPollInterval(time.Millisecond))
			Expect(p.Provision(ctx, report)).To(Succeed())
			Expect(report.Outcome).To(Equal(v1alpha1.OutcomeReady))
			Expect(conditions.IsReady(report)).To(BeTrue())
			Expect(report.GuestShell).NotTo(BeNil())
			Expect(report.GuestShell.State).To(Equal(v1alpha1.GuestShellActivated))
		})

		It("Should resize a new guestshell with default reservations after waiting", func() {
			term = provisioned(term, profile)
			term.On(CmdShowStatus,
				"",
				statusJSON("Installing", 250, 256, 1),
				statusJSON("Activated", 250, 256, 1),
				statusJSON("Activated", 250, 256, 1),
				statusJSON("Deactivating", 250, 256, 1),
				statusJSON("Activated", 1024, 1024, 5),
			)
			p := New(term, WithProfile(profile), WithWait(time.Minute), WithPollInterval(time.Millisecond))
			Expect(p.Provision(ctx, report)).To(Succeed())
			Expect(report.Outcome).To(Equal(v1alpha1.OutcomeReady))
			Expect(report.GuestShell.MemoryMB).To(Equal(1024))
			Expect(term.Sent()[:10]).To(Equal([]string{
				CmdShowStatus,
				CmdEnable,
				CmdShowStatus,
				CmdShowStatus,
				"guestshell resize rootfs 1024",
				"guestshell resize memory 1024",
				"guestshell resize cpu 5",
				CmdReboot,
				"y",
				CmdShowStatus,
			}))
		})
	})

	Context("When the reservations are too small", func() {
		It("Should resize and reboot the guestshell", func() {
			term.On(CmdShowStatus, statusJSON("Activated", 250, 256, 1))
			p := New(term, WithProfile(profile))
			Expect(p.Provision(ctx, report)).To(Succeed())
			Expect(report.Outcome).To(Equal(v1alpha1.OutcomeResized))
			Expect(term.Sent()).To(Equal([]string{
				CmdShowStatus,
				"guestshell resize rootfs 1024",
				"guestshell resize memory 1024",
				"guestshell resize cpu 5",
				CmdReboot,
				"y",
			}))
		})

		It("Should only resize what is below the threshold", func() {
			term.On(CmdShowStatus, statusJSON("Activated", 2000, 256, 5))
			p := New(term, WithProfile(profile))
			Expect(p.Provision(ctx, report)).To(Succeed())
			Expect(term.Sent()).To(Equal([]string{CmdShowStatus, "guestshell resize memory 1024", CmdReboot, "y"}))
		})

		It("Should wait for the reboot to pick up the new reservations", func() {
			term = provisioned(term, profile)
			term.On(CmdShowStatus,
				statusJSON("Activated", 250, 256, 1),
				statusJSON("Activated", 250, 256, 1),
				statusJSON("Deactivating", 250, 256, 1),
				statusJSON("Activated", 1024, 1024, 5),
			)
			p := New(term, WithProfile(profile), WithWait(time.Minute), WithPollInterval(time.Millisecond))
			Expect(p.Provision(ctx, report)).To(Succeed())
			Expect(report.Outcome).To(Equal(v1alpha1.OutcomeReady))
			Expect(conditionStatus(report, v1alpha1.SizedCondition)).To(Equal(metav1.ConditionTrue))
			var reboots int
			for _, cmd := range term.Sent() {
				if cmd == CmdReboot {
					reboots++
				}
			}
			Expect(reboots).To(Equal(1))
		})

		It("Should fail if the reservations are still too small after the reboot", func() {
			term.On(CmdShowStatus,
				statusJSON("Activated", 250, 256, 1),
				statusJSON("Activating", 250, 256, 1),
				statusJSON("Activated", 250, 256, 1),
			)
			p := New(term, WithProfile(profile), WithWait(time.Minute), WithPollInterval(time.Millisecond))
			Expect(p.Provision(ctx, report)).To(MatchError(ContainSubstring("still insufficient")))
			Expect(report.Outcome).To(Equal(v1alpha1.OutcomeFailed))
			Expect(conditionStatus(report, v1alpha1.SizedCondition)).To(Equal(metav1.ConditionFalse))
		})

		It("Should enable a deactivated guestshell after resizing", func() {
			term.On(CmdShowStatus, statusJSON("Deactivated", 250, 2048, 5))
			p := New(term, WithProfile(profile))
			Expect(p.Provision(ctx, report)).To(Succeed())
			Expect(report.Outcome).To(Equal(v1alpha1.OutcomeResized))
			Expect(term.Sent()).To(Equal([]string{CmdShowStatus, "guestshell resize rootfs 1024", CmdEnable}))
		})
	})

	Context("When the guestshell is not activated", func() {
		It("Should enable a deactivated guestshell", func() {
			term.On(CmdShowStatus, statusJSON("Deactivated", 2000, 2048, 5))
			p := New(term, WithProfile(profile))
			Expect(p.Provision(ctx, report)).To(Succeed())
			Expect(report.Outcome).To(Equal(v1alpha1.OutcomeActivating))
			Expect(term.Sent()).To(Equal([]string{CmdShowStatus, CmdEnable}))
		})

		It("Should do nothing while the guestshell is busy", func() {
			term.On(CmdShowStatus, statusJSON("Activating", 2000, 2048, 5))
			p := New(term, WithProfile(profile))
			Expect(p.Provision(ctx, report)).To(Succeed())
			Expect(report.Outcome).To(Equal(v1alpha1.OutcomeBusy))
			Expect(term.Sent()).To(Equal([]string{CmdShowStatus}))
		})
	})

	Context("When the guestshell is activated with sufficient reservations", func() {
		It("Should report ready without installing anything", func() {
			term = provisioned(term, profile)
			p := New(term, WithProfile(profile))
			Expect(p.Provision(ctx, report)).To(Succeed())
			Expect(report.Outcome).To(Equal(v1alpha1.OutcomeReady))
			Expect(conditions.IsReady(report)).To(BeTrue())
			for _, c := range report.Conditions {
				Expect(c.Status).To(Equal(metav1.ConditionTrue), c.Type)
			}
			for _, cmd := range term.Sent() {
				Expect(cmd).NotTo(ContainSubstring("yum -y install"))
				Expect(cmd).NotTo(ContainSubstring("git clone"))
			}
			Expect(term.Sent()).To(ContainElement(CmdAlias("wr", "copy run start")))
			Expect(term.Sent()).To(ContainElements("configure terminal", "end"))
			Expect(term.configure).To(BeFalse())
		})

		It("Should install missing dependencies", func() {
			term = provisioned(term, profile)
			term.On(CmdRun("yum", "list", "installed", "|", "grep", "python3"), "")
			term.On(CmdRunInVRF(profile.VRF, "yum", "-y", "install", "python3"), "Complete!")
			term.On(CmdRun("ls", profile.Scripts.Dir), "ls: cannot access /bootflash/scripts/network-code: No such file or directory")
			clone := CmdRunInVRF(profile.VRF, "git", "clone", profile.Scripts.URL, profile.Scripts.Dir+"/")
			term.On(clone, "Cloning into '/bootflash/scripts/network-code'...")

			p := New(term, WithProfile(profile))
			Expect(p.Provision(ctx, report)).To(Succeed())
			Expect(report.Outcome).To(Equal(v1alpha1.OutcomeReady))
			Expect(term.Sent()).To(ContainElements(CmdRunInVRF(profile.VRF, "yum", "-y", "install", "python3"), clone))
			Expect(term.Sent()).NotTo(ContainElement(CmdRunInVRF(profile.VRF, "yum", "-y", "install", "git")))
		})

		It("Should fail if a dependency cannot be installed", func() {
			term = provisioned(term, profile)
			term.On(CmdRun("pip", "freeze"), "")
			p := New(term, WithProfile(profile))
			err := p.Provision(ctx, report)
			Expect(errors.Is(err, ErrDependency)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("natsort"))
			Expect(report.Outcome).To(Equal(v1alpha1.OutcomeFailed))
			Expect(conditionStatus(report, v1alpha1.DependenciesInstalledCondition)).To(Equal(metav1.ConditionFalse))
			Expect(conditionStatus(report, v1alpha1.AliasesConfiguredCondition)).To(Equal(metav1.ConditionUnknown))
		})

		It("Should upgrade pip without python modules", func() {
			profile.PipModules = nil
			term = provisioned(term, profile)
			p := New(term, WithProfile(profile))
			Expect(p.Provision(ctx, report)).To(Succeed())
			Expect(term.Sent()).To(ContainElement(CmdRunInVRF(profile.VRF, "pip3", "install", "--upgrade", "pip")))
			Expect(term.Sent()).NotTo(ContainElement(CmdRun("pip", "freeze")))
		})

		It("Should update the base packages when requested", func() {
			term = provisioned(term, profile)
			p := New(term, WithProfile(profile), WithUpdateBase())
			Expect(p.Provision(ctx, report)).To(Succeed())
			Expect(term.Sent()).To(ContainElement(CmdRunInVRF(profile.VRF, "yum", "-y", "update")))
		})
	})

	Context("When the network is not working", func() {
		It("Should fail if the internet is not reachable", func() {
			term = provisioned(term, profile)
			term.On(CmdRunInVRF(profile.VRF, "ping", "-c", "1", profile.ProbeAddress), "1 packets transmitted, 0 received, 100% packet loss, time 0ms")
			p := New(term, WithProfile(profile))
			err := p.Provision(ctx, report)
			Expect(errors.Is(err, ErrNoInternet)).To(BeTrue())
			Expect(report.Outcome).To(Equal(v1alpha1.OutcomeFailed))
			Expect(report.Outcome.Retry()).To(BeFalse())
			Expect(conditionStatus(report, v1alpha1.ReachableCondition)).To(Equal(metav1.ConditionFalse))
			Expect(conditions.GetTopLevelCondition(report).Message).To(ContainSubstring("Reachable"))
		})

		It("Should configure a nameserver if DNS does not work", func() {
			term = provisioned(term, profile)
			term.On(CmdRunInVRF(profile.VRF, "getent", "hosts", profile.ProbeHostname), "", "", "149.112.112.112 quad9.com")
			p := New(term, WithProfile(profile), WithRetryInterval(time.Millisecond))
			Expect(p.Provision(ctx, report)).To(Succeed())
			Expect(term.Sent()).To(ContainElement(CmdWriteNameserver(profile.Nameserver)))
			Expect(conditionStatus(report, v1alpha1.DNSResolvedCondition)).To(Equal(metav1.ConditionTrue))
		})

		It("Should give up after the configured number of attempts", func() {
			term = provisioned(term, profile)
			resolve := CmdRunInVRF(profile.VRF, "getent", "hosts", profile.ProbeHostname)
			term.On(resolve, "")
			profile.DNSAttempts = 2
			p := New(term, WithProfile(profile), WithRetryInterval(time.Millisecond))
			err := p.Provision(ctx, report)
			Expect(errors.Is(err, ErrDNS)).To(BeTrue())
			var n int
			for _, cmd := range term.Sent() {
				if cmd == resolve {
					n++
				}
			}
			Expect(n).To(Equal(3))
		})
	})

	Context("When running in dry-run mode", func() {
		It("Should not send any state-changing command", func() {
			term.On(CmdShowStatus, statusJSON("Activated", 250, 256, 1))
			p := New(term, WithProfile(profile), WithDryRun(), WithWait(time.Minute))
			Expect(p.Provision(ctx, report)).To(Succeed())
			Expect(report.Outcome).To(Equal(v1alpha1.OutcomeResized))
			Expect(term.Sent()).To(Equal([]string{CmdShowStatus}))
		})

		It("Should mark the steps as dry run", func() {
			term = provisioned(term, profile)
			term.On(CmdRun("yum", "list", "installed", "|", "grep", "git"), "")
			p := New(term, WithProfile(profile), WithDryRun())
			Expect(p.Provision(ctx, report)).To(Succeed())
			Expect(term.Sent()).NotTo(ContainElement("configure terminal"))
			Expect(term.Sent()).NotTo(ContainElement(CmdRunInVRF(profile.VRF, "yum", "-y", "install", "git")))
			for _, c := range report.Conditions {
				if c.Type == v1alpha1.DependenciesInstalledCondition {
					Expect(c.Reason).To(Equal(v1alpha1.DryRunReason))
				}
			}
		})
	})

	Context("When the device returns an error", func() {
		It("Should fail the sized condition", func() {
			term.Fail(CmdShowStatus, errors.New("connection reset"))
			p := New(term, WithProfile(profile))
			Expect(p.Provision(ctx, report)).To(MatchError(ContainSubstring("connection reset")))
			Expect(report.Outcome).To(Equal(v1alpha1.OutcomeFailed))
			Expect(conditionStatus(report, v1alpha1.SizedCondition)).To(Equal(metav1.ConditionFalse))
		})

		It("Should fail if an alias is rejected", func() {
			term = provisioned(term, profile)
			term.On(CmdAlias("wr", "copy run start"), "% Invalid command at '^' marker.")
			p := New(term, WithProfile(profile))
			Expect(p.Provision(ctx, report)).To(MatchError(ContainSubstring("alias wr")))
			Expect(conditionStatus(report, v1alpha1.AliasesConfiguredCondition)).To(Equal(metav1.ConditionFalse))
		})
	})
})

var _ = Describe("Inspect", func() {
	DescribeTable("Should record the status without changing anything",
		func(status string, outcome v1alpha1.Outcome, sized metav1.ConditionStatus) {
			term := newFakeTerminal().On(CmdShowStatus, status)
			report := &v1alpha1.HostReport{Name: "leaf1"}
			Expect(New(term).Inspect(ctx, report)).To(Succeed())
			Expect(report.Outcome).To(Equal(outcome))
			Expect(conditionStatus(report, v1alpha1.SizedCondition)).To(Equal(sized))
			Expect(term.Sent()).To(Equal([]string{CmdShowStatus}))
		},
		Entry("Not created", "", v1alpha1.Outcome(""), metav1.ConditionFalse),
		Entry("Ready", statusJSON("Activated", 1024, 1024, 5), v1alpha1.OutcomeReady, metav1.ConditionTrue),
		Entry("Too small", statusJSON("Activated", 250, 256, 1), v1alpha1.Outcome(""), metav1.ConditionFalse),
		Entry("Busy", statusJSON("Activating", 1024, 1024, 5), v1alpha1.OutcomeBusy, metav1.ConditionFalse),
		Entry("Deactivated", statusJSON("Deactivated", 1024, 1024, 5), v1alpha1.Outcome(""), metav1.ConditionFalse),
	)
})

var _ = Describe("Bootstrap", func() {
	It("Should send the complete configuration sequence", func() {
		profile := DefaultProfile()
		profile.Aliases = []v1alpha1.Alias{{Name: "wr", Command: "copy run start"}}
		term := newFakeTerminal()
		Expect(New(term, WithProfile(profile)).Bootstrap(ctx)).To(Succeed())
		Expect(term.Sent()).To(Equal([]string{
			CmdWriteNameserver("9.9.9.9"),
			"guestshell run sudo chvrf management yum -y update",
			"guestshell run sudo chvrf management yum -y install " + profile.Repository.RPM,
			"guestshell run sudo chvrf management yum -y install git python3",
			"guestshell run sudo chvrf management pip3 install --upgrade pip",
			"guestshell run sudo chvrf management pip3 install natsort",
			"guestshell run sudo chvrf management git clone " + profile.Scripts.URL + " " + ScriptsDir + "/",
			"configure terminal",
			"cli alias name wr copy run start",
			"end",
		}))
	})

	It("Should skip optional steps", func() {
		profile := DefaultProfile()
		profile.Repository = nil
		profile.Scripts = nil
		profile.PipModules = nil
		profile.Aliases = nil
		term := newFakeTerminal()
		Expect(New(term, WithProfile(profile)).Bootstrap(ctx)).To(Succeed())
		Expect(term.Sent()).To(HaveLen(4))
		Expect(term.Sent()).To(ContainElement("guestshell run sudo chvrf management pip3 install --upgrade pip"))
	})
})
