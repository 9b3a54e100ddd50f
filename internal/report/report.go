// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package report renders host reports for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"sigs.k8s.io/yaml"

	"github.com/ironcore-dev/nxos-guestshell/api/v1alpha1"
	"github.com/ironcore-dev/nxos-guestshell/internal/conditions"
)

// Format is an output format of [Write].
type Format string

const (
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
)

// Formats lists all supported output formats.
var Formats = []Format{FormatTable, FormatYAML, FormatJSON}

// ParseFormat validates the name of an output format.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format %q, must be one of %v", s, Formats)
}

// New wraps the host reports into a [v1alpha1.Report] document.
func New(hosts []v1alpha1.HostReport) *v1alpha1.Report {
	r := &v1alpha1.Report{Hosts: hosts}
	r.APIVersion = v1alpha1.GroupVersion
	r.Kind = v1alpha1.ReportKind
	return r
}

// Write renders the reports to w in the given format.
func Write(w io.Writer, hosts []v1alpha1.HostReport, format Format) error {
	switch format {
	case FormatYAML:
		b, err := yaml.Marshal(New(hosts))
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		_, err = w.Write(b)
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(New(hosts))
	case FormatTable, "":
		_, err := io.WriteString(w, Table(hosts)+"\n")
		return err
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	readyStyle  = cellStyle.Foreground(lipgloss.Color("2"))
	retryStyle  = cellStyle.Foreground(lipgloss.Color("3"))
	failedStyle = cellStyle.Foreground(lipgloss.Color("1"))
)

// Columns of the table rendered by [Table].
var Columns = []string{"HOST", "ADDRESS", "OUTCOME", "STATE", "ROOTFS", "MEMORY", "CPU", "MODEL", "VERSION", "MESSAGE"}

const outcomeColumn = 2

// Table renders the reports as a table with one row per host.
func Table(hosts []v1alpha1.HostReport) string {
	rows := make([][]string, len(hosts))
	for i, h := range hosts {
		rows[i] = Row(h)
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(Columns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col != outcomeColumn || row < 0 || row >= len(hosts) {
				return cellStyle
			}
			switch o := hosts[row].Outcome; {
			case o == v1alpha1.OutcomeReady:
				return readyStyle
			case o.Retry():
				return retryStyle
			default:
				return failedStyle
			}
		}).
		Render()
}

// Row returns the table cells of a single report.
func Row(h v1alpha1.HostReport) []string {
	row := []string{h.Name, h.Address, string(h.Outcome), "-", "-", "-", "-", "-", "-", ""}
	if row[outcomeColumn] == "" {
		row[outcomeColumn] = "-"
	}
	if s := h.GuestShell; s != nil {
		row[3] = string(s.State)
		row[4] = strconv.Itoa(s.RootfsMB) + "MB"
		row[5] = strconv.Itoa(s.MemoryMB) + "MB"
		row[6] = strconv.Itoa(s.CPUPercent) + "%"
	}
	if f := h.Facts; f != nil {
		row[7] = dash(f.Model)
		row[8] = dash(f.FirmwareVersion)
	}
	if c := conditions.GetTopLevelCondition(&h); c != nil {
		row[9] = c.Message
	}
	return row
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// ExitCode returns 0 if every host is ready or expected to become ready
// when run again later, and 1 otherwise.
func ExitCode(hosts []v1alpha1.HostReport) int {
	for _, h := range hosts {
		if h.Outcome != v1alpha1.OutcomeReady && !h.Outcome.Retry() {
			return 1
		}
	}
	return 0
}

// NeedsRerun reports whether any host has to be provisioned again later.
func NeedsRerun(hosts []v1alpha1.HostReport) bool {
	for _, h := range hosts {
		if h.Outcome.Retry() {
			return true
		}
	}
	return false
}
