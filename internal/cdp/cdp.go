// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package cdp renders the output of "show cdp neighbor detail | json" as a
// compact one-line-per-neighbor table.
package cdp

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"github.com/facette/natsort"
	"github.com/tidwall/gjson"
)

// Command is the NX-OS command whose JSON output is parsed by [Parse].
const Command = "show cdp neighbor detail | json"

// ErrNoNeighbors is returned by [Parse] if the input holds no neighbor table.
var ErrNoNeighbors = errors.New("cdp: no neighbors found")

// NoNeighborsMessage is printed by [Brief] instead of a table if there are no neighbors.
const NoNeighborsMessage = "No CDP neighbors found."

const none = "--"

var (
	localIntfRe    = regexp.MustCompile(`(Eth|mgmt)[^\d]*([\d/]+)`)
	deviceIDRe     = regexp.MustCompile(`[.(]`)
	neighborIntfRe = regexp.MustCompile(`^(.{3})[^\d]*([\d/]+)`)
	ccmVersionRe   = regexp.MustCompile(`.*?CCM:([^ ,\n]*)`)
	versionRe      = regexp.MustCompile(`(?is).*?version:* ([^ ,\n]*).*`)
	platformRe     = regexp.MustCompile(`(?i)^cisco\s`)
)

// Neighbor is a single row of the CDP brief table.
type Neighbor struct {
	// Index is the position of the neighbor in the device output, starting at 1.
	Index int
	// Interface is the local interface as reported by the device, e.g. "Ethernet1/1".
	Interface string

	LocalInterface    string
	Name              string
	NeighborInterface string
	MgmtAddress       string
	Address           string
	Platform          string
	Version           string
}

// Parse extracts the neighbors from the JSON output of [Command]. A single
// neighbor is reported as an object, several neighbors as a list. The
// neighbors are returned in natural order of their local interface.
func Parse(data []byte) ([]Neighbor, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrNoNeighbors
	}
	rows := gjson.GetBytes(data, "TABLE_cdp_neighbor_detail_info.ROW_cdp_neighbor_detail_info")
	var entries []gjson.Result
	switch {
	case rows.IsArray():
		entries = rows.Array()
	case rows.IsObject():
		entries = []gjson.Result{rows}
	}
	if len(entries) == 0 {
		return nil, ErrNoNeighbors
	}

	neighbors := make([]Neighbor, 0, len(entries))
	for i, e := range entries {
		neighbors = append(neighbors, newNeighbor(i+1, e))
	}
	Sort(neighbors)
	return neighbors, nil
}

func newNeighbor(index int, e gjson.Result) Neighbor {
	intf := e.Get("intf_id").String()
	n := Neighbor{
		Index:             index,
		Interface:         intf,
		LocalInterface:    localIntfRe.ReplaceAllString(intf, "${1}${2}"),
		Name:              deviceIDRe.Split(e.Get("device_id").String(), 2)[0],
		NeighborInterface: neighborIntfRe.ReplaceAllString(e.Get("port_id").String(), "${1} ${2}"),
		Platform:          platformRe.ReplaceAllString(e.Get("platform_id").String(), ""),
		Version:           version(e.Get("version").String()),
		MgmtAddress:       none,
		Address:           none,
	}
	mgmt := e.Get("v4mgmtaddr")
	if mgmt.Exists() && mgmt.String() != "" {
		n.MgmtAddress = mgmt.String()
	}
	if addr := e.Get("v4addr"); addr.Exists() {
		switch a := addr.String(); {
		case mgmt.Exists() && a == mgmt.String():
			n.Address = "(--)"
		case a == "0.0.0.0", a == "":
			n.Address = none
		default:
			n.Address = a
		}
	}
	return n
}

func version(v string) string {
	if strings.Contains(v, "CCM") {
		return ccmVersionRe.ReplaceAllString(v, "${1}")
	}
	return versionRe.ReplaceAllString(v, "${1}")
}

// Sort orders neighbors naturally by local interface ("Ethernet1/2" before
// "Ethernet1/10"), then by their position in the device output.
func Sort(neighbors []Neighbor) {
	slices.SortStableFunc(neighbors, func(a, b Neighbor) int {
		switch {
		case a.Interface == b.Interface:
			return a.Index - b.Index
		case natsort.Compare(a.Interface, b.Interface):
			return -1
		default:
			return 1
		}
	})
}

// Options selects the optional columns of the table.
type Options struct {
	Platform bool
	Version  bool
}

const intro = `CDP brief prints useful CDP neighbor information.

-v will include neighbor version information.
-p will include neighbor platform information.

* Use ` + "`grep`" + ` to filter output (N9K only).

Neighbors parsed: %d

'L-Intf' denotes local interface.
'N-Intf' denotes neighbor interface.


`

// Write renders the table of neighbors to w, preceded by a short legend.
func Write(w io.Writer, neighbors []Neighbor, opts Options) error {
	format := "%-8s -> %-22s %-14s %-16s %-16s"
	header := []any{"L-Intf", "Neighbor", "N-Intf", "Mgmt-IPv4-Addr", "IPv4-Addr"}
	dashes := 80
	if opts.Platform {
		format += " %-20s"
		header = append(header, "Platform")
		dashes += 15
	}
	if opts.Version {
		format += " %-20s"
		header = append(header, "Version")
		dashes += 15
	}
	if opts.Platform && opts.Version {
		dashes += 5
	}
	format += "\n"

	var b strings.Builder
	fmt.Fprintf(&b, intro, len(neighbors))
	fmt.Fprintf(&b, format, header...)
	b.WriteString(strings.Repeat("-", dashes) + "\n")
	for _, n := range neighbors {
		row := []any{n.LocalInterface, n.Name, n.NeighborInterface, n.MgmtAddress, n.Address}
		if opts.Platform {
			row = append(row, n.Platform)
		}
		if opts.Version {
			row = append(row, n.Version)
		}
		fmt.Fprintf(&b, format, row...)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Brief parses data and writes the table to w. If data holds no neighbors,
// [NoNeighborsMessage] is written instead.
func Brief(w io.Writer, data []byte, opts Options) error {
	neighbors, err := Parse(data)
	if errors.Is(err, ErrNoNeighbors) {
		_, err = fmt.Fprintln(w, NoNeighborsMessage)
		return err
	}
	if err != nil {
		return err
	}
	return Write(w, neighbors, opts)
}
