// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package cdp

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const neighbors = `{
  "TABLE_cdp_neighbor_detail_info": {
    "ROW_cdp_neighbor_detail_info": [
      {
        "ifindex": "436232192",
        "device_id": "spine1.example.com(FDO22110ABC)",
        "v4addr": "10.0.0.1",
        "platform_id": "cisco N9K-C9336C-FX2",
        "capability": ["router", "switch", "IGMP_cnd_filtering", "Supports-STP-Dispute"],
        "intf_id": "Ethernet1/10",
        "port_id": "Ethernet1/1",
        "ttl": "137",
        "version": "Cisco Nexus Operating System (NX-OS) Software, Version 10.4(3)",
        "v4mgmtaddr": "10.0.0.1"
      },
      {
        "device_id": "phone(SEP0011AABBCCDD)",
        "v4addr": "0.0.0.0",
        "platform_id": "Cisco IP Phone 8845",
        "intf_id": "Ethernet1/2",
        "port_id": "Port 1",
        "version": "sip88xx.14-1-1MN-366 CCM:SIP 14.1"
      },
      {
        "device_id": "oob-switch",
        "v4addr": "192.168.0.3",
        "platform_id": "cisco WS-C2960X-48TS-L",
        "intf_id": "mgmt0",
        "port_id": "GigabitEthernet0/12",
        "version": "Cisco IOS Software, C2960X Software (C2960X-UNIVERSALK9-M), Version 15.2(7)E3, RELEASE SOFTWARE (fc3)\nTechnical Support: http://www.cisco.com/techsupport",
        "v4mgmtaddr": "192.168.0.2"
      }
    ]
  }
}`

func TestParse(t *testing.T) {
	got, err := Parse([]byte(neighbors))
	require.NoError(t, err)
	require.Len(t, got, 3)

	want := []Neighbor{
		{
			Index:             2,
			Interface:         "Ethernet1/2",
			LocalInterface:    "Eth1/2",
			Name:              "phone",
			NeighborInterface: "Por 1",
			MgmtAddress:       "--",
			Address:           "--",
			Platform:          "IP Phone 8845",
			Version:           "SIP 14.1",
		},
		{
			Index:             1,
			Interface:         "Ethernet1/10",
			LocalInterface:    "Eth1/10",
			Name:              "spine1",
			NeighborInterface: "Eth 1/1",
			MgmtAddress:       "10.0.0.1",
			Address:           "(--)",
			Platform:          "N9K-C9336C-FX2",
			Version:           "10.4(3)",
		},
		{
			Index:             3,
			Interface:         "mgmt0",
			LocalInterface:    "mgmt0",
			Name:              "oob-switch",
			NeighborInterface: "Gig 0/12",
			MgmtAddress:       "192.168.0.2",
			Address:           "192.168.0.3",
			Platform:          "WS-C2960X-48TS-L",
			Version:           "15.2(7)E3",
		},
	}
	assert.Equal(t, want, got)
}

func TestParse_SingleNeighbor(t *testing.T) {
	data := `{"TABLE_cdp_neighbor_detail_info": {"ROW_cdp_neighbor_detail_info": {"device_id": "leaf2", "intf_id": "Ethernet1/49", "port_id": "Ethernet1/49", "v4addr": "10.1.1.2"}}}`
	got, err := Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "leaf2", got[0].Name)
	assert.Equal(t, "--", got[0].MgmtAddress)
	assert.Equal(t, "10.1.1.2", got[0].Address)
}

func TestParse_NoNeighbors(t *testing.T) {
	for _, data := range []string{"", "\n", "% Invalid command", `{"TABLE_foo": {}}`, `{"TABLE_cdp_neighbor_detail_info": {"ROW_cdp_neighbor_detail_info": []}}`} {
		_, err := Parse([]byte(data))
		assert.ErrorIs(t, err, ErrNoNeighbors, "input %q", data)
	}
}

func TestSort(t *testing.T) {
	n := []Neighbor{
		{Index: 1, Interface: "Ethernet1/10"},
		{Index: 2, Interface: "mgmt0"},
		{Index: 3, Interface: "Ethernet1/2"},
		{Index: 4, Interface: "Ethernet1/2"},
		{Index: 5, Interface: "Ethernet1/1"},
	}
	Sort(n)
	var order []int
	for _, v := range n {
		order = append(order, v.Index)
	}
	assert.Equal(t, []int{5, 3, 4, 1, 2}, order)
}

func TestWrite(t *testing.T) {
	n, err := Parse([]byte(neighbors))
	require.NoError(t, err)

	tests := []struct {
		name   string
		opts   Options
		dashes int
		header string
		row    string
	}{
		{
			name:   "Default",
			dashes: 80,
			header: fmt.Sprintf("%-8s -> %-22s %-14s %-16s %-16s", "L-Intf", "Neighbor", "N-Intf", "Mgmt-IPv4-Addr", "IPv4-Addr"),
			row:    fmt.Sprintf("%-8s -> %-22s %-14s %-16s %-16s", "Eth1/10", "spine1", "Eth 1/1", "10.0.0.1", "(--)"),
		},
		{
			name:   "Platform",
			opts:   Options{Platform: true},
			dashes: 95,
			header: fmt.Sprintf("%-8s -> %-22s %-14s %-16s %-16s %-20s", "L-Intf", "Neighbor", "N-Intf", "Mgmt-IPv4-Addr", "IPv4-Addr", "Platform"),
			row:    fmt.Sprintf("%-8s -> %-22s %-14s %-16s %-16s %-20s", "Eth1/10", "spine1", "Eth 1/1", "10.0.0.1", "(--)", "N9K-C9336C-FX2"),
		},
		{
			name:   "Version",
			opts:   Options{Version: true},
			dashes: 95,
			header: fmt.Sprintf("%-8s -> %-22s %-14s %-16s %-16s %-20s", "L-Intf", "Neighbor", "N-Intf", "Mgmt-IPv4-Addr", "IPv4-Addr", "Version"),
			row:    fmt.Sprintf("%-8s -> %-22s %-14s %-16s %-16s %-20s", "Eth1/10", "spine1", "Eth 1/1", "10.0.0.1", "(--)", "10.4(3)"),
		},
		{
			name:   "Platform and version",
			opts:   Options{Platform: true, Version: true},
			dashes: 115,
			header: fmt.Sprintf("%-8s -> %-22s %-14s %-16s %-16s %-20s %-20s", "L-Intf", "Neighbor", "N-Intf", "Mgmt-IPv4-Addr", "IPv4-Addr", "Platform", "Version"),
			row:    fmt.Sprintf("%-8s -> %-22s %-14s %-16s %-16s %-20s %-20s", "Eth1/10", "spine1", "Eth 1/1", "10.0.0.1", "(--)", "N9K-C9336C-FX2", "10.4(3)"),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, n, test.opts))
			out := buf.String()

			assert.Contains(t, out, "Neighbors parsed: 3\n")
			lines := strings.Split(out, "\n")
			i := strings.Index(out, test.header+"\n")
			require.GreaterOrEqual(t, i, 0, "header not found in\n%s", out)
			assert.Contains(t, lines, strings.Repeat("-", test.dashes))
			assert.Equal(t, test.row, lines[len(lines)-3])
			assert.Equal(t, "", lines[len(lines)-1])
		})
	}
}

func TestBrief(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Brief(&buf, []byte("not json"), Options{}))
	assert.Equal(t, NoNeighborsMessage+"\n", buf.String())

	buf.Reset()
	require.NoError(t, Brief(&buf, []byte(neighbors), Options{Version: true}))
	assert.True(t, strings.HasPrefix(buf.String(), "CDP brief prints useful CDP neighbor information.\n"))
	assert.Contains(t, buf.String(), "'N-Intf' denotes neighbor interface.\n\n\nL-Intf")
}
