package syncdir

import (
	"bytes"
	"encoding/hex"
	"net"
	"os"
	"runtime"
	"sort"
	"strings"
)

// Identity describes the machine publishing an export.
type Identity struct {
	MachineID string `json:"machine_id" yaml:"machine_id"`
	Hostname  string `json:"hostname" yaml:"hostname"`
	Platform  string `json:"platform" yaml:"platform"`
}

// LocalIdentity returns the identity of the current machine. The machine id
// combines the hostname with the hardware address of the first network
// interface, so it stays stable across runs.
func LocalIdentity() (Identity, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		MachineID: MachineID(hostname, hardwareAddr()),
		Hostname:  hostname,
		Platform:  Platform(runtime.GOOS),
	}, nil
}

// MachineID formats hostname and a hardware address as hostname_<12 hex>.
// A missing address is written as zeros.
func MachineID(hostname string, mac net.HardwareAddr) string {
	if len(mac) != 6 {
		mac = make(net.HardwareAddr, 6)
	}
	return hostname + "_" + hex.EncodeToString(mac)
}

// Platform names an operating system the way exports record it.
func Platform(goos string) string {
	switch goos {
	case "darwin":
		return "Darwin"
	case "linux":
		return "Linux"
	case "windows":
		return "Windows"
	case "":
		return ""
	default:
		return strings.ToUpper(goos[:1]) + goos[1:]
	}
}

// hardwareAddr returns the 48-bit address of the lowest-indexed interface
// that has one.
func hardwareAddr() net.HardwareAddr {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].Index < ifaces[j].Index })
	zero := make(net.HardwareAddr, 6)
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) != 6 {
			continue
		}
		if bytes.Equal(iface.HardwareAddr, zero) {
			continue
		}
		return iface.HardwareAddr
	}
	return nil
}
