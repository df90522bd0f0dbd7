package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PCI class codes of storage controllers that may run a RAID stack
const (
	ClassRAID = "0x0104"
	ClassSAS  = "0x0107"
)

// PCIDevice is a device found under /sys/bus/pci/devices
type PCIDevice struct {
	Slot     string `json:"slot"`
	VendorID string `json:"vendor_id"`
	DeviceID string `json:"device_id"`
	Class    string `json:"class"`
	// Driver is the kernel module bound to the device, empty when unbound
	Driver string `json:"driver"`
}

// IsRAIDController reports whether the device is a RAID or SAS controller
func (d PCIDevice) IsRAIDController() bool {
	return strings.HasPrefix(d.Class, ClassRAID) || strings.HasPrefix(d.Class, ClassSAS)
}

// DMIInfo holds the fields of /sys/class/dmi/id used for probing
type DMIInfo struct {
	SysVendor     string `json:"sys_vendor"`
	ProductName   string `json:"product_name"`
	ProductSerial string `json:"product_serial,omitempty"`
	BIOSVersion   string `json:"bios_version,omitempty"`
}

// HostInfo is what probes are given
type HostInfo struct {
	PCI []PCIDevice `json:"pci"`
	DMI DMIInfo     `json:"dmi"`
}

// RAIDControllers filters devices down to RAID and SAS controllers
func RAIDControllers(devices []PCIDevice) []PCIDevice {
	var out []PCIDevice
	for _, d := range devices {
		if d.IsRAIDController() {
			out = append(out, d)
		}
	}
	return out
}

// ScanHost reads PCI devices and DMI fields from the sysfs tree rooted at
// sysRoot (normally /sys). Nothing is executed, so this is safe to call often.
func ScanHost(sysRoot string) (HostInfo, error) {
	var host HostInfo

	pci, err := scanPCI(filepath.Join(sysRoot, "bus", "pci", "devices"))
	if err != nil {
		return host, err
	}
	host.PCI = pci
	host.DMI = scanDMI(filepath.Join(sysRoot, "class", "dmi", "id"))
	return host, nil
}

func scanPCI(dir string) ([]PCIDevice, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	devices := make([]PCIDevice, 0, len(entries))
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		dev := PCIDevice{
			Slot:     entry.Name(),
			VendorID: strings.TrimPrefix(readAttr(path, "vendor"), "0x"),
			DeviceID: strings.TrimPrefix(readAttr(path, "device"), "0x"),
			Class:    readAttr(path, "class"),
		}
		// driver is a symlink to /sys/bus/pci/drivers/<module>
		if target, err := os.Readlink(filepath.Join(path, "driver")); err == nil {
			dev.Driver = filepath.Base(target)
		}
		devices = append(devices, dev)
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Slot < devices[j].Slot })
	return devices, nil
}

func scanDMI(dir string) DMIInfo {
	return DMIInfo{
		SysVendor:     readAttr(dir, "sys_vendor"),
		ProductName:   readAttr(dir, "product_name"),
		ProductSerial: readAttr(dir, "product_serial"),
		BIOSVersion:   readAttr(dir, "bios_version"),
	}
}

func readAttr(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
