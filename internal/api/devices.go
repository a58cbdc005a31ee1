package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"go.bug.st/serial"

	"github.com/banshee-data/activity.report/internal/httputil"
	"github.com/banshee-data/activity.report/internal/monitoring"
)

// SerialDeviceInfo describes a serial port the sensor could be attached to.
type SerialDeviceInfo struct {
	PortPath     string `json:"port_path"`
	FriendlyName string `json:"friendly_name"`
}

func defaultListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// listSerialDevices handles GET /api/serial/devices
func (s *Server) listSerialDevices(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}

	ports, err := s.listPorts()
	if err != nil {
		monitoring.Logf("Error enumerating serial ports: %v", err)
		httputil.InternalServerError(w, "failed to enumerate serial ports")
		return
	}

	devices := make([]SerialDeviceInfo, 0, len(ports))
	for _, p := range ports {
		devices = append(devices, SerialDeviceInfo{PortPath: p, FriendlyName: friendlyName(p)})
	}
	httputil.WriteJSONOK(w, devices)
}

// friendlyName labels common Linux serial device nodes.
func friendlyName(portPath string) string {
	name := filepath.Base(portPath)
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return fmt.Sprintf("USB Serial Adapter (%s)", name)
	case strings.HasPrefix(name, "ttyACM"):
		return fmt.Sprintf("USB CDC Device (%s)", name)
	case strings.HasPrefix(name, "ttyAMA"), strings.HasPrefix(name, "ttyS0"):
		return fmt.Sprintf("Raspberry Pi Serial (%s)", name)
	case strings.HasPrefix(name, "rfcomm"):
		return fmt.Sprintf("Bluetooth Serial (%s)", name)
	default:
		return name
	}
}
