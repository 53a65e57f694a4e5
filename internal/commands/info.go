package commands

import (
	"runtime"

	"github.com/spectroneph/nephd/internal/dispatch"
	"github.com/spectroneph/nephd/internal/protocol"
)

func pingHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(_ protocol.Params, resp protocol.Body, _ protocol.Command) error {
		resp["pong"] = true
		resp["time"] = deps.Clock()
		return nil
	})
}

func getInfoHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(_ protocol.Params, resp protocol.Body, _ protocol.Command) error {
		resp["name"] = deps.Name
		resp["version"] = deps.Version
		resp["uptime"] = deps.Lifecycle.UptimeMs()

		snap := deps.Lifecycle.DiagnosticSnapshot()
		resp["hardware"] = protocol.Body{
			"chip":      runtime.GOOS + "/" + runtime.GOARCH,
			"num_cpu":   snap.NumCPU,
			"cpu_freq":  snap.CPUFreqMHz,
			"flash_kb":  snap.FlashSizeKB,
			"free_heap": snap.FreeHeapBytes,
		}

		sensor := protocol.Body{
			"type":      "AS7341",
			"connected": deps.Sensor.IsConnected(),
		}
		if deps.Sensor.IsConnected() {
			sensor["config"] = configBody(deps.Sensor.AppliedConfig())
		}
		resp["sensor"] = sensor
		return nil
	})
}

func diagnosticsHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(_ protocol.Params, resp protocol.Body, _ protocol.Command) error {
		resp["status"] = "running"
		resp["timestamp"] = deps.Clock()

		snap := deps.Lifecycle.DiagnosticSnapshot()
		system := protocol.Body{
			"free_heap": snap.FreeHeapBytes,
			"num_cpu":   snap.NumCPU,
			"uptime_ms": deps.Lifecycle.UptimeMs(),
			"status":    "pass",
		}
		if deps.IdleMs != nil {
			system["idle_ms"] = deps.IdleMs()
		}
		resp["system"] = system

		connected := deps.Sensor.IsConnected()
		sensorStatus := "pass"
		if !connected {
			sensorStatus = "fail"
		}
		resp["sensor"] = protocol.Body{
			"connected": connected,
			"status":    sensorStatus,
		}

		// If this handler runs at all, the transport path works.
		resp["communication"] = protocol.Body{
			"transport": "pass",
			"status":    "pass",
		}

		result := "pass"
		if connected && sensorStatus != "pass" {
			result = "fail"
		}
		resp["result"] = result
		return nil
	})
}
