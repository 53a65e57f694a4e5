package commands

import (
	"github.com/spectroneph/nephd/internal/device"
	"github.com/spectroneph/nephd/internal/dispatch"
	"github.com/spectroneph/nephd/internal/protocol"
)

func configBody(cfg device.Config) protocol.Body {
	return protocol.Body{
		"gain":                 cfg.Gain,
		"integration_time":     cfg.IntegrationTimeMs,
		"led_current":          cfg.LedCurrentMa,
		"led_enabled":          cfg.LedEnabled,
		"external_led_enabled": cfg.ExternalLedEnabled,
	}
}

func sensorInitHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(_ protocol.Params, resp protocol.Body, _ protocol.Command) error {
		err := deps.Sensor.Init()
		if err != nil {
			resp["error"] = "Failed to initialize AS7341"
		}
		resp["initialized"] = err == nil
		return nil
	})
}

func sensorConfigHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(params protocol.Params, resp protocol.Body, _ protocol.Command) error {
		gain := intParam(params, "gain", device.DefaultGain)
		integrationTime := intParam(params, "integration_time", device.DefaultIntegrationMs)
		ledCurrent := intParam(params, "led_current", device.DefaultLedCurrentMa)

		if !deps.Sensor.Configure(gain, integrationTime, ledCurrent) {
			resp["warning"] = "Some configuration parameters were invalid"
		}

		// Report the applied values, substituted where inputs were clamped.
		for k, v := range configBody(deps.Sensor.AppliedConfig()) {
			resp[k] = v
		}
		return nil
	})
}

func sensorReadHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(_ protocol.Params, resp protocol.Body, _ protocol.Command) error {
		counts, err := deps.Sensor.ReadAllChannels()
		if err != nil {
			resp["error"] = "Failed to read spectral data"
			return nil
		}
		for name, count := range counts {
			resp[name] = count
		}
		return nil
	})
}

func sensorLedHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(params protocol.Params, resp protocol.Body, _ protocol.Command) error {
		enabled := boolParam(params, "enabled", false)
		current := intParam(params, "current", device.DefaultLedCurrentMa)
		external := boolParam(params, "external", false)

		var ok bool
		if external {
			ok = deps.Sensor.SetExternalLed(enabled)
			resp["type"] = "external"
		} else {
			ok = deps.Sensor.SetOnboardLed(enabled, current)
			resp["type"] = "onboard"
			resp["current"] = deps.Sensor.AppliedConfig().LedCurrentMa
		}

		if !ok {
			resp["error"] = "Failed to control LED"
		}
		resp["enabled"] = enabled
		return nil
	})
}
