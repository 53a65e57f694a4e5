package commands

import (
	"github.com/spectroneph/nephd/internal/device"
	"github.com/spectroneph/nephd/internal/dispatch"
	"github.com/spectroneph/nephd/internal/protocol"
	"github.com/spectroneph/nephd/internal/stream"
)

func streamStartHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(params protocol.Params, resp protocol.Body, _ protocol.Command) error {
		streamType, ok := stringParam(params, "type")
		if !ok {
			resp["error"] = "Missing stream type"
			return nil
		}
		if !deps.Streams.HasProducer(streamType) {
			resp["type"] = streamType
			resp["error"] = "Unknown stream type: " + streamType
			return nil
		}

		intervalMs := int64Param(params, "interval_ms", stream.DefaultIntervalMs)
		var streamParams protocol.Params
		if sub, ok := params["params"].(map[string]any); ok {
			streamParams = protocol.Params(sub)
		}

		info, err := deps.Streams.Start(streamType, streamParams, intervalMs)
		resp["type"] = streamType
		if err != nil {
			resp["error"] = "Failed to start stream"
			resp["active"] = false
			return nil
		}
		if info.IntervalMs != intervalMs {
			resp["warning"] = "interval_ms adjusted to allowed range"
		}
		resp["interval_ms"] = info.IntervalMs
		resp["active"] = true
		return nil
	})
}

func streamStopHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(params protocol.Params, resp protocol.Body, _ protocol.Command) error {
		streamType, ok := stringParam(params, "type")
		if !ok {
			resp["error"] = "Missing stream type"
			return nil
		}

		// Stopping an absent stream is a reported fact, not an error.
		wasActive := deps.Streams.Active(streamType)
		if wasActive {
			_ = deps.Streams.Stop(streamType)
		}
		resp["type"] = streamType
		resp["was_active"] = wasActive
		return nil
	})
}

func getStreamsHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(_ protocol.Params, resp protocol.Body, _ protocol.Command) error {
		list := deps.Streams.List()
		streams := make([]protocol.Body, 0, len(list))
		for _, info := range list {
			streams = append(streams, protocol.Body{
				"type":        info.Type,
				"interval_ms": info.IntervalMs,
			})
		}
		resp["streams"] = streams
		resp["count"] = len(streams)
		return nil
	})
}

func resetHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(_ protocol.Params, resp protocol.Body, _ protocol.Command) error {
		deps.Streams.StopAll()
		deps.Sensor.SetOnboardLed(false, device.DefaultLedCurrentMa)
		deps.Sensor.SetExternalLed(false)

		resp["reset"] = true
		resp["message"] = "Device will reset in 1 second"

		// Restart is scheduled by the lifecycle collaborator so the
		// response drains to the transport first.
		deps.Lifecycle.Restart()
		return nil
	})
}
