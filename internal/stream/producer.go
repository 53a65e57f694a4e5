package stream

import (
	"errors"
	"fmt"

	"github.com/spectroneph/nephd/internal/device"
	"github.com/spectroneph/nephd/internal/protocol"
)

var ErrSensorUnavailable = errors.New("stream: sensor not connected")

// Producer sources one data message each time its stream is due. A
// returned error keeps the stream active and defers to the scheduler's
// retry policy.
type Producer interface {
	Produce(streamType string, params protocol.Params) error
}

// ProducerFunc adapts a plain function to the Producer interface.
type ProducerFunc func(streamType string, params protocol.Params) error

func (f ProducerFunc) Produce(streamType string, params protocol.Params) error {
	return f(streamType, params)
}

// SensorProducer reads every spectral channel and emits the reading as a
// data message. A disconnected sensor or a failed read reports failure so
// the scheduler retries on the next qualifying tick.
type SensorProducer struct {
	sensor  device.Sensor
	channel *protocol.Channel
}

func NewSensorProducer(sensor device.Sensor, channel *protocol.Channel) *SensorProducer {
	return &SensorProducer{sensor: sensor, channel: channel}
}

func (p *SensorProducer) Produce(streamType string, _ protocol.Params) error {
	if !p.sensor.IsConnected() {
		return ErrSensorUnavailable
	}
	counts, err := p.sensor.ReadAllChannels()
	if err != nil {
		return fmt.Errorf("stream: channel read failed: %w", err)
	}
	readings := protocol.Body{}
	for name, count := range counts {
		readings[name] = count
	}
	return p.channel.WriteData(streamType, readings)
}
