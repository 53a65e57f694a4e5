// Package transport opens the byte link the protocol engine runs over.
// The device speaks to exactly one host at a time, so the TCP kind
// accepts a single connection and stops listening.
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

const (
	KindStdio  = "stdio"
	KindTCP    = "tcp"
	KindSerial = "serial"

	DefaultBaudRate = 115200
)

var ErrUnknownKind = errors.New("transport: unknown kind")

// Config selects and parameterizes the transport.
type Config struct {
	Kind       string
	Addr       string
	SerialPort string
	BaudRate   int
}

// Open returns the byte link for cfg. The caller owns closing it.
func Open(cfg Config, log zerolog.Logger) (io.ReadWriteCloser, error) {
	switch cfg.Kind {
	case KindStdio, "":
		return stdio{}, nil
	case KindTCP:
		return openTCP(cfg.Addr, log)
	case KindSerial:
		return openSerial(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// stdio is the process's standard streams as one link. Close is a no-op:
// the streams belong to the process, not the transport.
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error                { return nil }

func openTCP(addr string, log zerolog.Logger) (io.ReadWriteCloser, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("waiting for host connection")

	conn, err := ln.Accept()
	ln.Close()
	if err != nil {
		return nil, fmt.Errorf("transport: accept: %w", err)
	}
	log.Info().Str("peer", conn.RemoteAddr().String()).Msg("host connected")
	return conn, nil
}

func openSerial(cfg Config) (io.ReadWriteCloser, error) {
	baud := cfg.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(cfg.SerialPort, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("transport: open serial %s: %w", cfg.SerialPort, err)
	}
	return port, nil
}
