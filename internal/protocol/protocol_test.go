package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLineScannerFramesLinesAndIgnoresCR(t *testing.T) {
	s := NewLineScanner(strings.NewReader("{\"a\":1}\r\n\r\n{\"b\":2}\n"), 64)

	line, err := s.Next()
	if err != nil {
		t.Fatalf("first line: %v", err)
	}
	if string(line) != `{"a":1}` {
		t.Fatalf("first line mismatch: %q", string(line))
	}

	line, err = s.Next()
	if err != nil {
		t.Fatalf("second line: %v", err)
	}
	if string(line) != `{"b":2}` {
		t.Fatalf("second line mismatch: %q", string(line))
	}

	if _, err := s.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestLineScannerOversizeLineIsDroppedNotTruncated(t *testing.T) {
	long := strings.Repeat("x", 40)
	s := NewLineScanner(strings.NewReader(long+"\nshort\n"), 16)

	_, err := s.Next()
	if !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected ErrLineTooLong, got %v", err)
	}

	line, err := s.Next()
	if err != nil {
		t.Fatalf("line after overflow: %v", err)
	}
	if string(line) != "short" {
		t.Fatalf("scanner did not recover: %q", string(line))
	}
}

func TestLineScannerDropsPartialLineAtEOF(t *testing.T) {
	s := NewLineScanner(strings.NewReader("no terminator"), 64)
	if _, err := s.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF for unterminated input, got %v", err)
	}
}

func TestDecodeCommand(t *testing.T) {
	cases := []struct {
		name    string
		line    string
		wantErr error
		wantCmd string
		wantID  int64
	}{
		{name: "valid", line: `{"cmd":"ping","id":7,"params":{}}`, wantCmd: "ping", wantID: 7},
		{name: "missing params", line: `{"cmd":"ping","id":3}`, wantCmd: "ping", wantID: 3},
		{name: "not json", line: `{"cmd":`, wantErr: ErrNotJSON},
		{name: "no marker", line: `{"resp":"data","id":1}`, wantErr: ErrNotCommand},
		{name: "marker not string", line: `{"cmd":12,"id":1}`, wantErr: ErrNotCommand},
		{name: "not an object", line: `[1,2,3]`, wantErr: ErrNotCommand},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tc.line))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if cmd.Name != tc.wantCmd || cmd.ID != tc.wantID {
				t.Fatalf("decoded %q id=%d, want %q id=%d", cmd.Name, cmd.ID, tc.wantCmd, tc.wantID)
			}
			if cmd.Params == nil {
				t.Fatalf("params must never be nil")
			}
		})
	}
}

func TestChannelWriteResponse(t *testing.T) {
	var buf bytes.Buffer
	ch := NewChannel(&buf, func() int64 { return 42 })

	err := ch.WriteResponse(Response{Resp: RespData, ID: 7, Status: StatusSuccess, Data: Body{"pong": true}})
	if err != nil {
		t.Fatalf("write response: %v", err)
	}
	got := buf.String()
	if !strings.HasSuffix(got, "\n") {
		t.Fatalf("response is not newline terminated: %q", got)
	}
	want := `{"resp":"data","id":7,"status":0,"data":{"pong":true}}` + "\n"
	if got != want {
		t.Fatalf("response mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestChannelWriteDataCarriesMarkerAndPayload(t *testing.T) {
	var buf bytes.Buffer
	ch := NewChannel(&buf, func() int64 { return 1234 })

	if err := ch.WriteData("as7341", Body{"F1": 100}); err != nil {
		t.Fatalf("write data: %v", err)
	}
	got := buf.String()
	want := `{"data":true,"type":"as7341","timestamp":1234,"data":{"F1":100}}` + "\n"
	if got != want {
		t.Fatalf("data message mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestChannelWriteEvent(t *testing.T) {
	var buf bytes.Buffer
	ch := NewChannel(&buf, func() int64 { return 5 })

	if err := ch.WriteEvent("device_ready", Body{"uptime": 5}); err != nil {
		t.Fatalf("write event: %v", err)
	}
	got := buf.String()
	want := `{"event":true,"type":"device_ready","timestamp":5,"data":{"uptime":5}}` + "\n"
	if got != want {
		t.Fatalf("event message mismatch:\n got %q\nwant %q", got, want)
	}
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) { return len(p) - 1, nil }

func TestChannelReportsShortWrite(t *testing.T) {
	ch := NewChannel(shortWriter{}, func() int64 { return 0 })
	err := ch.WriteResponse(Response{Resp: RespAck, ID: 1})
	if !errors.Is(err, ErrShortWrite) {
		t.Fatalf("expected ErrShortWrite, got %v", err)
	}
}
