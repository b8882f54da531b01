package gelf

import (
	"encoding/json"
	"net"
	"testing"
	"time"
)

func TestMessageFromZapEntry(t *testing.T) {
	w := &Writer{hostname: "host-a", service: "oxisurvey"}
	msg := w.message([]byte(`{"level":"error","ts":1704067200.5,"caller":"service/x.go:10","msg":"failed to save survey","surveyId":"1234","stacktrace":"goroutine 1"}` + "\n"))

	if msg["short_message"] != "failed to save survey" {
		t.Fatalf("short_message = %v", msg["short_message"])
	}
	if msg["level"] != 3 {
		t.Fatalf("level = %v", msg["level"])
	}
	if msg["timestamp"] != 1704067200.5 {
		t.Fatalf("timestamp = %v", msg["timestamp"])
	}
	if msg["_surveyId"] != "1234" || msg["_caller"] != "service/x.go:10" {
		t.Fatalf("extra fields = %v", msg)
	}
	if msg["full_message"] != "goroutine 1" || msg["_service"] != "oxisurvey" || msg["host"] != "host-a" {
		t.Fatalf("message = %v", msg)
	}
}

func TestMessageFromPlainLine(t *testing.T) {
	w := &Writer{hostname: "h", service: "s"}
	msg := w.message([]byte("plain text\n"))
	if msg["short_message"] != "plain text" || msg["level"] != 6 {
		t.Fatalf("message = %v", msg)
	}
}

func TestWriteSendsUDP(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp unavailable: %v", err)
	}
	defer pc.Close()

	w, err := New(pc.LocalAddr().String(), "oxisurvey")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	line := []byte(`{"level":"warn","msg":"slow query"}`)
	if n, err := w.Write(line); err != nil || n != len(line) {
		t.Fatalf("Write = %d, %v", n, err)
	}

	pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 8192)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf[:n], &got); err != nil {
		t.Fatal(err)
	}
	if got["version"] != "1.1" || got["short_message"] != "slow query" || got["level"] != float64(4) {
		t.Fatalf("payload = %v", got)
	}
}
