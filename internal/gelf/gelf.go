package gelf

import (
	"encoding/json"
	"net"
	"os"
	"strings"
	"time"
)

// Writer sends GELF messages over UDP. It implements zapcore.WriteSyncer
// and expects each Write to carry one zap JSON entry.
type Writer struct {
	conn     net.Conn
	hostname string
	service  string
}

// New creates a GELF UDP writer connected to addr (e.g. "172.17.0.1:12201").
func New(addr, service string) (*Writer, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = service
	}

	return &Writer{conn: conn, hostname: hostname, service: service}, nil
}

// Syslog severities used by GELF.
var levels = map[string]int{
	"debug":  7,
	"info":   6,
	"warn":   4,
	"error":  3,
	"dpanic": 2,
	"panic":  2,
	"fatal":  2,
}

// Write sends one GELF message. Logging never fails because of the sink,
// so encoding and network errors are dropped.
func (w *Writer) Write(p []byte) (int, error) {
	payload, err := json.Marshal(w.message(p))
	if err != nil {
		return len(p), nil
	}
	// Fire-and-forget
	w.conn.Write(payload)
	return len(p), nil
}

func (w *Writer) Sync() error { return nil }

func (w *Writer) Close() error { return w.conn.Close() }

// message converts a zap JSON entry into a GELF 1.1 payload. Lines that are
// not JSON are sent verbatim at informational level.
func (w *Writer) message(p []byte) map[string]any {
	line := strings.TrimRight(string(p), "\n")
	msg := map[string]any{
		"version":       "1.1",
		"host":          w.hostname,
		"short_message": line,
		"timestamp":     float64(time.Now().UnixNano()) / 1e9,
		"level":         6,
		"_service":      w.service,
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return msg
	}
	for k, v := range entry {
		switch k {
		case "msg":
			msg["short_message"] = v
		case "level":
			if s, ok := v.(string); ok {
				if lvl, ok := levels[strings.ToLower(s)]; ok {
					msg["level"] = lvl
				}
			}
		case "ts":
			if ts, ok := v.(float64); ok {
				msg["timestamp"] = ts
			}
		case "stacktrace":
			msg["full_message"] = v
		case "id":
			// "_id" is reserved by GELF.
			msg["_entry_id"] = v
		default:
			msg["_"+k] = v
		}
	}
	return msg
}
