package stream

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestChannelFilterRoundTrip(t *testing.T) {
	tests := []ChannelFilter{
		{},
		{Services: []string{"memory", "llm"}},
		{Metrics: []string{"cpu_percent"}, Services: []string{"memory"}},
		{Level: "ERROR", Service: "audit"},
		{Author: "ciris"},
		{TaskID: "task-42", MinDepth: 3},
	}

	for _, f := range tests {
		first, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("marshal %+v: %v", f, err)
		}
		var restored ChannelFilter
		if err := json.Unmarshal(first, &restored); err != nil {
			t.Fatalf("unmarshal %s: %v", first, err)
		}
		second, err := json.Marshal(restored)
		if err != nil {
			t.Fatalf("re-marshal: %v", err)
		}
		// Replay after reconnect must be indistinguishable from the
		// original subscribe call.
		if !bytes.Equal(first, second) {
			t.Errorf("round trip changed encoding: %s != %s", first, second)
		}
	}
}

func TestChannelFilterZeroValueIsEmptyObject(t *testing.T) {
	data, err := json.Marshal(ChannelFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{}" {
		t.Errorf("zero filter = %s; want {}", data)
	}
}

func TestSubscribeFrameEncoding(t *testing.T) {
	frame := subscribeFrame{
		Action: "subscribe",
		Channels: map[string]ChannelFilter{
			"telemetry": {Services: []string{"memory"}},
			"messages":  {},
		},
	}
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Action   string                     `json:"action"`
		Channels map[string]json.RawMessage `json:"channels"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Action != "subscribe" {
		t.Errorf("action = %q; want subscribe", decoded.Action)
	}
	if string(decoded.Channels["messages"]) != "{}" {
		t.Errorf("unfiltered channel = %s; want {}", decoded.Channels["messages"])
	}
	if string(decoded.Channels["telemetry"]) != `{"services":["memory"]}` {
		t.Errorf("filtered channel = %s", decoded.Channels["telemetry"])
	}
}

func TestUnsubscribeFrameEncoding(t *testing.T) {
	data, err := json.Marshal(unsubscribeFrame{Action: "unsubscribe", Channels: []string{"logs", "telemetry"}})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"action":"unsubscribe","channels":["logs","telemetry"]}`
	if string(data) != want {
		t.Errorf("frame = %s; want %s", data, want)
	}
}

func TestMessageDecoding(t *testing.T) {
	raw := `{"channel":"telemetry","event_type":"metric_update","timestamp":"2025-01-02T03:04:05Z","data":{"cpu":0.5},"sequence":7}`
	var m Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatal(err)
	}
	if m.Channel != "telemetry" || m.EventType != "metric_update" || m.Sequence != 7 {
		t.Errorf("decoded message = %+v", m)
	}
	if m.Timestamp.IsZero() {
		t.Error("timestamp not decoded")
	}
	if m.Data["cpu"] != 0.5 {
		t.Errorf("data = %v", m.Data)
	}
}
