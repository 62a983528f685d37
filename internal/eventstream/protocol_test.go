package eventstream

import (
	"testing"
	"time"
)

func TestEncodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		want    string
		wantErr bool
	}{
		{
			name: "event",
			msg:  Message{Type: TypeEvent, Name: "hotkey-pressed", Seq: 3, TS: 42},
			want: `{"type":"event","name":"hotkey-pressed","seq":3,"ts":42}`,
		},
		{
			name: "hello omits name",
			msg:  Message{Type: TypeHello, TS: 1},
			want: `{"type":"hello","seq":0,"ts":1}`,
		},
		{name: "missing type", msg: Message{Name: "x"}, wantErr: true},
		{name: "event without name", msg: Message{Type: TypeEvent}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeMessage(tt.msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EncodeMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(got) != tt.want {
				t.Fatalf("EncodeMessage() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    Message
		wantErr bool
	}{
		{name: "event", frame: `{"type":"event","name":"hotkey-released","seq":9,"ts":5}`, want: Message{Type: TypeEvent, Name: "hotkey-released", Seq: 9, TS: 5}},
		{name: "unknown fields ignored", frame: `{"type":"hello","extra":true}`, want: Message{Type: TypeHello}},
		{name: "missing type", frame: `{"name":"x"}`, wantErr: true},
		{name: "not json", frame: `hotkey-pressed`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeMessage([]byte(tt.frame))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("DecodeMessage() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMessageTime(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, int(250*time.Millisecond), time.UTC)
	msg := Message{TS: ts.UnixMilli()}
	if !msg.Time().Equal(ts) {
		t.Fatalf("Time() = %v, want %v", msg.Time(), ts)
	}
}
