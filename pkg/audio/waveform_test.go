package audio

import (
	"testing"
	"time"
)

func TestDeinterleave(t *testing.T) {
	wf, err := Deinterleave([]float32{1, -1, 2, -2, 3, -3, 9}, 2, 16000)
	if err != nil {
		t.Fatal(err)
	}
	if wf.NumChannels() != 2 {
		t.Fatalf("channels = %d, want 2", wf.NumChannels())
	}
	if wf.Len() != 3 {
		t.Fatalf("len = %d, want 3", wf.Len())
	}
	want := [][]float32{{1, 2, 3}, {-1, -2, -3}}
	for c := range want {
		for i, v := range want[c] {
			if wf.Channel(c)[i] != v {
				t.Errorf("ch%d[%d] = %v, want %v", c, i, wf.Channel(c)[i], v)
			}
		}
	}
}

func TestDeinterleaveInvalidChannels(t *testing.T) {
	if _, err := Deinterleave([]float32{1}, 0, 16000); err == nil {
		t.Error("expected error for zero channels")
	}
}

func TestWaveformDuration(t *testing.T) {
	wf := NewMono(make([]float32, 32000), CanonicalSampleRate)
	if got := wf.Duration(); got != 2*time.Second {
		t.Errorf("Duration() = %v, want 2s", got)
	}
}

func TestWaveformValidate(t *testing.T) {
	tests := []struct {
		name    string
		wf      *Waveform
		wantErr bool
	}{
		{"mono", NewMono([]float32{0, 1}, 16000), false},
		{"no channels", &Waveform{SampleRate: 16000}, true},
		{"zero rate", NewMono([]float32{0}, 0), true},
		{"ragged", &Waveform{Channels: [][]float32{{0, 1}, {0}}, SampleRate: 16000}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.wf.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
