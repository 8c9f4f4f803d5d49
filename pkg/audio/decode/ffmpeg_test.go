package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/haivivi/antispoof/pkg/audio"
)

func TestParseStreamInfo(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    int
		wantErr bool
	}{
		{"stereo", `{"streams":[{"codec_name":"pcm_s16le","sample_rate":"44100","channels":2}]}`, 2, false},
		{"mono", `{"streams":[{"channels":1}]}`, 1, false},
		{"no stream", `{"streams":[]}`, 0, true},
		{"zero channels", `{"streams":[{"channels":0}]}`, 0, true},
		{"garbage", `not json`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStreamInfo([]byte(tt.out))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("channels = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseF32LE(t *testing.T) {
	want := []float32{0, 0.5, -1, 0.25}
	var b bytes.Buffer
	for _, v := range want {
		binary.Write(&b, binary.LittleEndian, math.Float32bits(v))
	}
	got, err := parseF32LE(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if _, err := parseF32LE([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated input")
	}
}

func TestExecError_HidesPath(t *testing.T) {
	stderr := bytes.NewBufferString("/srv/staging/123_a.wav: Invalid data found when processing input\n")
	err := execError("ffprobe", "/srv/staging/123_a.wav", errors.New("exit status 1"), stderr)
	if strings.Contains(err.Error(), "/srv/staging") {
		t.Errorf("error leaks path: %s", err)
	}
	if !strings.Contains(err.Error(), "123_a.wav") {
		t.Errorf("error lost file name: %s", err)
	}
}

func TestExecError_NotFound(t *testing.T) {
	err := execError("ffmpeg", "", exec.ErrNotFound, &bytes.Buffer{})
	if !errors.Is(err, errInstallHint) {
		t.Errorf("err = %v, want install hint", err)
	}
}

func TestFFmpeg_MissingBinary(t *testing.T) {
	f := &FFmpeg{FFprobePath: filepath.Join(t.TempDir(), "no-ffprobe")}
	if _, err := f.Decode(context.Background(), "x.wav"); err == nil {
		t.Error("expected error for missing ffprobe")
	}
}

func TestFFmpeg_Decode(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}

	path := filepath.Join(t.TempDir(), "stereo.wav")
	frames := 44100
	data := make([]int, frames*2)
	for i := range frames {
		data[2*i] = 8192
		data[2*i+1] = -8192
	}
	writeWAV(t, path, 44100, 2, data)

	wf, err := NewFFmpeg().Decode(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if wf.SampleRate != audio.CanonicalSampleRate || wf.NumChannels() != 2 {
		t.Fatalf("rate=%d ch=%d", wf.SampleRate, wf.NumChannels())
	}
	if n := wf.Len(); n < 15900 || n > 16100 {
		t.Errorf("Len = %d, want about 16000", n)
	}
	if v := wf.Channel(0)[8000]; math.Abs(float64(v)-0.25) > 0.01 {
		t.Errorf("left midpoint = %v, want 0.25", v)
	}
}
