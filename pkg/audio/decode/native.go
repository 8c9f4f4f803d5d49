package decode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"

	"github.com/haivivi/antispoof/pkg/audio"
)

// Container is an audio container format recognized by Native.
type Container string

const (
	ContainerUnknown Container = ""
	ContainerWAV     Container = "wav"
	ContainerMP3     Container = "mp3"
	ContainerFLAC    Container = "flac"
	ContainerOgg     Container = "ogg"
)

// ErrUnsupportedContainer is returned by Native for formats it cannot read.
var ErrUnsupportedContainer = errors.New("unsupported container")

// Native decodes WAV, MP3, FLAC and Ogg Vorbis in pure Go at the file's
// native rate. Ogg Opus and MP4/M4A need the FFmpeg strategy.
type Native struct{}

// NewNative returns a Native strategy.
func NewNative() *Native {
	return &Native{}
}

func (n *Native) Name() string { return "native" }

// Decode implements Decoder.
func (n *Native) Decode(ctx context.Context, path string) (*audio.Waveform, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), errors.Unwrap(err))
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, _ := br.Peek(oggHeadLen)
	c := Sniff(head)
	if c == ContainerUnknown {
		c = containerFromExt(path)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	switch c {
	case ContainerWAV:
		return decodeWAV(f)
	case ContainerMP3:
		return decodeMP3(bufio.NewReader(f))
	case ContainerFLAC:
		return decodeFLAC(bufio.NewReader(f))
	case ContainerOgg:
		return decodeOgg(head, bufio.NewReader(f))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContainer, strings.ToLower(filepath.Ext(path)))
	}
}

// Sniff identifies a container from the first bytes of a file.
func Sniff(head []byte) Container {
	switch {
	case len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return ContainerWAV
	case len(head) >= 4 && bytes.Equal(head[0:4], []byte("fLaC")):
		return ContainerFLAC
	case len(head) >= 4 && bytes.Equal(head[0:4], []byte("OggS")):
		return ContainerOgg
	case len(head) >= 3 && bytes.Equal(head[0:3], []byte("ID3")):
		return ContainerMP3
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return ContainerMP3
	}
	return ContainerUnknown
}

func containerFromExt(path string) Container {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return ContainerWAV
	case ".mp3":
		return ContainerMP3
	case ".flac":
		return ContainerFLAC
	case ".ogg", ".oga":
		return ContainerOgg
	}
	return ContainerUnknown
}

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

func decodeWAV(r io.ReadSeeker) (*audio.Waveform, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.New("wav: invalid file")
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("wav: %w: format tag %d", ErrUnsupportedContainer, d.WavAudioFormat)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	samples := intToFloat(buf, int(d.BitDepth))
	return audio.Deinterleave(samples, int(d.NumChans), int(d.SampleRate))
}

// intToFloat scales integer PCM into [-1, 1). 8-bit WAV is unsigned.
func intToFloat(buf *goaudio.IntBuffer, bitDepth int) []float32 {
	out := make([]float32, len(buf.Data))
	if bitDepth == 8 {
		for i, v := range buf.Data {
			out[i] = float32(v-128) / 128
		}
		return out
	}
	scale := float32(int64(1) << (bitDepth - 1))
	for i, v := range buf.Data {
		out[i] = float32(v) / scale
	}
	return out
}

// decodeMP3 reads an MP3 stream. go-mp3 always yields 16-bit stereo, so
// a stream whose two channels are identical is reported as mono.
func decodeMP3(r io.Reader) (*audio.Waveform, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	frames := len(pcm) / 4
	left := make([]float32, frames)
	right := make([]float32, frames)
	mono := true
	for i := range frames {
		lv := int16(uint16(pcm[i*4]) | uint16(pcm[i*4+1])<<8)
		rv := int16(uint16(pcm[i*4+2]) | uint16(pcm[i*4+3])<<8)
		if lv != rv {
			mono = false
		}
		left[i] = float32(lv) / 32768
		right[i] = float32(rv) / 32768
	}
	if mono {
		return audio.NewMono(left, d.SampleRate()), nil
	}
	return &audio.Waveform{Channels: [][]float32{left, right}, SampleRate: d.SampleRate()}, nil
}

func decodeFLAC(r io.Reader) (*audio.Waveform, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("flac: %w", err)
	}
	defer stream.Close()

	nch := int(stream.Info.NChannels)
	if nch == 0 {
		return nil, errors.New("flac: no channels")
	}
	scale := float32(int64(1) << (stream.Info.BitsPerSample - 1))
	chans := make([][]float32, nch)
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("flac: %w", err)
		}
		for c := range nch {
			for _, s := range frame.Subframes[c].Samples {
				chans[c] = append(chans[c], float32(s)/scale)
			}
		}
	}
	return &audio.Waveform{Channels: chans, SampleRate: int(stream.Info.SampleRate)}, nil
}

// oggHeadLen covers the first Ogg page header, its segment table for a
// single-packet page and the codec identification magic.
const oggHeadLen = 64

// decodeOgg decodes Ogg Vorbis. head is the start of the file and is used
// to reject Ogg Opus, which has no pure-Go decoder here.
func decodeOgg(head []byte, r io.Reader) (*audio.Waveform, error) {
	if bytes.Contains(head, []byte("OpusHead")) {
		return nil, fmt.Errorf("%w: ogg opus", ErrUnsupportedContainer)
	}
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ogg vorbis: %w", err)
	}
	return audio.Deinterleave(samples, format.Channels, format.SampleRate)
}
