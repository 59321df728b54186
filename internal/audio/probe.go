package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	goflac "github.com/go-flac/go-flac"
	"github.com/tcolgate/mp3"
)

// Format of an audio container, by file extension
type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatFLAC Format = "flac"
)

// ErrUnsupported is returned for files Probe does not know how to read
var ErrUnsupported = errors.New("unsupported audio format")

// Info describes an audio file
type Info struct {
	Format     Format
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// FormatOf detects format by extension
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "wav", "wave":
		return FormatWAV, nil
	case "mp3":
		return FormatMP3, nil
	case "flac":
		return FormatFLAC, nil
	}
	return "", ErrUnsupported
}

// Probe reads the headers of an audio file
func Probe(path string) (*Info, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatWAV:
		return probeWAV(path)
	case FormatMP3:
		return probeMP3(path)
	default:
		return probeFLAC(path)
	}
}

func probeWAV(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("invalid wav '%s': %v", path, d.Err())
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("wav pcm: %w", err)
	}
	res := &Info{Format: FormatWAV, SampleRate: int(d.SampleRate), Channels: int(d.NumChans), BitDepth: int(d.BitDepth)}
	if frame := res.Channels * ((res.BitDepth + 7) / 8); frame > 0 && res.SampleRate > 0 {
		res.Duration = time.Duration(d.PCMSize/frame) * time.Second / time.Duration(res.SampleRate)
	}
	return res, nil
}

func probeMP3(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := mp3.NewDecoder(f)
	var (
		frame   mp3.Frame
		skipped int
		frames  int
	)
	res := &Info{Format: FormatMP3}
	for {
		if err := d.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("mp3 frame %d: %w", frames, err)
		}
		if frames == 0 {
			h := frame.Header()
			res.SampleRate = int(h.SampleRate())
			res.Channels = 2
			if h.ChannelMode() == mp3.SingleChannel {
				res.Channels = 1
			}
		}
		res.Duration += frame.Duration()
		frames++
	}
	if frames == 0 {
		return nil, fmt.Errorf("no mp3 frames in '%s'", path)
	}
	return res, nil
}

func probeFLAC(path string) (*Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	f, err := goflac.ParseMetadata(file)
	if err != nil {
		return nil, fmt.Errorf("parse flac: %w", err)
	}
	si, err := f.GetStreamInfo()
	if err != nil {
		return nil, fmt.Errorf("flac stream info: %w", err)
	}
	res := &Info{Format: FormatFLAC, SampleRate: si.SampleRate, Channels: si.ChannelCount, BitDepth: si.BitDepth}
	if si.SampleRate > 0 {
		res.Duration = time.Duration(si.SampleCount) * time.Second / time.Duration(si.SampleRate)
	}
	return res, nil
}
