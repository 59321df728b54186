package audio

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// ReadPCM16Mono decodes a WAV file into raw little-endian 16 bit PCM.
// Only the first channel is kept. Returns the data and its sample rate.
func ReadPCM16Mono(path string) ([]byte, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav '%s': %v", path, d.Err())
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("read pcm: %w", err)
	}
	ch := buf.Format.NumChannels
	if ch < 1 {
		ch = 1
	}
	shift := buf.SourceBitDepth - 16
	res := make([]byte, 0, len(buf.Data)/ch*2)
	for i := 0; i < len(buf.Data); i += ch {
		v := buf.Data[i]
		switch {
		case shift > 0:
			v >>= shift
		case shift < 0:
			v = (v - 128) << 8 // 8 bit wav is unsigned
		}
		res = binary.LittleEndian.AppendUint16(res, uint16(int16(v)))
	}
	return res, buf.Format.SampleRate, nil
}
