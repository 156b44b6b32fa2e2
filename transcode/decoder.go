package transcode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/magicat777/vocal-prime/logging"
)

// AudioData represents decoded audio ready for the engine: interleaved
// float32 samples in [-1, 1]
type AudioData struct {
	PCM        []float32     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
	Format     string        `json:"format"`
}

// Frames returns the number of sample frames
func (a *AudioData) Frames() int {
	if a.Channels == 0 {
		return 0
	}
	return len(a.PCM) / a.Channels
}

// wavFormat codes from the RIFF specification
const (
	wavFormatPCM       = 1
	wavFormatIEEEFloat = 3
	wavFormatExtension = 0xFFFE
)

// Decoder decodes local audio files into engine-ready sample chunks.
// Only RIFF/WAVE containers with integer PCM or IEEE float payloads are
// handled; compressed formats are out of scope here.
type Decoder struct {
	logger logging.Logger
}

// NewDecoder creates a new decoder
func NewDecoder() *Decoder {
	return &Decoder{
		logger: logging.WithFields(logging.Fields{
			"component": "transcode_decoder",
		}),
	}
}

// DecodeFile decodes a WAV file from disk
func (d *Decoder) DecodeFile(path string) (*AudioData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	data, err := d.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	d.logger.Debug("decoded audio file", logging.Fields{
		"path":        path,
		"sample_rate": data.SampleRate,
		"channels":    data.Channels,
		"frames":      data.Frames(),
	})

	return data, nil
}

// Decode decodes a RIFF/WAVE stream
func (d *Decoder) Decode(r io.Reader) (*AudioData, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var (
		format        uint16
		channels      uint16
		sampleRate    uint32
		bitsPerSample uint16
		haveFmt       bool
	)

	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("no data chunk found")
			}
			return nil, fmt.Errorf("failed to read chunk header: %w", err)
		}

		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		switch chunkID {
		case "fmt ":
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			if chunkSize < 16 {
				return nil, fmt.Errorf("fmt chunk too short: %d bytes", chunkSize)
			}
			format = binary.LittleEndian.Uint16(body[0:2])
			channels = binary.LittleEndian.Uint16(body[2:4])
			sampleRate = binary.LittleEndian.Uint32(body[4:8])
			bitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			// WAVE_FORMAT_EXTENSIBLE carries the real format in the
			// extension's sub-format GUID; the first two bytes are the code
			if format == wavFormatExtension && chunkSize >= 26 {
				format = binary.LittleEndian.Uint16(body[24:26])
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("data chunk before fmt chunk")
			}
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("failed to read data chunk: %w", err)
			}
			return buildAudioData(body, format, int(channels), int(sampleRate), int(bitsPerSample))

		default:
			// Skip unknown chunks; sizes are padded to even byte counts
			skip := int64(chunkSize)
			if chunkSize%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, fmt.Errorf("failed to skip %s chunk: %w", chunkID, err)
			}
		}
	}
}

// DecodeRawFloat32 interprets raw little-endian float32 bytes as
// interleaved samples, the representation separated-vocal chunks arrive in
// after transport decoding
func DecodeRawFloat32(body []byte, channels, sampleRate int) (*AudioData, error) {
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid raw format: channels=%d sample_rate=%d", channels, sampleRate)
	}
	if len(body)%4 != 0 {
		return nil, fmt.Errorf("raw float32 payload length %d not a multiple of 4", len(body))
	}

	pcm := make([]float32, len(body)/4)
	for i := range pcm {
		pcm[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[4*i:]))
	}

	return &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   channels,
		Duration:   frameDuration(len(pcm)/channels, sampleRate),
		Format:     "float32",
	}, nil
}

func buildAudioData(body []byte, format uint16, channels, sampleRate, bitsPerSample int) (*AudioData, error) {
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid WAV format: channels=%d sample_rate=%d", channels, sampleRate)
	}

	var (
		pcm        []float32
		formatName string
	)

	switch {
	case format == wavFormatPCM && bitsPerSample == 16:
		formatName = "pcm16"
		pcm = make([]float32, len(body)/2)
		for i := range pcm {
			v := int16(binary.LittleEndian.Uint16(body[2*i:]))
			pcm[i] = float32(v) / 32768.0
		}

	case format == wavFormatPCM && bitsPerSample == 32:
		formatName = "pcm32"
		pcm = make([]float32, len(body)/4)
		for i := range pcm {
			v := int32(binary.LittleEndian.Uint32(body[4*i:]))
			pcm[i] = float32(float64(v) / 2147483648.0)
		}

	case format == wavFormatIEEEFloat && bitsPerSample == 32:
		formatName = "float32"
		pcm = make([]float32, len(body)/4)
		for i := range pcm {
			pcm[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[4*i:]))
		}

	default:
		return nil, fmt.Errorf("unsupported WAV encoding: format=%d bits=%d", format, bitsPerSample)
	}

	return &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   channels,
		Duration:   frameDuration(len(pcm)/channels, sampleRate),
		Format:     formatName,
	}, nil
}

func frameDuration(frames, sampleRate int) time.Duration {
	return time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))
}

// ToStereo returns the samples as interleaved stereo, duplicating mono
// input and downmixing higher channel counts by dropping extra channels
func (a *AudioData) ToStereo() []float32 {
	switch a.Channels {
	case 2:
		out := make([]float32, len(a.PCM))
		copy(out, a.PCM)
		return out
	case 1:
		out := make([]float32, len(a.PCM)*2)
		for i, s := range a.PCM {
			out[2*i] = s
			out[2*i+1] = s
		}
		return out
	default:
		frames := a.Frames()
		out := make([]float32, frames*2)
		for i := range frames {
			out[2*i] = a.PCM[i*a.Channels]
			out[2*i+1] = a.PCM[i*a.Channels+1]
		}
		return out
	}
}
