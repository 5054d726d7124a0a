package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

const (
	riffID = "RIFF"
	waveID = "WAVE"
	fmtID  = "fmt "
	dataID = "data"

	formatPCM        = 0x0001
	formatExtensible = 0xFFFE

	// Streaming writers emit this data size when the length was unknown.
	streamingDataSize = 0xFFFFFFFF

	headerSize = 44
)

// Header summarizes a WAV container without copying its sample data.
type Header struct {
	Format
	DataOffset int
	DataSize   int
}

// Duration estimates playback length as data size divided by byte rate.
func (h Header) Duration() time.Duration {
	rate := h.ByteRate()
	if rate <= 0 {
		return 0
	}
	return time.Duration(float64(h.DataSize) / float64(rate) * float64(time.Second))
}

// ProbeWAV parses the container structure and reports format and data extent.
func ProbeWAV(data []byte) (Header, error) {
	if len(data) < 12 {
		return Header{}, decodeError("container too short (%d bytes)", len(data))
	}
	if string(data[0:4]) != riffID || string(data[8:12]) != waveID {
		return Header{}, decodeError("not a RIFF/WAVE container")
	}

	var (
		header  Header
		haveFmt bool
		haveDat bool
	)
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		body := offset + 8
		remaining := len(data) - body

		switch id {
		case fmtID:
			if int64(size) > int64(remaining) {
				return Header{}, decodeError("fmt chunk truncated")
			}
			format, err := parseFormatChunk(data[body : body+int(size)])
			if err != nil {
				return Header{}, err
			}
			header.Format = format
			haveFmt = true
		case dataID:
			length := int64(size)
			if size == streamingDataSize || length > int64(remaining) {
				length = int64(remaining)
			}
			header.DataOffset = body
			header.DataSize = int(length)
			haveDat = true
		}
		if haveFmt && haveDat {
			break
		}

		next := int64(body) + int64(size)
		if size%2 == 1 {
			next++
		}
		if next > int64(len(data)) {
			break
		}
		offset = int(next)
	}

	if !haveFmt {
		return Header{}, decodeError("missing fmt chunk")
	}
	if !haveDat {
		return Header{}, decodeError("missing data chunk")
	}
	if align := header.BlockAlign(); align > 0 {
		header.DataSize -= header.DataSize % align
	}
	return header, nil
}

func parseFormatChunk(chunk []byte) (Format, error) {
	if len(chunk) < 16 {
		return Format{}, decodeError("fmt chunk too short (%d bytes)", len(chunk))
	}
	tag := binary.LittleEndian.Uint16(chunk[0:2])
	switch tag {
	case formatPCM:
	case formatExtensible:
		// The sub-format GUID starts at offset 24; its first two bytes carry the
		// underlying format tag.
		if len(chunk) < 26 {
			return Format{}, decodeError("extensible fmt chunk too short")
		}
		if sub := binary.LittleEndian.Uint16(chunk[24:26]); sub != formatPCM {
			return Format{}, decodeError("unsupported extensible sub-format 0x%04x", sub)
		}
	default:
		return Format{}, decodeError("unsupported format tag 0x%04x", tag)
	}

	format := Format{
		Channels:      int(binary.LittleEndian.Uint16(chunk[2:4])),
		SampleRate:    int(binary.LittleEndian.Uint32(chunk[4:8])),
		BitsPerSample: int(binary.LittleEndian.Uint16(chunk[14:16])),
	}
	if err := format.validate(); err != nil {
		return Format{}, decodeError("%v", err)
	}
	return format, nil
}

// DecodeWAV parses a PCM WAV container into a Clip. Unknown chunks are
// skipped and trailing partial frames are dropped.
func DecodeWAV(data []byte) (*Clip, error) {
	header, err := ProbeWAV(data)
	if err != nil {
		return nil, err
	}
	samples := make([]byte, header.DataSize)
	copy(samples, data[header.DataOffset:header.DataOffset+header.DataSize])
	return &Clip{Format: header.Format, Samples: samples}, nil
}

// EncodeWAV serializes clip as a canonical 44-byte-header PCM container.
func EncodeWAV(clip *Clip) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteWAV(&buf, clip); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWAV streams clip to w as a PCM WAV container.
func WriteWAV(w io.Writer, clip *Clip) error {
	if clip == nil {
		return formatError("encode", "nil clip")
	}
	if err := clip.Format.validate(); err != nil {
		return formatError("encode", "%v", err)
	}
	dataLen := len(clip.Samples)
	if uint64(dataLen)+headerSize > streamingDataSize {
		return formatError("encode", "data too large for container (%d bytes)", dataLen)
	}
	pad := dataLen % 2

	header := make([]byte, headerSize)
	copy(header[0:4], riffID)
	binary.LittleEndian.PutUint32(header[4:8], uint32(headerSize-8+dataLen+pad))
	copy(header[8:12], waveID)
	copy(header[12:16], fmtID)
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], formatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(clip.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(clip.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(clip.ByteRate()))
	binary.LittleEndian.PutUint16(header[32:34], uint16(clip.BlockAlign()))
	binary.LittleEndian.PutUint16(header[34:36], uint16(clip.BitsPerSample))
	copy(header[36:40], dataID)
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	if _, err := w.Write(clip.Samples); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	if pad == 1 {
		if _, err := w.Write([]byte{0}); err != nil {
			return fmt.Errorf("write wav padding: %w", err)
		}
	}
	return nil
}
