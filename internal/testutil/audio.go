package testutil

import (
	"bytes"
	"encoding/binary"
	"math"
)

// PCMWAV builds a 16-bit stereo PCM WAV file of frames frames carrying a
// 440 Hz tone.
func PCMWAV(sampleRate, frames int) []byte {
	const channels, bits = 2, 16
	blockAlign := channels * bits / 8
	dataLen := frames * blockAlign

	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+dataLen))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(sampleRate*blockAlign))
	_ = binary.Write(&b, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&b, binary.LittleEndian, uint16(bits))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(dataLen))
	for i := 0; i < frames; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		_ = binary.Write(&b, binary.LittleEndian, v)
		_ = binary.Write(&b, binary.LittleEndian, v)
	}
	return b.Bytes()
}

// ID3Frame is one ID3v2.3 frame body.
type ID3Frame struct {
	ID   string
	Body []byte
}

// TextFrame returns an ISO-8859-1 text frame such as TIT2 or TLEN.
func TextFrame(id, text string) ID3Frame {
	return ID3Frame{ID: id, Body: append([]byte{0}, text...)}
}

// PictureFrame returns an APIC frame. picType follows the ID3 table
// (3 = front cover, 4 = back cover, 0 = other).
func PictureFrame(mimeType string, picType byte, description string, data []byte) ID3Frame {
	var b bytes.Buffer
	b.WriteByte(0)
	b.WriteString(mimeType)
	b.WriteByte(0)
	b.WriteByte(picType)
	b.WriteString(description)
	b.WriteByte(0)
	b.Write(data)
	return ID3Frame{ID: "APIC", Body: b.Bytes()}
}

// ID3v23 builds an ID3v2.3 tag followed by payload.
func ID3v23(payload []byte, frames ...ID3Frame) []byte {
	var body bytes.Buffer
	for _, f := range frames {
		body.WriteString(f.ID)
		_ = binary.Write(&body, binary.BigEndian, uint32(len(f.Body)))
		body.Write([]byte{0, 0})
		body.Write(f.Body)
	}

	size := body.Len()
	var b bytes.Buffer
	b.WriteString("ID3")
	b.Write([]byte{3, 0, 0})
	b.Write([]byte{
		byte(size >> 21 & 0x7f),
		byte(size >> 14 & 0x7f),
		byte(size >> 7 & 0x7f),
		byte(size & 0x7f),
	})
	b.Write(body.Bytes())
	b.Write(payload)
	return b.Bytes()
}
