package sound

import (
	"encoding/binary"
	"math"
	"time"
)

// Buffer holds mono 16-bit little-endian PCM audio.
type Buffer struct {
	SampleRate int
	Data       []byte
}

func (b Buffer) SampleCount() int {
	return len(b.Data) / 2
}

func (b Buffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.SampleCount()) * time.Second / time.Duration(b.SampleRate)
}

// RMS computes the root mean square amplitude of the buffer, in raw
// int16 sample units.
func (b Buffer) RMS() float64 {
	n := b.SampleCount()
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(b.Data); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(b.Data[i:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// FromSamples packs int16 samples into a Buffer.
func FromSamples(samples []int16, sampleRate int) Buffer {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return Buffer{SampleRate: sampleRate, Data: data}
}

// EncodeWAV wraps mono 16-bit PCM in a RIFF/WAVE container.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	const (
		numChannels   = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	out := make([]byte, 0, 44+len(pcm))
	out = append(out, []byte("RIFF")...)
	out = binary.LittleEndian.AppendUint32(out, uint32(36+len(pcm)))
	out = append(out, []byte("WAVE")...)
	out = append(out, []byte("fmt ")...)
	out = binary.LittleEndian.AppendUint32(out, 16)
	out = binary.LittleEndian.AppendUint16(out, 1) // PCM
	out = binary.LittleEndian.AppendUint16(out, numChannels)
	out = binary.LittleEndian.AppendUint32(out, uint32(sampleRate))
	out = binary.LittleEndian.AppendUint32(out, uint32(byteRate))
	out = binary.LittleEndian.AppendUint16(out, uint16(blockAlign))
	out = binary.LittleEndian.AppendUint16(out, bitsPerSample)
	out = append(out, []byte("data")...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(pcm)))
	out = append(out, pcm...)
	return out
}
