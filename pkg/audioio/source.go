package audioio

import (
	"context"
	"time"
)

// AudioChunk represents a chunk of audio data.
type AudioChunk struct {
	// Samples contains PCM16 audio samples (little-endian).
	Samples []int16

	// SampleRate is the sample rate of this chunk.
	SampleRate int

	// Channels is the number of channels in this chunk.
	Channels int
}

// Bytes returns the raw bytes of the audio chunk.
func (c *AudioChunk) Bytes() []byte {
	buf := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

// FromBytes populates the chunk from raw PCM16 bytes.
// A trailing odd byte is dropped.
func (c *AudioChunk) FromBytes(data []byte, sampleRate, channels int) {
	c.SampleRate = sampleRate
	c.Channels = channels
	c.Samples = make([]int16, len(data)/2)
	for i := range c.Samples {
		c.Samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
}

// Duration returns the duration of this audio chunk.
func (c *AudioChunk) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	secs := float64(len(c.Samples)) / float64(c.SampleRate*c.Channels)
	return time.Duration(secs * float64(time.Second))
}

// Fit pads the chunk with silence or truncates it to exactly n samples.
func (c *AudioChunk) Fit(n int) {
	switch {
	case len(c.Samples) > n:
		c.Samples = c.Samples[:n]
	case len(c.Samples) < n:
		c.Samples = append(c.Samples, make([]int16, n-len(c.Samples))...)
	}
}

// Recorder captures a fixed amount of audio from an input device.
type Recorder interface {
	// Record blocks for roughly duration and returns mono PCM16 audio
	// holding exactly SampleCount(duration, sampleRate) samples.
	Record(ctx context.Context, duration time.Duration, sampleRate int) (*AudioChunk, error)

	// Name returns the backend name (e.g., "arecord", "rec", "mock").
	Name() string
}
