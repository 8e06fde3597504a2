package sound

import (
	"time"
)

// SegmenterConfig tunes the energy-threshold voice activity detector.
type SegmenterConfig struct {
	SampleRate int

	// StartMargin is the factor by which frame energy must exceed the
	// rolling noise floor before a frame counts as voiced.
	StartMargin float64

	// MinSpeech is how much consecutive voiced audio is required before a
	// segment opens. Shorter bursts are treated as noise.
	MinSpeech time.Duration

	// TrailingSilence closes the open segment once this much unvoiced
	// audio has accumulated after the last voiced frame.
	TrailingSilence time.Duration

	// MaxUtterance force-closes a segment that keeps running, so a noisy
	// room cannot hold the pipeline open forever.
	MaxUtterance time.Duration

	// PreRoll is how much audio preceding the trigger frame is kept, so
	// soft utterance onsets are not clipped.
	PreRoll time.Duration

	// FloorAlpha is the exponential moving average coefficient for the
	// noise floor estimate. The floor only adapts on unvoiced frames.
	FloorAlpha float64

	// InitialFloor seeds the noise floor before any audio is seen, in raw
	// int16 RMS units.
	InitialFloor float64
}

// DefaultSegmenterConfig returns tuning that works for typical close-mic
// speech at 16 kHz.
func DefaultSegmenterConfig(sampleRate int) SegmenterConfig {
	return SegmenterConfig{
		SampleRate:      sampleRate,
		StartMargin:     3.0,
		MinSpeech:       200 * time.Millisecond,
		TrailingSilence: 700 * time.Millisecond,
		MaxUtterance:    15 * time.Second,
		PreRoll:         240 * time.Millisecond,
		FloorAlpha:      0.05,
		InitialFloor:    150,
	}
}

// Segmenter turns a continuous stream of PCM frames into discrete speech
// segments using a dynamic energy threshold. The noise floor recalibrates
// continuously while nobody is speaking, so slow changes in ambient noise do
// not trigger false segments.
type Segmenter struct {
	cfg SegmenterConfig

	floor   float64
	open    bool
	voiced  time.Duration
	silence time.Duration

	preRoll [][]byte
	preDur  time.Duration
	segment []byte
	segDur  time.Duration
}

func NewSegmenter(cfg SegmenterConfig) *Segmenter {
	if cfg.FloorAlpha <= 0 || cfg.FloorAlpha > 1 {
		cfg.FloorAlpha = 0.05
	}
	return &Segmenter{cfg: cfg, floor: cfg.InitialFloor}
}

// Feed consumes one frame of mono 16-bit PCM and returns a completed
// utterance buffer when end-of-speech is detected. ok is false while a
// segment is still forming or no speech is present.
func (s *Segmenter) Feed(frame []byte) (utt Buffer, ok bool) {
	if len(frame) == 0 {
		return Buffer{}, false
	}

	dur := frameDuration(len(frame), s.cfg.SampleRate)
	rms := Buffer{SampleRate: s.cfg.SampleRate, Data: frame}.RMS()
	voiced := rms > s.floor*s.cfg.StartMargin

	if !voiced {
		// Only ambient frames move the floor, so sustained speech does
		// not raise the threshold under the speaker.
		s.floor = s.cfg.FloorAlpha*rms + (1-s.cfg.FloorAlpha)*s.floor
	}

	if !s.open {
		s.pushPreRoll(frame, dur)
		if voiced {
			s.voiced += dur
			if s.voiced >= s.cfg.MinSpeech {
				s.openSegment()
			}
		} else {
			s.voiced = 0
		}
		return Buffer{}, false
	}

	s.segment = append(s.segment, frame...)
	s.segDur += dur

	if voiced {
		s.silence = 0
	} else {
		s.silence += dur
	}

	if s.silence >= s.cfg.TrailingSilence || s.segDur >= s.cfg.MaxUtterance {
		return s.closeSegment(), true
	}
	return Buffer{}, false
}

// Flush closes any segment still open, for use when capture stops
// mid-utterance.
func (s *Segmenter) Flush() (Buffer, bool) {
	if !s.open || len(s.segment) == 0 {
		s.reset()
		return Buffer{}, false
	}
	return s.closeSegment(), true
}

// NoiseFloor reports the current ambient estimate, in raw int16 RMS units.
func (s *Segmenter) NoiseFloor() float64 {
	return s.floor
}

func (s *Segmenter) openSegment() {
	s.open = true
	s.silence = 0
	s.segDur = 0
	s.segment = s.segment[:0]
	for _, f := range s.preRoll {
		s.segment = append(s.segment, f...)
		s.segDur += frameDuration(len(f), s.cfg.SampleRate)
	}
	s.preRoll = s.preRoll[:0]
	s.preDur = 0
}

func (s *Segmenter) closeSegment() Buffer {
	data := make([]byte, len(s.segment))
	copy(data, s.segment)
	s.reset()
	return Buffer{SampleRate: s.cfg.SampleRate, Data: data}
}

func (s *Segmenter) reset() {
	s.open = false
	s.voiced = 0
	s.silence = 0
	s.segment = s.segment[:0]
	s.segDur = 0
	s.preRoll = s.preRoll[:0]
	s.preDur = 0
}

func (s *Segmenter) pushPreRoll(frame []byte, dur time.Duration) {
	f := make([]byte, len(frame))
	copy(f, frame)
	s.preRoll = append(s.preRoll, f)
	s.preDur += dur
	for len(s.preRoll) > 0 && s.preDur > s.cfg.PreRoll {
		drop := s.preRoll[0]
		s.preRoll = s.preRoll[1:]
		s.preDur -= frameDuration(len(drop), s.cfg.SampleRate)
	}
}

func frameDuration(byteLen, sampleRate int) time.Duration {
	if sampleRate == 0 {
		return 0
	}
	return time.Duration(byteLen/2) * time.Second / time.Duration(sampleRate)
}
