// Package station models the two speaker stations and the state machine
// that gates which one is listening.
package station

import (
	"errors"
	"fmt"
)

// ID names one of the two stations.
type ID string

const (
	A ID = "A"
	B ID = "B"
)

func ParseID(s string) (ID, error) {
	switch ID(s) {
	case A:
		return A, nil
	case B:
		return B, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStation, s)
}

// State is one step of the per-station lifecycle:
// Idle → Listening → Processing → Speaking → Idle.
type State string

const (
	Idle       State = "idle"
	Listening  State = "listening"
	Processing State = "processing"
	Speaking   State = "speaking"
)

var (
	ErrUnknownStation    = errors.New("unknown station")
	ErrStationBusy       = errors.New("station busy with a prior segment")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Config is a station's session parameters. Mutation is only permitted
// while the station is idle; the controller enforces this.
type Config struct {
	Station        ID      `json:"station"`
	SourceLanguage string  `json:"sourceLanguage"`
	TargetLanguage string  `json:"targetLanguage"`
	Accent         string  `json:"accent"`
	SpeechRate     float64 `json:"speechRate"`
}

func (c Config) Validate() error {
	if c.Station != A && c.Station != B {
		return fmt.Errorf("%w: %q", ErrUnknownStation, c.Station)
	}
	if c.SourceLanguage == "" {
		return errors.New("source language required")
	}
	if c.TargetLanguage == "" {
		return errors.New("target language required")
	}
	if c.SpeechRate < 0.5 || c.SpeechRate > 2.0 {
		return fmt.Errorf("speech rate %.2f outside [0.5, 2.0]", c.SpeechRate)
	}
	if c.Accent != "" && !ValidAccent(c.Accent) {
		return fmt.Errorf("unknown accent %q", c.Accent)
	}
	return nil
}

// RecognitionLocale is the BCP-47 tag used for speech recognition of this
// station's source language.
func (c Config) RecognitionLocale() string {
	if c.Accent != "" && AccentLanguage(c.Accent) == c.SourceLanguage {
		return c.Accent
	}
	return DefaultAccent(c.SourceLanguage)
}

// VoiceAccent is the locale selecting the synthesis voice. The configured
// accent applies only when it belongs to the target language; otherwise the
// target language's default accent is used.
func (c Config) VoiceAccent() string {
	if c.Accent != "" && AccentLanguage(c.Accent) == c.TargetLanguage {
		return c.Accent
	}
	return DefaultAccent(c.TargetLanguage)
}
