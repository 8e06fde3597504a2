// Package tts defines the speech synthesis capability consumed by the
// synthesis stage.
package tts

import (
	"context"
)

// SpeechGenerator renders translated text as audio. accent is a BCP-47
// locale tag selecting a voice profile consistent with the target language;
// rate scales playback speed in [0.5, 2.0] without altering pitch. The
// returned bytes are a WAV container with mono 16-bit PCM.
type SpeechGenerator interface {
	Synthesize(ctx context.Context, text, accent string, rate float64) ([]byte, error)
}
