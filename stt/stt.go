// Package stt defines the speech-to-text capability consumed by the
// recognition stage, with a Google Cloud implementation and a canned
// implementation for offline runs and tests.
package stt

import (
	"context"

	"parley/sound"
)

// Transcriber converts one captured utterance to raw text. locale is a
// BCP-47 tag such as "en-US" selecting the recognition model for the
// speaker's language and accent.
type Transcriber interface {
	Transcribe(ctx context.Context, utterance sound.Buffer, locale string) (string, error)
}
