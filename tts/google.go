package tts

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/charmbracelet/log"
)

const synthesisSampleRate = 24000

// GoogleSpeechGenerator synthesizes speech with the Google Cloud
// Text-to-Speech API. LINEAR16 output arrives as a WAV container, which is
// what the playback stage decodes.
type GoogleSpeechGenerator struct {
	client *texttospeech.Client
	log    *log.Logger
}

func NewGoogleSpeechGenerator(ctx context.Context, logger *log.Logger) (*GoogleSpeechGenerator, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create texttospeech client: %w", err)
	}
	return &GoogleSpeechGenerator{client: client, log: logger}, nil
}

func (g *GoogleSpeechGenerator) Synthesize(
	ctx context.Context,
	text, accent string,
	rate float64,
) ([]byte, error) {
	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: accent,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: synthesisSampleRate,
			SpeakingRate:    rate,
		},
	}

	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}

	g.log.Debug("talk", "accent", accent, "rate", rate, "bytes", len(resp.AudioContent))
	return resp.AudioContent, nil
}

func (g *GoogleSpeechGenerator) Close() error {
	return g.client.Close()
}
