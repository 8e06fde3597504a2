package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/charmbracelet/log"

	"parley/sound"
)

// GoogleTranscriber recognizes speech with the Google Cloud Speech API.
// Credentials come from the environment (GOOGLE_APPLICATION_CREDENTIALS).
type GoogleTranscriber struct {
	client *speech.Client
	log    *log.Logger
}

func NewGoogleTranscriber(ctx context.Context, logger *log.Logger) (*GoogleTranscriber, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &GoogleTranscriber{client: client, log: logger}, nil
}

func (g *GoogleTranscriber) Transcribe(
	ctx context.Context,
	utterance sound.Buffer,
	locale string,
) (string, error) {
	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(utterance.SampleRate),
			LanguageCode:    locale,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{
				Content: utterance.Data,
			},
		},
	}

	resp, err := g.client.Recognize(ctx, req)
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		parts = append(parts, result.Alternatives[0].Transcript)
	}
	text := strings.TrimSpace(strings.Join(parts, " "))
	g.log.Debug("hear", "locale", locale, "txt", text)
	return text, nil
}

func (g *GoogleTranscriber) Close() error {
	return g.client.Close()
}
