package translate

import (
	"context"
	"fmt"

	"cloud.google.com/go/translate"
	"github.com/charmbracelet/log"
	"golang.org/x/text/language"
)

// GoogleTranslator translates text with the Google Cloud Translation API.
type GoogleTranslator struct {
	client *translate.Client
	log    *log.Logger
}

func NewGoogleTranslator(ctx context.Context, logger *log.Logger) (*GoogleTranslator, error) {
	client, err := translate.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create translate client: %w", err)
	}
	return &GoogleTranslator{client: client, log: logger}, nil
}

func (g *GoogleTranslator) Translate(
	ctx context.Context,
	text, sourceLang, targetLang string,
) (string, error) {
	source, err := language.Parse(sourceLang)
	if err != nil {
		return "", fmt.Errorf("parse source language %q: %w", sourceLang, err)
	}
	target, err := language.Parse(targetLang)
	if err != nil {
		return "", fmt.Errorf("parse target language %q: %w", targetLang, err)
	}

	results, err := g.client.Translate(ctx, []string{text}, target, &translate.Options{
		Source: source,
		Format: translate.Text,
	})
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("translate: empty response")
	}

	g.log.Debug("translate", "src", sourceLang, "tgt", targetLang, "txt", results[0].Text)
	return results[0].Text, nil
}

func (g *GoogleTranslator) Close() error {
	return g.client.Close()
}
