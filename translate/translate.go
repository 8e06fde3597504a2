// Package translate defines the text translation capability consumed by the
// translation stage.
package translate

import (
	"context"
)

// Translator converts normalized source-language text to the target
// language. Implementations must not be called with empty input; the stage
// short-circuits empty text before reaching the capability.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}
