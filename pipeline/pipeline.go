// Package pipeline drives a captured utterance through recognition,
// normalization, translation, synthesis, and playback, one segment at a time
// per station.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"parley/dict"
	"parley/etc"
	"parley/history"
	"parley/playback"
	"parley/sound"
	"parley/station"
	"parley/stt"
	"parley/translate"
	"parley/tts"
)

// Listener produces segmented utterances until ctx is cancelled. The
// microphone-backed implementation is MicrophoneListener; tests substitute
// their own.
type Listener interface {
	Listen(ctx context.Context) (<-chan sound.Buffer, error)
}

// MicrophoneListener adapts the capture device, giving each listening
// session a fresh segmenter so noise-floor state never leaks across turns.
type MicrophoneListener struct {
	Mic    *sound.Microphone
	Config sound.SegmenterConfig
}

func (m *MicrophoneListener) Listen(ctx context.Context) (<-chan sound.Buffer, error) {
	return m.Mic.Listen(ctx, sound.NewSegmenter(m.Config))
}

// Caption is an intermediate result pushed to the operator display while a
// segment is still in flight.
type Caption struct {
	Station    station.ID `json:"station"`
	Original   string     `json:"original"`
	Translated string     `json:"translated"`
}

// Deps are the capabilities the orchestrator coordinates.
type Deps struct {
	Controller  *station.Controller
	Listener    Listener
	Transcriber stt.Transcriber
	Translator  translate.Translator
	Speech      tts.SpeechGenerator
	Player      *playback.Player
	Dictionary  *dict.Dictionary
	History     *history.Log
	Events      *Events
	Log         *log.Logger
}

// Options tune per-stage deadlines and session behavior.
type Options struct {
	RecognizeTimeout  time.Duration
	TranslateTimeout  time.Duration
	SynthesizeTimeout time.Duration
	RetryBackoff      time.Duration

	// AutoRearm re-activates a station after its segment completes cleanly,
	// for back-and-forth conversation without touching the controls.
	AutoRearm bool

	OnCaption func(Caption)
}

func (o *Options) fill() {
	if o.RecognizeTimeout == 0 {
		o.RecognizeTimeout = 10 * time.Second
	}
	if o.TranslateTimeout == 0 {
		o.TranslateTimeout = 10 * time.Second
	}
	if o.SynthesizeTimeout == 0 {
		o.SynthesizeTimeout = 15 * time.Second
	}
	if o.RetryBackoff == 0 {
		o.RetryBackoff = 250 * time.Millisecond
	}
}

// Orchestrator owns the per-station segment lifecycle. Stage failures are
// recorded as events and end only the affected segment.
type Orchestrator struct {
	deps Deps
	opts Options
	log  *log.Logger

	base     context.Context
	shutdown context.CancelFunc

	mu         sync.Mutex
	listenStop map[station.ID]context.CancelFunc
	segStop    map[station.ID]context.CancelFunc

	wg sync.WaitGroup
}

func New(deps Deps, opts Options) *Orchestrator {
	opts.fill()
	base, shutdown := context.WithCancel(context.Background())
	return &Orchestrator{
		deps:       deps,
		opts:       opts,
		log:        deps.Log,
		base:       base,
		shutdown:   shutdown,
		listenStop: map[station.ID]context.CancelFunc{},
		segStop:    map[station.ID]context.CancelFunc{},
	}
}

// Activate puts the station into Listening and starts consuming utterances.
// Any other listening station is switched off first by the controller.
func (o *Orchestrator) Activate(id station.ID) error {
	// The controller transition and the capture-loop swap must commit
	// together, or concurrent activations can leave the microphone owned
	// by a station the controller reports as idle.
	o.mu.Lock()
	if err := o.deps.Controller.Activate(id); err != nil {
		o.mu.Unlock()
		return err
	}
	// The controller idled whichever station was listening; drop its
	// capture loop too.
	for st, cancel := range o.listenStop {
		cancel()
		delete(o.listenStop, st)
	}
	ctx, cancel := context.WithCancel(o.base)
	o.listenStop[id] = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go o.listenLoop(ctx, id)
	return nil
}

// Deactivate gracefully stops listening. A segment already mid-pipeline is
// left to finish on its own.
func (o *Orchestrator) Deactivate(id station.ID) {
	o.deps.Controller.Deactivate(id)
	o.stopListening(id)
}

// StopAll aborts everything: listening, in-flight segments, and queued
// playback. Used on session termination.
func (o *Orchestrator) StopAll() {
	o.mu.Lock()
	for st, cancel := range o.listenStop {
		cancel()
		delete(o.listenStop, st)
	}
	for st, cancel := range o.segStop {
		cancel()
		delete(o.segStop, st)
	}
	o.mu.Unlock()

	o.deps.Player.Stop()
	for _, st := range []station.ID{station.A, station.B} {
		o.deps.Controller.Deactivate(st)
	}
	o.log.Info("stopped all stations")
}

// ResetSession clears the conversation record. Station state and
// configuration are untouched.
func (o *Orchestrator) ResetSession() {
	o.deps.History.Reset()
	o.log.Info("session history cleared")
}

// Close shuts the orchestrator down and waits for in-flight work to unwind.
func (o *Orchestrator) Close() {
	o.StopAll()
	o.shutdown()
	o.wg.Wait()
}

func (o *Orchestrator) stopListening(id station.ID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cancel, ok := o.listenStop[id]; ok {
		cancel()
		delete(o.listenStop, id)
	}
}

func (o *Orchestrator) listenLoop(ctx context.Context, id station.ID) {
	defer o.wg.Done()

	utterances, err := o.deps.Listener.Listen(ctx)
	if err != nil {
		o.log.Error("hear", "station", id, "error", err)
		o.deps.Events.Record(CaptureUnavailable, id, err.Error())
		o.deps.Controller.Deactivate(id)
		return
	}

	for utt := range utterances {
		// A station that stopped listening between capture and delivery
		// drops the utterance.
		if err := o.deps.Controller.BeginProcessing(id); err != nil {
			continue
		}
		// Release the device for the duration of the segment.
		o.stopListening(id)
		o.processSegment(id, utt)

		if o.opts.AutoRearm && o.base.Err() == nil {
			// The operator may have switched stations while this segment
			// was mid-pipeline; rearming would steal the microphone back.
			if _, listening := o.deps.Controller.Active(); listening {
				o.log.Debug("rearm yielded", "station", id)
			} else if err := o.Activate(id); err != nil {
				o.log.Warn("rearm refused", "station", id, "error", err)
			}
		}
		return
	}
}

func (o *Orchestrator) processSegment(id station.ID, utt sound.Buffer) {
	cfg := o.deps.Controller.Config(id)

	ctx, cancel := context.WithCancel(o.base)
	o.mu.Lock()
	o.segStop[id] = cancel
	o.mu.Unlock()
	defer func() {
		cancel()
		o.mu.Lock()
		delete(o.segStop, id)
		o.mu.Unlock()
		o.deps.Controller.Finish(id)
		// The entry is committed (or the segment failed); retire the caption.
		o.caption(Caption{Station: id})
	}()

	start := time.Now()

	text, err := o.recognize(ctx, cfg, utt)
	if err != nil {
		o.log.Error("hear", "station", id, "error", err)
		o.deps.Events.Record(RecognitionFailed, id, err.Error())
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		o.log.Debug("hear", "station", id, "text", "")
		return
	}
	text = o.deps.Dictionary.Apply(text)
	o.log.Info("hear", "station", id, "text", text)
	o.caption(Caption{Station: id, Original: text})

	translated, status := o.translateText(ctx, id, cfg, text)

	o.deps.History.Append(history.Entry{
		ID:         etc.Gensym(),
		Timestamp:  time.Now(),
		Station:    id,
		Original:   text,
		Translated: translated,
		Status:     status,
	})
	if status != history.StatusOK {
		return
	}
	o.caption(Caption{Station: id, Original: text, Translated: translated})

	clip, err := o.synthesize(ctx, cfg, translated)
	if err != nil {
		o.log.Error("talk", "station", id, "error", err)
		o.deps.Events.Record(SynthesisFailed, id, err.Error())
		return
	}

	if err := o.deps.Controller.BeginSpeaking(id); err != nil {
		return
	}
	o.speak(ctx, id, clip)
	o.log.Debug("segment", "station", id, "took", time.Since(start))
}

func (o *Orchestrator) translateText(
	ctx context.Context,
	id station.ID,
	cfg station.Config,
	text string,
) (string, history.Status) {
	// Same-language stations pass the normalized text straight through.
	if cfg.SourceLanguage == cfg.TargetLanguage {
		return text, history.StatusOK
	}

	translated, err := withRetry(ctx, o.opts.RetryBackoff, func(ctx context.Context) (string, error) {
		tctx, cancel := context.WithTimeout(ctx, o.opts.TranslateTimeout)
		defer cancel()
		return o.deps.Translator.Translate(tctx, text, cfg.SourceLanguage, cfg.TargetLanguage)
	})
	if err != nil {
		o.log.Error("xlat", "station", id, "error", err)
		o.deps.Events.Record(TranslationFailed, id, err.Error())
		return "", history.StatusTranslationError
	}
	o.log.Info("xlat", "station", id, "text", translated)
	return translated, history.StatusOK
}

func (o *Orchestrator) recognize(
	ctx context.Context,
	cfg station.Config,
	utt sound.Buffer,
) (string, error) {
	return withRetry(ctx, o.opts.RetryBackoff, func(ctx context.Context) (string, error) {
		rctx, cancel := context.WithTimeout(ctx, o.opts.RecognizeTimeout)
		defer cancel()
		return o.deps.Transcriber.Transcribe(rctx, utt, cfg.RecognitionLocale())
	})
}

func (o *Orchestrator) synthesize(
	ctx context.Context,
	cfg station.Config,
	text string,
) ([]byte, error) {
	return withRetry(ctx, o.opts.RetryBackoff, func(ctx context.Context) ([]byte, error) {
		sctx, cancel := context.WithTimeout(ctx, o.opts.SynthesizeTimeout)
		defer cancel()
		return o.deps.Speech.Synthesize(sctx, text, cfg.VoiceAccent(), cfg.SpeechRate)
	})
}

func (o *Orchestrator) speak(ctx context.Context, id station.ID, clip []byte) {
	playing, err := o.deps.Player.Enqueue(clip)
	if err != nil {
		o.deps.Events.Record(PlaybackFailed, id, err.Error())
		return
	}
	select {
	case <-playing.Done():
		err := playing.Err()
		switch {
		case err == nil:
		case errors.Is(err, playback.ErrPlaybackStopped),
			errors.Is(err, playback.ErrPlayerClosed):
			// Deliberate interruption, not a fault.
		default:
			o.log.Error("talk", "station", id, "error", err)
			o.deps.Events.Record(PlaybackFailed, id, err.Error())
		}
	case <-ctx.Done():
	}
}

func (o *Orchestrator) caption(c Caption) {
	if o.opts.OnCaption != nil {
		o.opts.OnCaption(c)
	}
}

// withRetry runs fn with one retry after a short backoff. Transient service
// errors get a second chance; cancellation does not.
func withRetry[T any](
	ctx context.Context,
	backoff time.Duration,
	fn func(context.Context) (T, error),
) (T, error) {
	out, err := fn(ctx)
	if err == nil || ctx.Err() != nil {
		return out, err
	}
	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		return out, err
	}
	return fn(ctx)
}
