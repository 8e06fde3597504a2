package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"parley/dict"
	"parley/history"
	"parley/pipeline"
	"parley/playback"
	"parley/sound"
	"parley/station"
	"parley/stt"
	"parley/translate"
	"parley/tts"
	"parley/web"
)

var logger *log.Logger

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(accentsCmd)

	serveCmd.Flags().String("listen", ":8080", "Operator console address")

	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	runCmd.Flags().String("listen", ":8080", "Operator console address")
	runCmd.Flags().Bool("canned", false, "Run offline with canned providers")
	runCmd.Flags().Bool("mute", false, "Discard synthesized audio")
	runCmd.Flags().Bool("auto-rearm", false, "Re-activate a station after each segment")
	runCmd.Flags().Int("sample-rate", 16000, "Capture sample rate in Hz")
	runCmd.Flags().String("a-source", "en", "Station A source language")
	runCmd.Flags().String("a-target", "es", "Station A target language")
	runCmd.Flags().String("a-accent", "", "Station A voice accent")
	runCmd.Flags().Float64("a-rate", 1.0, "Station A speech rate")
	runCmd.Flags().String("b-source", "es", "Station B source language")
	runCmd.Flags().String("b-target", "en", "Station B target language")
	runCmd.Flags().String("b-accent", "", "Station B voice accent")
	runCmd.Flags().Float64("b-rate", 1.0, "Station B speech rate")

	viper.BindPFlag("listen", runCmd.Flags().Lookup("listen"))
	viper.BindPFlag("canned", runCmd.Flags().Lookup("canned"))
	viper.BindPFlag("mute", runCmd.Flags().Lookup("mute"))
	viper.BindPFlag("auto_rearm", runCmd.Flags().Lookup("auto-rearm"))
	viper.BindPFlag("sample_rate", runCmd.Flags().Lookup("sample-rate"))
	viper.BindPFlag("station_a.source", runCmd.Flags().Lookup("a-source"))
	viper.BindPFlag("station_a.target", runCmd.Flags().Lookup("a-target"))
	viper.BindPFlag("station_a.accent", runCmd.Flags().Lookup("a-accent"))
	viper.BindPFlag("station_a.rate", runCmd.Flags().Lookup("a-rate"))
	viper.BindPFlag("station_b.source", runCmd.Flags().Lookup("b-source"))
	viper.BindPFlag("station_b.target", runCmd.Flags().Lookup("b-target"))
	viper.BindPFlag("station_b.accent", runCmd.Flags().Lookup("b-accent"))
	viper.BindPFlag("station_b.rate", runCmd.Flags().Lookup("b-rate"))
}

func initConfig() {
	viper.SetConfigName("parley")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("parley")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			fmt.Printf("Error reading config file: %s\n", err)
		}
	}

	logger = log.New(os.Stdout)
}

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley is a two-way speech translation session",
	Long:  `Parley listens at two stations, translating each speaker's utterances and speaking them aloud in the other's language.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the translation session and operator console",
	Run:   runParley,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the operator console without audio devices",
	Long:  `Serve runs the control and status HTTP API alone, with no capture or playback hardware. Activating a station reports the capture device as unavailable.`,
	Run:   runServe,
}

var accentsCmd = &cobra.Command{
	Use:   "accents",
	Short: "List supported languages and voice accents",
	Run:   runAccents,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func stationConfig(id station.ID, key string) station.Config {
	return station.Config{
		Station:        id,
		SourceLanguage: viper.GetString(key + ".source"),
		TargetLanguage: viper.GetString(key + ".target"),
		Accent:         viper.GetString(key + ".accent"),
		SpeechRate:     viper.GetFloat64(key + ".rate"),
	}
}

func runParley(cmd *cobra.Command, args []string) {
	mainLogger, sndLogger, flowLogger, httpLogger := createLoggers()

	ctx := context.Background()
	canned := viper.GetBool("canned")
	sampleRate := viper.GetInt("sample_rate")

	controller, err := station.NewController(
		stationConfig(station.A, "station_a"),
		stationConfig(station.B, "station_b"),
		mainLogger,
	)
	if err != nil {
		mainLogger.Fatal("station configuration", "error", err.Error())
	}

	transcriber, translator, speech, err := buildProviders(ctx, canned, sndLogger)
	if err != nil {
		mainLogger.Fatal("create providers", "error", err.Error())
	}

	var sink playback.Sink
	if viper.GetBool("mute") {
		sink = &playback.NullSink{}
	} else {
		sink, err = playback.NewSpeakerSink(24000)
		if err != nil {
			mainLogger.Fatal("open output device", "error", err.Error())
		}
	}
	player := playback.NewPlayer(sink, sndLogger)
	defer player.Close()

	mic, err := sound.OpenMicrophone(sampleRate, sndLogger)
	if err != nil {
		mainLogger.Fatal("open capture device", "error", err.Error())
	}
	defer mic.Close()

	dictionary := dict.Default().Merge(viper.GetStringMapString("dictionary"))
	hist := history.NewLog()
	events := pipeline.NewEvents()
	captions := web.NewCaptions()

	orc := pipeline.New(pipeline.Deps{
		Controller:  controller,
		Listener:    &pipeline.MicrophoneListener{Mic: mic, Config: segmenterConfig(sampleRate)},
		Transcriber: transcriber,
		Translator:  translator,
		Speech:      speech,
		Player:      player,
		Dictionary:  dictionary,
		History:     hist,
		Events:      events,
		Log:         flowLogger,
	}, pipelineOptions(captions))
	defer orc.Close()

	handler := web.NewHandler(orc, controller, hist, events, captions, httpLogger)
	go func() {
		if err := handler.Serve(viper.GetString("listen")); err != nil {
			mainLogger.Fatal("http server", "error", err.Error())
		}
	}()

	mainLogger.Info("session ready",
		"a", controller.Config(station.A).SourceLanguage,
		"b", controller.Config(station.B).SourceLanguage,
		"canned", canned,
	)

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
	mainLogger.Info("shutting down")
}

// deafListener stands in for the microphone when no audio hardware is wired
// up, as in serve mode.
type deafListener struct{}

func (deafListener) Listen(context.Context) (<-chan sound.Buffer, error) {
	return nil, sound.ErrCaptureUnavailable
}

func runServe(cmd *cobra.Command, args []string) {
	mainLogger, sndLogger, flowLogger, httpLogger := createLoggers()

	controller, err := station.NewController(
		stationConfig(station.A, "station_a"),
		stationConfig(station.B, "station_b"),
		mainLogger,
	)
	if err != nil {
		mainLogger.Fatal("station configuration", "error", err.Error())
	}

	player := playback.NewPlayer(&playback.NullSink{}, sndLogger)
	defer player.Close()

	hist := history.NewLog()
	events := pipeline.NewEvents()
	captions := web.NewCaptions()

	orc := pipeline.New(pipeline.Deps{
		Controller:  controller,
		Listener:    deafListener{},
		Transcriber: &stt.CannedTranscriber{},
		Translator:  &translate.CannedTranslator{},
		Speech:      &tts.CannedSpeechGenerator{},
		Player:      player,
		Dictionary:  dict.Default().Merge(viper.GetStringMapString("dictionary")),
		History:     hist,
		Events:      events,
		Log:         flowLogger,
	}, pipelineOptions(captions))
	defer orc.Close()

	handler := web.NewHandler(orc, controller, hist, events, captions, httpLogger)
	addr, _ := cmd.Flags().GetString("listen")
	if err := handler.Serve(addr); err != nil {
		mainLogger.Fatal("http server", "error", err.Error())
	}
}

// segmenterConfig applies any VAD tuning from the config file on top of the
// defaults.
func segmenterConfig(sampleRate int) sound.SegmenterConfig {
	cfg := sound.DefaultSegmenterConfig(sampleRate)
	if v := viper.GetFloat64("vad.start_margin"); v > 0 {
		cfg.StartMargin = v
	}
	if v := viper.GetDuration("vad.min_speech"); v > 0 {
		cfg.MinSpeech = v
	}
	if v := viper.GetDuration("vad.trailing_silence"); v > 0 {
		cfg.TrailingSilence = v
	}
	if v := viper.GetDuration("vad.max_utterance"); v > 0 {
		cfg.MaxUtterance = v
	}
	if v := viper.GetDuration("vad.pre_roll"); v > 0 {
		cfg.PreRoll = v
	}
	return cfg
}

func pipelineOptions(captions *web.Captions) pipeline.Options {
	return pipeline.Options{
		RecognizeTimeout:  viper.GetDuration("timeouts.recognize"),
		TranslateTimeout:  viper.GetDuration("timeouts.translate"),
		SynthesizeTimeout: viper.GetDuration("timeouts.synthesize"),
		AutoRearm:         viper.GetBool("auto_rearm"),
		OnCaption:         captions.Update,
	}
}

func buildProviders(
	ctx context.Context,
	canned bool,
	logger *log.Logger,
) (stt.Transcriber, translate.Translator, tts.SpeechGenerator, error) {
	if canned {
		return &stt.CannedTranscriber{
				Script: []string{"hello there", "how are you today"},
			},
			&translate.CannedTranslator{},
			&tts.CannedSpeechGenerator{},
			nil
	}

	transcriber, err := stt.NewGoogleTranscriber(ctx, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	translator, err := translate.NewGoogleTranslator(ctx, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	speech, err := tts.NewGoogleSpeechGenerator(ctx, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return transcriber, translator, speech, nil
}

func runAccents(cmd *cobra.Command, args []string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Language", "Default", "Accents"})
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for _, lang := range station.Languages() {
		table.Append([]string{
			lang,
			station.DefaultAccent(lang),
			strings.Join(station.Accents(lang), ", "),
		})
	}

	table.Render()
}

func createLoggers() (mainLogger, sndLogger, flowLogger, httpLogger *log.Logger) {
	logLevel := log.InfoLevel
	if viper.GetBool("verbose") {
		logLevel = log.DebugLevel
	}

	logger.SetLevel(logLevel)
	logger.SetReportCaller(true)
	logger.SetCallerFormatter(
		func(file string, line int, funcName string) string {
			path, err := filepath.Rel(".", file)
			if err != nil {
				path = file
			}
			return fmt.Sprintf("%s:%d", path, line)
		},
	)

	styles := log.DefaultStyles()
	styles.Prefix = styles.Prefix.MarginTop(1).
		Bold(false).Transform(func(s string) string {
		return strings.TrimSuffix(s, ":")
	})
	styles.Levels[log.InfoLevel] = styles.Levels[log.InfoLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Levels[log.ErrorLevel] = styles.Levels[log.ErrorLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Message = styles.Message.Bold(true).Width(24)
	styles.Key = styles.Key.MarginLeft(1).
		Bold(false).
		Foreground(lipgloss.Color("#ff8800"))

	logger.SetStyles(styles)

	mainLogger = logger.With().WithPrefix("main")
	sndLogger = logger.With().WithPrefix("snd")
	flowLogger = logger.With().WithPrefix("flow")
	httpLogger = logger.With().WithPrefix("http")

	return
}
