package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lexiqai/media-transcriber/internal/media"
	"github.com/lexiqai/media-transcriber/internal/observability"
	"github.com/lexiqai/media-transcriber/internal/resilience"
	"github.com/lexiqai/media-transcriber/internal/stt"
)

var (
	// ErrNoSource is returned by Start when nothing has been loaded
	ErrNoSource = errors.New("no media source selected")

	// ErrUnsupported is returned by Start when no recognizer is configured
	ErrUnsupported = stt.ErrUnsupported

	// ErrNoConnectivity is returned by Start when the connectivity check fails
	ErrNoConnectivity = errors.New("no network connectivity")

	// ErrStopped is returned once Run has exited
	ErrStopped = errors.New("session controller stopped")
)

// Checker reports whether the network is usable
type Checker interface {
	Check(ctx context.Context) bool
}

// LoadFunc decodes a file into a playable source
type LoadFunc func(ctx context.Context, name, path string) (media.Source, error)

// Options configures a Controller. Recognizer may be nil when recognition is unavailable.
type Options struct {
	Recognizer          stt.Recognizer
	Checker             Checker
	Load                LoadFunc
	Observer            Observer
	MaxErrors           int
	Restart             resilience.RestartConfig
	NotificationDismiss time.Duration
	Now                 func() time.Time
	AfterFunc           resilience.AfterFunc
	Logger              zerolog.Logger
}

// Controller owns one recognition session. All session state is mutated on
// the goroutine running Run; public methods marshal work onto it.
type Controller struct {
	recognizer stt.Recognizer
	checker    Checker
	load       LoadFunc
	observer   Observer
	restartCfg resilience.RestartConfig
	dismiss    time.Duration
	now        func() time.Time
	base       zerolog.Logger
	logger     zerolog.Logger

	tasks   chan func()
	stopped chan struct{}
	ctx     context.Context

	// loop-owned state
	sessionID       string
	phase           Phase
	running         bool
	budget          *resilience.ErrorBudget
	hasNetworkError bool
	startedAt       time.Time
	elapsed         time.Duration
	lastRestart     time.Time
	restart         *resilience.RestartTimer
	transcript      Transcript
	interim         string
	source          media.Source
	progress        int
	progressText    string
	playCancel      context.CancelFunc
	playGen         uint64
}

// New creates a controller. Run must be called before any other method returns.
func New(opts Options) *Controller {
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Restart.MinInterval <= 0 || opts.Restart.MinDelay <= 0 {
		opts.Restart = resilience.DefaultRestartConfig()
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = 5
	}
	if opts.NotificationDismiss <= 0 {
		opts.NotificationDismiss = 3 * time.Second
	}

	sessionID := uuid.NewString()
	return &Controller{
		recognizer:   opts.Recognizer,
		checker:      opts.Checker,
		load:         opts.Load,
		observer:     opts.Observer,
		restartCfg:   opts.Restart,
		dismiss:      opts.NotificationDismiss,
		now:          opts.Now,
		base:         opts.Logger,
		logger:       opts.Logger.With().Str("session_id", sessionID).Logger(),
		tasks:        make(chan func(), 64),
		stopped:      make(chan struct{}),
		ctx:          context.Background(),
		sessionID:    sessionID,
		budget:       resilience.NewErrorBudget(opts.MaxErrors),
		restart:      resilience.NewRestartTimer(opts.AfterFunc),
		progressText: msgSelectFile,
	}
}

// Run processes tasks, recognizer events and the elapsed-time tick until ctx is done
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	defer close(c.stopped)

	var events <-chan stt.Event
	if c.recognizer != nil {
		events = c.recognizer.Events()
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	c.publish()
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case task := <-c.tasks:
			task()
		case ev := <-events:
			c.handleEvent(ev)
		case <-ticker.C:
			if c.running {
				c.publish()
			}
		}
	}
}

func (c *Controller) shutdown() {
	c.restart.Cancel()
	c.stopPlayback()
	if c.recognizer != nil {
		if err := c.recognizer.Stop(); err != nil {
			c.logger.Warn().Err(err).Msg("Recognizer stop failed during shutdown")
		}
	}
	if c.source != nil {
		_ = c.source.Close()
	}
	c.running = false
	c.logger.Info().Msg("Session controller stopped")
}

// do runs fn on the loop and waits for it
func (c *Controller) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	task := func() {
		fn()
		close(done)
	}
	select {
	case c.tasks <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrStopped
	}
}

// post queues fn on the loop without waiting
func (c *Controller) post(fn func()) {
	select {
	case c.tasks <- fn:
	case <-c.stopped:
	}
}

// Start begins (or resumes) transcription of the current source.
// Starting a running session is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	var preErr error
	var alreadyRunning bool
	err := c.do(ctx, func() {
		alreadyRunning = c.running
		if !alreadyRunning {
			preErr = c.checkStartable()
		}
	})
	if err != nil {
		return err
	}
	if alreadyRunning {
		return nil
	}
	if preErr != nil {
		return preErr
	}

	// the only blocking step; never run on the loop
	if c.checker != nil && !c.checker.Check(ctx) {
		c.post(func() {
			c.logger.Warn().Msg("Start refused, no connectivity")
			c.notify(LevelError, msgNoInternet)
		})
		return ErrNoConnectivity
	}

	var startErr error
	err = c.do(ctx, func() {
		if c.running {
			return
		}
		if startErr = c.checkStartable(); startErr != nil {
			return
		}
		startErr = c.begin()
	})
	if err != nil {
		return err
	}
	return startErr
}

func (c *Controller) checkStartable() error {
	if c.source == nil {
		c.notify(LevelError, msgNoSource)
		return ErrNoSource
	}
	if r, ok := c.source.(media.Readier); ok && !r.Ready() {
		c.notify(LevelError, msgSourceEnded)
		return fmt.Errorf("%s: %w", c.source.Name(), ErrNoSource)
	}
	if c.recognizer == nil {
		c.notify(LevelError, msgUnsupported)
		return ErrUnsupported
	}
	return nil
}

func (c *Controller) begin() error {
	c.budget.Reset()
	c.hasNetworkError = false
	if c.phase == PhaseIdle {
		c.sessionID = uuid.NewString()
		c.logger = c.base.With().Str("session_id", c.sessionID).Logger()
	}

	if err := c.recognizer.Start(c.ctx); err != nil {
		c.logger.Error().Err(err).Msg("Failed to start recognizer")
		c.notify(LevelError, msgStartFailed)
		c.phase = PhasePaused
		c.pause("start_failed", "")
		return fmt.Errorf("start recognizer: %w", err)
	}

	c.running = true
	c.phase = PhaseRunning
	c.startedAt = c.now()
	c.elapsed = 0
	c.progressText = msgTranscribing
	c.startPlayback()

	observability.RecordSessionStart()
	c.logger.Info().Str("source", c.source.Name()).Msg("Transcription started")
	c.publish()
	return nil
}

// Pause stops recognition and playback. Pausing twice is harmless.
func (c *Controller) Pause(ctx context.Context) error {
	return c.do(ctx, func() { c.pause("user", "") })
}

// Reset pauses, rewinds the source and clears the transcript, counters and elapsed time
func (c *Controller) Reset(ctx context.Context) error {
	return c.do(ctx, c.reset)
}

// Clear empties the transcript without touching the session
func (c *Controller) Clear(ctx context.Context) error {
	return c.do(ctx, func() {
		c.transcript.Clear()
		c.interim = ""
		observability.SetTranscriptWords(0)
		c.notify(LevelSuccess, msgCleared)
		c.publish()
	})
}

// Snapshot returns the current state
func (c *Controller) Snapshot(ctx context.Context) (State, error) {
	var st State
	err := c.do(ctx, func() { st = c.snapshot() })
	return st, err
}

// Announce sends a notification to the UI in order with state updates
func (c *Controller) Announce(level Level, message string) {
	c.post(func() { c.notify(level, message) })
}

// SetOnline applies an online/offline transition reported by the connectivity monitor
func (c *Controller) SetOnline(online bool) {
	c.post(func() {
		if online {
			c.hasNetworkError = false
			c.notify(LevelSuccess, msgConnectionRestored)
			c.publish()
			return
		}
		c.notify(LevelError, msgConnectionLost)
		if c.running {
			c.pause("offline", "")
		}
	})
}

// LoadSource decodes a file and installs it as the current source.
// On failure the previous source stays in place.
func (c *Controller) LoadSource(ctx context.Context, name, path string) error {
	if c.load == nil {
		return fmt.Errorf("no media loader configured")
	}

	err := c.do(ctx, func() {
		if c.running {
			c.pause("source_change", "")
		}
		c.setProgress(10, msgProcessing)
		c.setProgress(30, msgExtracting)
	})
	if err != nil {
		return err
	}

	src, loadErr := c.load(ctx, name, path)

	err = c.do(ctx, func() {
		if loadErr != nil {
			c.logger.Error().Err(loadErr).Str("file", name).Msg("Audio extraction failed")
			msg := msgExtractionFailed
			if errors.Is(loadErr, media.ErrUnsupportedMedia) {
				msg = msgUnsupportedMedia
			}
			c.notify(LevelError, msg)
			c.setProgress(0, msg)
			return
		}
		c.install(src)
		c.setProgress(60, msgExtracted)
		c.setProgress(100, msgReady)
	})
	if err != nil {
		if src != nil {
			_ = src.Close()
		}
		return err
	}
	return loadErr
}

// UseSource installs an already open source, such as a live capture
func (c *Controller) UseSource(ctx context.Context, src media.Source) error {
	return c.do(ctx, func() {
		if c.running {
			c.pause("source_change", "")
		}
		c.install(src)
		c.setProgress(100, msgReady)
	})
}

func (c *Controller) install(src media.Source) {
	if c.source != nil && c.source != src {
		if err := c.source.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to close previous source")
		}
	}
	c.source = src
	c.logger.Info().Str("source", src.Name()).Msg("Media source ready")
}

func (c *Controller) setProgress(percent int, text string) {
	c.progress = percent
	c.progressText = text
	c.publish()
}

func (c *Controller) handleEvent(ev stt.Event) {
	switch ev.Type {
	case stt.EventStart:
		c.onStart()
	case stt.EventResult:
		c.onResult(ev.Final, ev.Interim)
	case stt.EventError:
		if ev.Err == nil {
			c.onError(stt.KindOther, "")
			return
		}
		c.onError(ev.Err.Kind, ev.Err.Message)
	case stt.EventEnd:
		c.onEnd()
	}
}

func (c *Controller) onStart() {
	c.logger.Debug().Msg("Recognition session opened")
}

func (c *Controller) onResult(final, interim []string) {
	if c.phase == PhaseIdle {
		// stale results from before a reset
		return
	}

	appended := 0
	for _, segment := range final {
		if c.transcript.Append(segment) {
			appended++
		}
	}
	if appended > 0 {
		c.interim = ""
		observability.RecordFinalSegments(appended)
		observability.SetTranscriptWords(c.transcript.WordCount())
	}
	if len(interim) > 0 && c.running {
		c.interim = strings.Join(interim, "")
	}
	c.publish()
}

func (c *Controller) onError(kind stt.ErrorKind, message string) {
	if !c.running {
		c.logger.Debug().Str("kind", string(kind)).Msg("Recognition error while not running, ignored")
		return
	}
	c.logger.Warn().Str("kind", string(kind)).Str("message", message).Msg("Speech recognition error")

	switch kind {
	case stt.KindAborted:
		return
	case stt.KindNetwork:
		observability.RecordRecognitionError(string(kind))
		c.hasNetworkError = true
		c.notify(LevelError, msgNetworkIssue)
		c.pause("network", "")
	case stt.KindNotAllowed:
		observability.RecordRecognitionError(string(kind))
		c.notify(LevelError, msgNotAllowed)
		c.pause("not_allowed", "")
	case stt.KindServiceNotAllowed:
		observability.RecordRecognitionError(string(kind))
		c.notify(LevelError, msgServiceNotAllowed)
		c.pause("service_not_allowed", "")
	default:
		observability.RecordRecognitionError(string(stt.KindOther))
		if c.budget.Record() {
			c.notify(LevelError, msgTooManyErrors)
			c.pause("error_budget", "")
			return
		}
		detail := message
		if detail == "" {
			detail = string(kind)
		}
		c.notify(LevelError, msgRecognitionError+detail)
		c.publish()
	}
}

func (c *Controller) onEnd() {
	if c.running && !c.budget.Exhausted() && !c.hasNetworkError {
		c.restartWithDelay()
		return
	}
	if c.running {
		c.pause("ended", "")
	}
}

func (c *Controller) restartWithDelay() {
	c.restart.Cancel()

	if c.checker != nil && !c.checker.Check(c.ctx) {
		c.notify(LevelError, msgNoNetworkRestart)
		c.pause("offline", "")
		return
	}

	delay := c.restartCfg.RestartDelay(c.now(), c.lastRestart)
	c.restart.Schedule(delay, func(gen uint64) {
		c.post(func() { c.attemptRestart(gen) })
	})
	observability.RecordRestart("scheduled")
	c.logger.Debug().Dur("delay", delay).Msg("Recognition restart scheduled")
}

func (c *Controller) attemptRestart(gen uint64) {
	if !c.restart.Claim(gen) {
		observability.RecordRestart("cancelled")
		return
	}
	if !c.running {
		observability.RecordRestart("cancelled")
		return
	}

	c.lastRestart = c.now()
	if err := c.recognizer.Start(c.ctx); err != nil {
		c.logger.Error().Err(err).Msg("Error restarting recognition")
		observability.RecordRestart("failed")
		observability.RecordRecognitionError(string(stt.KindOther))
		if c.budget.Record() {
			c.notify(LevelError, msgTooManyErrors)
			c.pause("error_budget", "")
			return
		}
		c.restartWithDelay()
		c.publish()
		return
	}
	observability.RecordRestart("started")
	c.logger.Info().Msg("Recognition restarted")
}

// pause is idempotent. A non-empty text overrides the default progress text.
func (c *Controller) pause(reason, text string) {
	c.restart.Cancel()
	wasRunning := c.running
	c.running = false

	if c.recognizer != nil {
		if err := c.recognizer.Stop(); err != nil {
			c.logger.Warn().Err(err).Msg("Error stopping recognition")
		}
	}
	c.stopPlayback()

	if c.phase == PhaseRunning {
		c.elapsed = c.now().Sub(c.startedAt)
		c.phase = PhasePaused
	}
	c.interim = ""

	switch {
	case text != "":
		c.progressText = text
	case c.hasNetworkError:
		c.progressText = msgStoppedNetwork
	case wasRunning || c.phase == PhasePaused:
		c.progressText = msgPaused
	}

	if wasRunning {
		observability.RecordSessionStop(reason)
		c.logger.Info().Str("reason", reason).Msg("Transcription paused")
	}
	c.publish()
}

func (c *Controller) reset() {
	c.pause("reset", msgResetComplete)

	if c.source != nil {
		c.source.Rewind()
	}
	c.transcript.Clear()
	c.interim = ""
	c.budget.Reset()
	c.hasNetworkError = false
	c.startedAt = time.Time{}
	c.elapsed = 0
	c.phase = PhaseIdle
	observability.SetTranscriptWords(0)
	c.logger.Info().Msg("Session reset")
	c.publish()
}

func (c *Controller) startPlayback() {
	c.stopPlayback()
	if c.source == nil {
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.playCancel = cancel
	gen := c.playGen
	src := c.source
	sink := c.recognizer.SendAudio

	go func() {
		err := src.Play(ctx, sink)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				c.logger.Warn().Err(err).Msg("Playback stopped with error")
			}
			return
		}
		c.post(func() { c.onPlaybackEnd(gen) })
	}()
}

func (c *Controller) stopPlayback() {
	if c.playCancel != nil {
		c.playCancel()
		c.playCancel = nil
	}
	c.playGen++
}

func (c *Controller) onPlaybackEnd(gen uint64) {
	if gen != c.playGen || !c.running {
		return
	}
	c.logger.Info().Msg("Playback finished")
	c.playCancel = nil
	c.pause("playback_finished", msgPlaybackFinished)
}

func (c *Controller) currentElapsed() time.Duration {
	if c.running {
		return c.now().Sub(c.startedAt)
	}
	return c.elapsed
}

func (c *Controller) snapshot() State {
	text := c.transcript.Text()
	st := State{
		SessionID:       c.sessionID,
		Phase:           c.phase,
		Running:         c.running,
		ErrorCount:      c.budget.Count(),
		MaxErrors:       c.budget.Max(),
		HasNetworkError: c.hasNetworkError,
		Transcript:      text,
		Interim:         c.interim,
		WordCount:       WordCount(text),
		Elapsed:         FormatElapsed(c.currentElapsed()),
		Progress:        c.progress,
		ProgressText:    c.progressText,
		SourceReady:     c.source != nil,
		CanStart:        !c.running && c.source != nil,
		CanPause:        c.running,
	}
	if c.source != nil {
		st.Source = c.source.Name()
	}
	return st
}

func (c *Controller) publish() {
	c.observer.PublishState(c.snapshot())
}

func (c *Controller) notify(level Level, message string) {
	observability.RecordNotification(string(level))
	c.observer.Notify(NewNotification(level, message, c.dismiss, c.now()))
}
