package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"plate_reader/internal/domain"
)

// EncodeOptions controls how a frame is turned into JPEG bytes.
// MaxWidth <= 0 keeps the native size; frames are never upscaled.
type EncodeOptions struct {
	MaxWidth int
	Quality  int
	Overlay  []domain.OverlayBox
}

type Frame interface {
	Encode(opts EncodeOptions) ([]byte, error)
	Close() error
}

// FrameStream is pull based: NextFrame blocks until the camera delivers the next frame.
type FrameStream interface {
	NextFrame() (Frame, error)
	Release() error
}

type FrameSource interface {
	Acquire(ctx context.Context, deviceSelector string, resolution domain.Resolution) (FrameStream, error)
}

type DetectionClient interface {
	Detect(ctx context.Context, req domain.DetectionRequest) (*domain.DetectionResponse, error)
}

// Notifier receives status changes, transient notifications and results. Notify must not block.
type Notifier interface {
	Notify(n domain.CaptureNotification)
}

type Options struct {
	NetworkTimeout        time.Duration
	WatchdogTimeout       time.Duration
	OverlayClearAfter     time.Duration
	HistoryCapacity       int
	EncodeMaxWidth        int
	EncodeQuality         int
	ResultImageQuality    int
	RateLimitFloorSeconds float64
	MaxFrameErrors        int
	FrameRetryDelay       time.Duration
	StopWaitTimeout       time.Duration
	Clock                 Clock
	Notifier              Notifier
}

func DefaultOptions() Options {
	return Options{
		NetworkTimeout:        8 * time.Second,
		WatchdogTimeout:       10 * time.Second,
		OverlayClearAfter:     3 * time.Second,
		HistoryCapacity:       DefaultHistoryCapacity,
		EncodeMaxWidth:        800,
		EncodeQuality:         50,
		ResultImageQuality:    80,
		RateLimitFloorSeconds: 10,
		MaxFrameErrors:        30,
		FrameRetryDelay:       50 * time.Millisecond,
		StopWaitTimeout:       2 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.NetworkTimeout <= 0 {
		o.NetworkTimeout = d.NetworkTimeout
	}
	if o.WatchdogTimeout <= 0 {
		o.WatchdogTimeout = d.WatchdogTimeout
	}
	if o.OverlayClearAfter <= 0 {
		o.OverlayClearAfter = d.OverlayClearAfter
	}
	if o.HistoryCapacity <= 0 {
		o.HistoryCapacity = d.HistoryCapacity
	}
	if o.EncodeMaxWidth <= 0 {
		o.EncodeMaxWidth = d.EncodeMaxWidth
	}
	if o.EncodeQuality <= 0 {
		o.EncodeQuality = d.EncodeQuality
	}
	if o.ResultImageQuality <= 0 {
		o.ResultImageQuality = d.ResultImageQuality
	}
	if o.RateLimitFloorSeconds <= 0 {
		o.RateLimitFloorSeconds = d.RateLimitFloorSeconds
	}
	if o.MaxFrameErrors <= 0 {
		o.MaxFrameErrors = d.MaxFrameErrors
	}
	if o.FrameRetryDelay <= 0 {
		o.FrameRetryDelay = d.FrameRetryDelay
	}
	if o.StopWaitTimeout <= 0 {
		o.StopWaitTimeout = d.StopWaitTimeout
	}
	if o.Clock == nil {
		o.Clock = SystemClock()
	}
	return o
}

// attempt is one in-flight detection request.
type attempt struct {
	id         int64
	generation uint64
	mode       domain.DetectionMode
	startedAt  time.Time
	watchdog   Timer
	cancel     context.CancelFunc
	reports    chan domain.DetectionReport
	once       sync.Once
}

func (a *attempt) deliver(r domain.DetectionReport) {
	a.once.Do(func() {
		a.reports <- r
		close(a.reports)
	})
}

// Controller owns one camera-backed detection session.
type Controller struct {
	source  FrameSource
	client  DetectionClient
	opts    Options
	clock   Clock
	history *History

	mu            sync.Mutex
	state         domain.ControllerState
	starting      bool
	stopRequested bool
	mode          domain.DetectionMode
	settings      domain.CaptureSettings
	stats         domain.SessionStatistics
	fps           fpsSampler
	generation    uint64
	sessionID     string
	startedAt     time.Time
	lastTrigger   time.Time
	nextAttemptID int64
	nextResultID  int64
	inflight      *attempt
	overlay       []domain.OverlayBox
	overlaySeq    uint64
	overlayTimer  Timer
	lastStatus    string
	loopCancel    context.CancelFunc
	loopDone      chan struct{}

	// frameMu guards the latest frame; encoding holds it so the render loop cannot close the frame mid-encode.
	// Only the render loop of frameSession may replace or drop it.
	frameMu      sync.Mutex
	current      Frame
	frameSession string
}

func NewController(source FrameSource, client DetectionClient, settings domain.CaptureSettings, opts Options) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		source:   source,
		client:   client,
		opts:     opts,
		clock:    opts.Clock,
		history:  NewHistory(opts.HistoryCapacity),
		state:    domain.StateIdle,
		mode:     domain.ModeAuto,
		settings: settings,
	}
}

// Start opens the camera with the current settings and begins the render loop.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != domain.StateIdle || c.starting {
		c.mu.Unlock()
		return domain.ErrAlreadyRunning
	}
	c.starting = true
	settings := c.settings
	c.mu.Unlock()

	c.publishStatus(domain.LevelWarning, "Starting camera...")

	stream, err := c.source.Acquire(ctx, settings.DeviceSelector, settings.Resolution)
	if err != nil {
		c.mu.Lock()
		c.starting = false
		c.stopRequested = false
		c.mu.Unlock()

		var acqErr *domain.AcquisitionError
		if !errors.As(err, &acqErr) {
			acqErr = &domain.AcquisitionError{Device: settings.DeviceSelector, Err: err}
		}
		log.Printf("CaptureController: cannot start camera %q: %v", settings.DeviceSelector, err)
		c.publishStatus(domain.LevelDanger, "Cannot start camera")
		c.publishNotification(domain.LevelDanger, "Cannot start camera: "+acqErr.Error())
		return acqErr
	}

	now := c.clock.Now()
	sessionID := uuid.NewString()

	c.mu.Lock()
	if c.stopRequested {
		c.starting = false
		c.stopRequested = false
		c.mu.Unlock()

		if err := stream.Release(); err != nil {
			log.Printf("CaptureController: error releasing camera: %v", err)
		}
		log.Printf("CaptureController: start of camera %q cancelled by stop", settings.DeviceSelector)
		c.publishState(domain.StateIdle)
		c.publishStatus(domain.LevelDanger, "Camera stopped")
		return domain.ErrStartAborted
	}
	c.adoptFrameSession(sessionID)

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.starting = false
	c.sessionID = sessionID
	c.startedAt = now
	c.lastTrigger = time.Time{}
	c.fps.reset(now)
	c.state = domain.StateRunning
	c.loopCancel = cancel
	c.loopDone = done
	c.mu.Unlock()

	log.Printf("CaptureController: session %s started on camera %q at %s", sessionID, settings.DeviceSelector, settings.Resolution)
	go c.renderLoop(loopCtx, sessionID, stream, done)

	c.publishState(domain.StateRunning)
	c.publishStatus(domain.LevelSuccess, "Camera running")
	return nil
}

// Stop is idempotent and safe from any state. A detection still in flight is discarded.
// A Start still acquiring the camera releases it and stays idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state == domain.StateIdle {
		if c.starting {
			c.stopRequested = true
		}
		c.mu.Unlock()
		return
	}
	a, cancel, done := c.teardownLocked()
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(c.opts.StopWaitTimeout):
			log.Printf("CaptureController: render loop did not exit within %s, camera will be released when it does", c.opts.StopWaitTimeout)
		}
	}
	c.settleStale(a)

	c.publishState(domain.StateIdle)
	c.publishStatus(domain.LevelDanger, "Camera stopped")
}

// ForceReset abandons any in-flight request without touching the camera.
func (c *Controller) ForceReset() {
	c.mu.Lock()
	c.generation++
	a := c.inflight
	c.inflight = nil
	if a != nil {
		a.watchdog.Stop()
		a.cancel()
	}
	if c.loopDone != nil {
		c.state = domain.StateRunning
	} else {
		c.state = domain.StateIdle
	}
	state := c.state
	c.mu.Unlock()

	if a != nil {
		log.Printf("CaptureController: force reset abandoned attempt %d", a.id)
	}
	c.settleStale(a)

	c.publishState(state)
	c.publishStatus(domain.LevelWarning, "Processing force-stopped - ready")
	c.publishNotification(domain.LevelWarning, "Processing was force-stopped")
}

// TriggerDetection submits the current frame. It returns domain.ErrBusy without any
// network call while another request is in flight. The returned channel yields exactly one report.
func (c *Controller) TriggerDetection(mode domain.DetectionMode) (<-chan domain.DetectionReport, error) {
	c.mu.Lock()
	switch c.state {
	case domain.StateIdle:
		c.mu.Unlock()
		return nil, domain.ErrNotRunning
	case domain.StateAwaitingDetection:
		c.mu.Unlock()
		c.publishNotification(domain.LevelWarning, "Processing in progress, please wait...")
		return nil, domain.ErrBusy
	}

	now := c.clock.Now()
	c.nextAttemptID++
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.NetworkTimeout)
	a := &attempt{
		id:         c.nextAttemptID,
		generation: c.generation,
		mode:       mode,
		startedAt:  now,
		cancel:     cancel,
		reports:    make(chan domain.DetectionReport, 1),
	}
	a.watchdog = c.clock.AfterFunc(c.opts.WatchdogTimeout, func() { c.onWatchdog(a) })
	c.inflight = a
	c.state = domain.StateAwaitingDetection
	c.lastTrigger = now
	settings := c.settings
	c.mu.Unlock()

	c.publishState(domain.StateAwaitingDetection)
	c.publishStatus(domain.LevelWarning, "Capturing frame...")

	image, err := c.encodeCurrent(EncodeOptions{MaxWidth: c.opts.EncodeMaxWidth, Quality: c.opts.EncodeQuality})
	if err != nil {
		c.abortAttempt(a)
		return nil, err
	}

	c.publishStatus(domain.LevelWarning, "Sending frame to detection API...")
	go func() {
		defer cancel()
		resp, err := c.client.Detect(ctx, domain.DetectionRequest{
			ImageBytes:          image,
			ConfidenceThreshold: settings.ConfidenceThreshold,
			Mode:                mode,
		})
		outcome := classifyOutcome(resp, err)

		var captured []byte
		if outcome.Recognized() && c.isCurrent(a) {
			captured, err = c.encodeCurrent(EncodeOptions{Quality: c.opts.ResultImageQuality})
			if err != nil {
				log.Printf("CaptureController: cannot encode result image for attempt %d: %v", a.id, err)
			}
		}
		c.complete(a, outcome, captured)
	}()

	return a.reports, nil
}

// abortAttempt releases the single-flight slot when the frame could not be encoded. No API call was made.
func (c *Controller) abortAttempt(a *attempt) {
	c.mu.Lock()
	if c.inflight != a {
		c.mu.Unlock()
		return
	}
	c.inflight = nil
	a.watchdog.Stop()
	a.cancel()
	c.state = domain.StateRunning
	c.mu.Unlock()

	a.deliver(domain.DetectionReport{AttemptID: a.id, Mode: a.mode, Kind: domain.OutcomeFailure, Stale: true, Err: domain.ErrNoFrame})
	c.publishState(domain.StateRunning)
	c.publishStatus(domain.LevelWarning, "No frame available yet")
}

func (c *Controller) isCurrent(a *attempt) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight == a && a.generation == c.generation
}

// complete is the single state transition for every settled client call.
func (c *Controller) complete(a *attempt, outcome domain.DetectionOutcome, captured []byte) {
	c.mu.Lock()
	if c.inflight != a || a.generation != c.generation {
		c.mu.Unlock()
		log.Printf("CaptureController: discarding stale result of attempt %d (%s)", a.id, outcome.Kind)
		return
	}
	now := c.clock.Now()
	c.inflight = nil
	a.watchdog.Stop()
	c.state = domain.StateRunning
	c.stats.APICallCount++

	report := domain.DetectionReport{
		AttemptID: a.id,
		Mode:      a.mode,
		Kind:      outcome.Kind,
		Duration:  now.Sub(a.startedAt),
		Err:       outcome.Err,
	}
	level := domain.LevelDanger
	var overlay []domain.OverlayBox

	switch outcome.Kind {
	case domain.OutcomeSuccess:
		resp := outcome.Response
		if resp.PlateText != "" {
			c.stats.DetectionCount++
			c.nextResultID++
			result := domain.SessionResult{
				ID:            c.nextResultID,
				CapturedImage: captured,
				PlateText:     resp.PlateText,
				Confidence:    resp.Confidence,
				BoundingBox:   resp.BoundingBox,
				Mode:          a.mode,
				Timestamp:     now,
			}
			c.history.Add(result)
			report.Result = &result
			if resp.BoundingBox != nil {
				conf := resp.DetectorConfidence
				if conf == 0 {
					conf = resp.Confidence
				}
				overlay = []domain.OverlayBox{{Box: *resp.BoundingBox, Confidence: conf, Recognized: true}}
			}
			level = domain.LevelSuccess
			report.Message = fmt.Sprintf("License plate found: %s (%.1f%%)", resp.PlateText, resp.Confidence*100)
		} else {
			for _, region := range resp.CandidateRegions {
				overlay = append(overlay, domain.OverlayBox{Box: region.Box, Confidence: region.Confidence})
			}
			level = domain.LevelWarning
			report.Message = "No license plate found in frame"
			if resp.Message != "" {
				report.Message = resp.Message
			}
		}
	case domain.OutcomeRateLimited:
		if c.settings.AutoIntervalSeconds < c.opts.RateLimitFloorSeconds {
			c.settings.AutoIntervalSeconds = c.opts.RateLimitFloorSeconds
		}
		level = domain.LevelWarning
		report.Message = fmt.Sprintf("Rate limit - waiting, auto interval now %gs", c.settings.AutoIntervalSeconds)
	case domain.OutcomeTimeout:
		report.Message = fmt.Sprintf("Processing took too long (timeout %s)", c.opts.NetworkTimeout)
	case domain.OutcomeNetworkError:
		report.Message = "Cannot connect to detection server"
	default:
		report.Message = "Detection failed"
		if outcome.ReasonCode != "" {
			report.Message += ": " + outcome.ReasonCode
		}
	}
	if len(overlay) > 0 {
		c.setOverlayLocked(overlay)
	}
	c.lastStatus = report.Message
	stats := c.stats
	sessionID := c.sessionID
	c.mu.Unlock()

	if outcome.Kind != domain.OutcomeSuccess {
		log.Printf("CaptureController: attempt %d settled as %s: %v", a.id, outcome.Kind, outcome.Err)
	}

	c.publishState(domain.StateRunning)
	if report.Result != nil {
		c.notify(domain.CaptureNotification{Type: domain.CaptureEventResult, SessionID: sessionID, Result: report.Result})
	}
	c.publishStatus(level, report.Message)
	c.publishNotification(level, report.Message)
	c.notify(domain.CaptureNotification{Type: domain.CaptureEventStatistics, Statistics: &stats})
	if len(overlay) > 0 {
		c.notify(domain.CaptureNotification{Type: domain.CaptureEventOverlay, Overlay: overlay})
	}
	a.deliver(report)
}

func (c *Controller) onWatchdog(a *attempt) {
	c.mu.Lock()
	if c.inflight != a || a.generation != c.generation {
		c.mu.Unlock()
		return
	}
	c.inflight = nil
	a.cancel()
	c.state = domain.StateRunning
	msg := "Processing timed out - forced stop"
	c.lastStatus = msg
	duration := c.clock.Now().Sub(a.startedAt)
	c.mu.Unlock()

	log.Printf("CaptureController: watchdog fired for attempt %d after %s", a.id, duration)
	c.publishState(domain.StateRunning)
	c.publishStatus(domain.LevelDanger, "Timed out - try again")
	c.publishNotification(domain.LevelDanger, msg)
	a.deliver(domain.DetectionReport{
		AttemptID: a.id,
		Mode:      a.mode,
		Kind:      domain.OutcomeTimeout,
		Message:   msg,
		Duration:  duration,
		Watchdog:  true,
		Err:       domain.ErrTimeout,
	})
}

func (c *Controller) settleStale(a *attempt) {
	if a == nil {
		return
	}
	a.deliver(domain.DetectionReport{
		AttemptID: a.id,
		Mode:      a.mode,
		Message:   "Detection abandoned",
		Stale:     true,
		Err:       domain.ErrStaleAttempt,
	})
}

// teardownLocked moves to idle and detaches the in-flight attempt and the render loop.
func (c *Controller) teardownLocked() (*attempt, context.CancelFunc, chan struct{}) {
	c.generation++
	a := c.inflight
	c.inflight = nil
	if a != nil {
		a.watchdog.Stop()
		a.cancel()
	}
	c.clearOverlayLocked()
	c.state = domain.StateIdle
	c.stats.FramesPerSecond = 0
	cancel, done := c.loopCancel, c.loopDone
	c.loopCancel, c.loopDone = nil, nil
	return a, cancel, done
}

func (c *Controller) renderLoop(ctx context.Context, sessionID string, stream FrameStream, done chan struct{}) {
	defer close(done)
	defer func() {
		c.dropFrame(sessionID)
		if err := stream.Release(); err != nil {
			log.Printf("CaptureController: error releasing camera: %v", err)
		}
	}()

	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}
		frame, err := stream.NextFrame()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			if failures >= c.opts.MaxFrameErrors {
				log.Printf("CaptureController: %d consecutive frame errors, last: %v", failures, err)
				c.abandonSession(sessionID, err)
				return
			}
			time.Sleep(c.opts.FrameRetryDelay)
			continue
		}
		failures = 0
		if ctx.Err() != nil {
			frame.Close()
			return
		}
		c.onFrame(sessionID, frame)
	}
}

func (c *Controller) onFrame(sessionID string, frame Frame) {
	c.frameMu.Lock()
	if c.frameSession != sessionID {
		c.frameMu.Unlock()
		frame.Close()
		return
	}
	prev := c.current
	c.current = frame
	c.frameMu.Unlock()
	if prev != nil {
		prev.Close()
	}

	now := c.clock.Now()
	c.mu.Lock()
	if c.state == domain.StateIdle {
		c.mu.Unlock()
		return
	}
	fps, sampled := c.fps.tick(now)
	if sampled {
		c.stats.FramesPerSecond = fps
	}
	due := c.mode == domain.ModeAuto && c.state == domain.StateRunning &&
		(c.lastTrigger.IsZero() || now.Sub(c.lastTrigger) >= c.settings.AutoInterval())
	stats := c.stats
	c.mu.Unlock()

	if sampled {
		c.notify(domain.CaptureNotification{Type: domain.CaptureEventStatistics, Statistics: &stats})
	}
	if due {
		if _, err := c.TriggerDetection(domain.ModeAuto); err != nil && !errors.Is(err, domain.ErrBusy) {
			log.Printf("CaptureController: auto detection not started: %v", err)
		}
	}
}

// abandonSession handles an unrecoverable camera fault from inside the render loop.
func (c *Controller) abandonSession(sessionID string, cause error) {
	c.mu.Lock()
	if c.sessionID != sessionID || c.state == domain.StateIdle {
		c.mu.Unlock()
		return
	}
	a, cancel, _ := c.teardownLocked()
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.settleStale(a)
	c.publishState(domain.StateIdle)
	c.publishStatus(domain.LevelDanger, "Camera stopped")
	c.publishNotification(domain.LevelDanger, "Camera failure, start the camera again: "+cause.Error())
}

func (c *Controller) encodeCurrent(opts EncodeOptions) ([]byte, error) {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	if c.current == nil {
		return nil, domain.ErrNoFrame
	}
	return c.current.Encode(opts)
}

// adoptFrameSession hands the frame slot to a new session, closing a frame a previous loop left behind.
func (c *Controller) adoptFrameSession(sessionID string) {
	c.frameMu.Lock()
	stale := c.current
	c.current = nil
	c.frameSession = sessionID
	c.frameMu.Unlock()
	if stale != nil {
		stale.Close()
	}
}

func (c *Controller) dropFrame(sessionID string) {
	c.frameMu.Lock()
	if c.frameSession != sessionID {
		c.frameMu.Unlock()
		return
	}
	frame := c.current
	c.current = nil
	c.frameMu.Unlock()
	if frame != nil {
		frame.Close()
	}
}

func (c *Controller) setOverlayLocked(boxes []domain.OverlayBox) {
	c.overlaySeq++
	seq := c.overlaySeq
	if c.overlayTimer != nil {
		c.overlayTimer.Stop()
	}
	c.overlay = boxes
	c.overlayTimer = c.clock.AfterFunc(c.opts.OverlayClearAfter, func() { c.expireOverlay(seq) })
}

func (c *Controller) clearOverlayLocked() {
	c.overlaySeq++
	if c.overlayTimer != nil {
		c.overlayTimer.Stop()
		c.overlayTimer = nil
	}
	c.overlay = nil
}

func (c *Controller) expireOverlay(seq uint64) {
	c.mu.Lock()
	if c.overlaySeq != seq {
		c.mu.Unlock()
		return
	}
	c.overlay = nil
	c.overlayTimer = nil
	c.mu.Unlock()
	c.notify(domain.CaptureNotification{Type: domain.CaptureEventOverlay})
}

// PreviewFrame is the latest frame with the active overlay drawn on it.
func (c *Controller) PreviewFrame() ([]byte, error) {
	c.mu.Lock()
	overlay := append([]domain.OverlayBox(nil), c.overlay...)
	c.mu.Unlock()
	return c.encodeCurrent(EncodeOptions{Quality: c.opts.ResultImageQuality, Overlay: overlay})
}

func (c *Controller) UpdateSettings(s domain.CaptureSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
	return nil
}

func (c *Controller) SetMode(mode domain.DetectionMode) {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
}

func (c *Controller) Mode() domain.DetectionMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) Settings() domain.CaptureSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

func (c *Controller) State() domain.ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Stats() domain.SessionStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// History returns the session results, newest first.
func (c *Controller) History() []domain.SessionResult {
	return c.history.Newest(0)
}

func (c *Controller) Snapshot() domain.CaptureSnapshot {
	c.mu.Lock()
	snap := domain.CaptureSnapshot{
		SessionID:  c.sessionID,
		State:      c.state,
		Mode:       c.mode,
		Settings:   c.settings,
		Statistics: c.stats,
		Overlay:    append([]domain.OverlayBox(nil), c.overlay...),
		LastStatus: c.lastStatus,
		TakenAt:    c.clock.Now(),
	}
	if c.state != domain.StateIdle {
		started := c.startedAt
		snap.StartedAt = &started
	}
	c.mu.Unlock()
	snap.History = c.history.Newest(0)
	return snap
}

func (c *Controller) notify(n domain.CaptureNotification) {
	if c.opts.Notifier == nil {
		return
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = c.clock.Now()
	}
	if n.SessionID == "" {
		n.SessionID = c.SessionID()
	}
	c.opts.Notifier.Notify(n)
}

func (c *Controller) publishState(state domain.ControllerState) {
	c.notify(domain.CaptureNotification{Type: domain.CaptureEventState, State: state})
}

func (c *Controller) publishStatus(level domain.NotificationLevel, msg string) {
	c.notify(domain.CaptureNotification{Type: domain.CaptureEventStatus, Level: level, Message: msg})
}

func (c *Controller) publishNotification(level domain.NotificationLevel, msg string) {
	c.notify(domain.CaptureNotification{Type: domain.CaptureEventNotification, Level: level, Message: msg})
}
