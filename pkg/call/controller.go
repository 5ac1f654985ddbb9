package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/pcm"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/transcode"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/bargein"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/bridge"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/fallback"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/jsontime"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/realtime"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/vad"
)

// Options configures New.
type Options struct {
	// Resolve picks the call profile. Required.
	Resolve Resolver

	// Prompter renders the apology and playback messages. Nil plays the
	// fallback tone instead.
	Prompter Prompter

	Logger *slog.Logger
}

// Controller runs one call. The worker goroutine (Run) reads the bridge and
// drives VAD and barge-in; a pump goroutine reads AI events and writes
// audio to the bridge. Both touch call state only under mu.
type Controller struct {
	br       *bridge.Bridge
	resolve  Resolver
	prompter Prompter
	log      atomic.Pointer[slog.Logger]
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	sess    Snapshot
	profile *Profile
	cfg     Config
	handle  *realtime.Handle
	in      *transcode.Inbound
	out     *transcode.Outbound
	seg     *vad.Segmenter
	gate    gate
	err     error
	closed  bool
	timers  []*time.Timer

	aiAudioSeen  bool
	lastAIAudio  time.Time
	playbackMark string
	markSeq      int

	// Wrap-up: once set, the call hangs up after the next answer.
	wrapUp         bool
	wrapReason     string
	toolResponseID string
	hangupMark     string
	hangupReason   string

	closeOnce sync.Once
	releases  atomic.Int32
	done      chan struct{}
}

// New creates a controller reading from br.
func New(br *bridge.Bridge, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		br:       br,
		resolve:  opts.Resolve,
		prompter: opts.Prompter,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		cfg:      Config{}.WithDefaults(),
		gate:     newGate(),
		done:     make(chan struct{}),
	}
	c.log.Store(logger)
	c.sess = Snapshot{Phase: PhaseRinging, Direction: "inbound", CreatedAt: jsontime.Milli(c.now())}
	return c
}

func (c *Controller) logger() *slog.Logger {
	return c.log.Load()
}

// Run processes the call until it ends. It returns the error that moved
// the call into PhaseError, or nil. Cancelling ctx ends the call.
func (c *Controller) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { c.Close(ReasonCanceled) })
	defer stop()
	c.work()
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Controller) work() {
	defer func() {
		if r := recover(); r != nil {
			c.logger().Error("call worker panic", "panic", r, "stack", string(debug.Stack()))
			c.fail(fmt.Errorf("call: worker panic: %v", r))
		}
	}()
	for {
		msg, err := c.br.Receive(c.ctx)
		if err != nil {
			c.Close(ReasonCanceled)
			return
		}
		switch msg.Kind {
		case bridge.KindStart:
			c.onStart(msg.Start)
		case bridge.KindMedia:
			c.onMedia(msg.Payload)
		case bridge.KindMark:
			c.onMark(msg.Mark)
		case bridge.KindStop:
			c.Close(ReasonHangup)
			return
		case bridge.KindEndOfStream:
			c.Close(ReasonStreamEnded)
			return
		}
	}
}

// Done is closed when the call has been torn down.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.Phase
}

// Snapshot returns a copy of the call state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	st := c.br.Stats()
	s.InboundDropped = st.InboundDropped
	s.OutboundDropped = st.OutboundDropped
	return s
}

// Releases returns how many times the teardown path ran. It is 1 after the
// call ended.
func (c *Controller) Releases() int {
	return int(c.releases.Load())
}

func (c *Controller) setPhaseLocked(p Phase) {
	if c.sess.Phase == p || c.sess.Phase.Terminal() {
		return
	}
	c.logger().Debug("phase", "from", c.sess.Phase, "to", p)
	c.sess.Phase = p
}

func (c *Controller) onStart(info *bridge.StartInfo) {
	c.mu.Lock()
	if c.sess.Phase != PhaseRinging {
		c.mu.Unlock()
		c.logger().Warn("duplicate stream start ignored", "stream_id", info.StreamSID)
		return
	}
	id := info.CallSID
	if id == "" {
		id = uuid.NewString()
	}
	c.sess.CallID = id
	c.sess.StreamID = info.StreamSID
	c.sess.AccountID = info.AccountSID
	if d := info.CustomParameters["direction"]; d != "" {
		c.sess.Direction = d
	}
	dir := c.sess.Direction
	logger := c.logger().With("call_id", id, "stream_id", info.StreamSID)
	c.log.Store(logger)
	c.br.SetLogger(logger)
	c.mu.Unlock()

	logger.Info("call started", "direction", dir, "encoding", info.MediaFormat.Encoding)

	if c.resolve == nil {
		c.fail(errors.New("call: no resolver"))
		return
	}
	profile, err := c.resolve(c.ctx, info)
	if err != nil {
		c.fail(fmt.Errorf("call: resolve profile: %w", err))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.profile = profile
	c.cfg = profile.Config.WithDefaults()
	c.sess.Tenant = profile.Tenant
	c.sess.Mode = profile.Mode
	c.sess.Voice = profile.Session.Voice
	c.timers = append(c.timers, time.AfterFunc(c.cfg.MaxCallDuration, func() {
		c.logger().Warn("call exceeded max duration", "max", c.cfg.MaxCallDuration)
		c.Close(ReasonWatchdog)
	}))

	if profile.Mode == ModePlayback {
		c.setPhaseLocked(PhaseSpeaking)
		c.mu.Unlock()
		go c.playPrompt(profile.Playback, ReasonPlaybackDone)
		return
	}
	if profile.Client == nil {
		c.mu.Unlock()
		c.fail(errors.New("call: no realtime client configured"))
		return
	}
	formats := profile.Client.Provider().Formats()
	c.sess.Provider = profile.Client.Provider().Name()
	if c.in, err = transcode.NewInbound(formats.Input, logger); err == nil {
		c.out, err = transcode.NewOutbound(formats.Output, logger)
	}
	if err != nil {
		c.mu.Unlock()
		c.fail(err)
		return
	}
	c.seg = vad.New(c.cfg.VAD)
	c.setPhaseLocked(PhaseGreeting)
	c.mu.Unlock()

	go c.pump()
}

func (c *Controller) onMedia(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seg == nil || c.closed || c.sess.Phase.Terminal() {
		return
	}
	c.sess.InboundFrames++
	fr, err := c.in.Decode(payload)
	if err != nil {
		c.logger().Warn("inbound frame dropped", "error", err)
		return
	}
	res := c.seg.Process(fr)
	if c.hangupMark != "" {
		return
	}
	pending := c.playbackPendingLocked()
	if res.Speech && (c.sess.Phase == PhaseSpeaking || pending) {
		d := c.cfg.BargeIn.Classify(bargein.Input{
			AIAudioSeen:      c.aiAudioSeen,
			SinceLastAIAudio: c.now().Sub(c.lastAIAudio),
			PlaybackPending:  pending,
			Speech:           res.SpeechRun,
		})
		if d.Verified {
			c.bargeInLocked(d, res.SpeechRun)
		}
	}
	if u := res.Discarded; u != nil {
		c.logger().Debug("utterance too short, discarded", "voiced", u.Voiced)
	}
	if u := res.Utterance; u != nil {
		c.onUtteranceLocked(u)
	}
}

// playbackPendingLocked reports whether AI audio may still be playing on
// the line: a reply mark is not yet echoed or media is still queued.
func (c *Controller) playbackPendingLocked() bool {
	return c.playbackMark != "" || c.br.OutboundPending() > 0
}

func (c *Controller) bargeInLocked(d bargein.Decision, speech time.Duration) {
	st := c.gate.cancel()
	if st != nil && c.handle != nil {
		if err := c.handle.CancelResponse(st.ID); err != nil {
			c.logger().Warn("cancel response", "response_id", st.ID, "error", err)
		}
	}
	cleared := c.br.ClearOutbound()
	c.out.Reset()
	c.playbackMark = ""
	c.sess.BargeIns++
	c.setPhaseLocked(PhaseListening)
	c.logger().Info("barge-in",
		"reason", d.Reason,
		"speech", speech,
		"since_ai_audio", c.now().Sub(c.lastAIAudio),
		"cleared_frames", cleared)
}

func (c *Controller) onUtteranceLocked(u *vad.Utterance) {
	switch c.sess.Phase {
	case PhaseGreeting, PhaseListening, PhaseThinking:
	case PhaseSpeaking:
		c.sess.EchoUtterances++
		c.logger().Debug("utterance during playback discarded as echo", "duration", u.Duration)
		return
	default:
		return
	}
	if c.playbackPendingLocked() {
		// A verified barge-in clears the pending playback, so this is echo.
		c.sess.EchoUtterances++
		c.logger().Debug("utterance during pending playback discarded as echo",
			"duration", u.Duration, "mark", c.playbackMark)
		return
	}
	if c.handle == nil {
		c.logger().Warn("utterance dropped, AI not connected", "duration", u.Duration)
		return
	}
	audio, err := c.in.ToVendor(u.Audio)
	if err != nil {
		c.logger().Warn("utterance dropped", "error", err)
		return
	}
	c.sess.Turns++
	if c.sess.Turns >= c.cfg.MaxTurns && !c.wrapUp {
		c.wrapUp = true
		c.wrapReason = ReasonTurnCap
		text := c.profile.WrapUp
		if text == "" {
			text = DefaultWrapUp
		}
		if err := c.handle.SendText(text, false); err != nil {
			c.logger().Warn("send wrap-up instruction", "error", err)
		}
		c.logger().Info("turn cap reached, wrapping up", "turns", c.sess.Turns)
	}
	if err := c.handle.SendAudio(audio, true); err != nil {
		c.logger().Warn("send utterance", "error", err)
		return
	}
	c.setPhaseLocked(PhaseThinking)
	c.logger().Info("utterance forwarded",
		"turn", c.sess.Turns,
		"duration", u.Duration,
		"voiced", u.Voiced,
		"closed_by", u.Reason)
}

func (c *Controller) onMark(name string) {
	c.mu.Lock()
	if name == c.playbackMark {
		c.playbackMark = ""
	}
	hangup := name != "" && name == c.hangupMark
	reason := c.hangupReason
	c.mu.Unlock()
	if hangup {
		c.logger().Debug("final playback done", "mark", name)
		c.Close(reason)
	}
}

func (c *Controller) nextMarkLocked(prefix string) string {
	c.markSeq++
	return prefix + "-" + strconv.Itoa(c.markSeq)
}

func (c *Controller) sendLocked(m bridge.Message) {
	err := c.br.Send(m)
	switch {
	case err == nil:
		if m.Kind == bridge.KindMedia {
			c.sess.OutboundFrames++
		}
	case errors.Is(err, bridge.ErrOverflow):
		// Logged by the bridge and counted in its stats.
	default:
		c.logger().Debug("outbound send failed", "kind", m.Kind, "error", err)
	}
}

// scheduleHangupLocked queues a mark behind the audio already queued and
// closes the call when it is echoed or after HangupDrain.
func (c *Controller) scheduleHangupLocked(reason string) {
	if c.hangupMark != "" {
		return
	}
	c.hangupMark = c.nextMarkLocked("hangup")
	c.hangupReason = reason
	if err := c.br.Send(bridge.Mark(c.hangupMark)); err != nil {
		c.logger().Warn("queue hangup mark", "error", err)
	}
	c.timers = append(c.timers, time.AfterFunc(c.cfg.HangupDrain, func() { c.Close(reason) }))
	c.logger().Info("hanging up after playback", "reason", reason)
}

// pump connects the AI and feeds its events into the call, reconnecting a
// lost stream up to MaxReconnects times.
func (c *Controller) pump() {
	defer func() {
		if r := recover(); r != nil {
			c.logger().Error("call pump panic", "panic", r, "stack", string(debug.Stack()))
			c.fail(fmt.Errorf("call: pump panic: %v", r))
		}
	}()
	c.mu.Lock()
	client := c.profile.Client
	session := c.profile.Session
	c.mu.Unlock()
	if !hasTool(session.Tools, realtime.EndCallName) {
		session.Tools = append(session.Tools, realtime.EndCallTool())
	}

	for {
		h, err := client.Connect(c.ctx, session)
		if err != nil {
			c.fail(err)
			return
		}
		if !c.attach(h) {
			h.Disconnect("call ended")
			return
		}
		err = c.consume(h)
		if err == nil {
			return
		}

		c.mu.Lock()
		retry := !c.closed && !c.sess.Phase.Terminal() && c.sess.Reconnects < c.cfg.MaxReconnects
		if retry {
			c.sess.Reconnects++
		}
		if c.handle == h {
			c.handle = nil
		}
		c.mu.Unlock()
		h.Disconnect("stream lost")
		if !retry {
			c.fail(err)
			return
		}
		c.logger().Warn("AI stream lost, reconnecting", "error", err)
	}
}

func hasTool(tools []realtime.Tool, name string) bool {
	for _, t := range tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

// attach installs a fresh handle. The first one is greeted; after a
// reconnect the call resumes listening.
func (c *Controller) attach(h *realtime.Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.sess.Phase.Terminal() {
		return false
	}
	c.handle = h
	if c.sess.Reconnects > 0 {
		if c.gate.cancel() != nil {
			c.br.ClearOutbound()
			c.out.Reset()
		}
		c.setPhaseLocked(PhaseListening)
		return true
	}
	greeting := c.profile.Greeting
	if greeting == "" {
		greeting = DefaultGreeting
	}
	if err := h.SendText(greeting, true); err != nil {
		c.logger().Warn("send greeting", "error", err)
		c.setPhaseLocked(PhaseListening)
	}
	return true
}

// consume ranges over the handle's events. It returns nil when the call
// ended and the ErrConnect error when the stream was lost.
func (c *Controller) consume(h *realtime.Handle) error {
	for ev, err := range h.Events() {
		if err != nil {
			// Burst errors wrap both sentinels; ErrConnect wins.
			if errors.Is(err, realtime.ErrConnect) {
				return err
			}
			c.logger().Warn("AI event dropped", "error", err)
			continue
		}
		if !c.onEvent(h, ev) {
			return nil
		}
	}
	return nil
}

func (c *Controller) onEvent(h *realtime.Handle, ev *realtime.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.sess.Phase.Terminal() {
		return false
	}
	switch ev.Kind {
	case realtime.EventSetupComplete:
		c.logger().Debug("AI session ready")
	case realtime.EventAudio:
		c.playAudioLocked(h, ev)
	case realtime.EventText:
		c.logger().Debug("AI text", "response_id", ev.ResponseID, "text", ev.Text)
	case realtime.EventTurnComplete, realtime.EventInterrupted:
		c.endResponseLocked(ev)
	case realtime.EventFunctionCall:
		c.onFunctionCallLocked(h, ev)
	}
	return true
}

func (c *Controller) playAudioLocked(h *realtime.Handle, ev *realtime.Event) {
	if c.hangupMark != "" {
		c.sess.StaleAudio++
		return
	}
	st, fresh, superseded := c.gate.admit(ev.ResponseID)
	if st == nil {
		c.sess.StaleAudio++
		return
	}
	if fresh {
		if superseded != nil {
			c.logger().Info("response superseded", "old", superseded.ID, "new", st.ID)
			if err := h.CancelResponse(superseded.ID); err != nil {
				c.logger().Debug("cancel superseded response", "error", err)
			}
		}
		c.br.ClearOutbound()
		c.out.Reset()
		c.playbackMark = ""
		c.setPhaseLocked(PhaseSpeaking)
	}
	frames, err := c.out.Convert(ev.Format, ev.Audio)
	if err != nil {
		c.logger().Warn("AI audio dropped", "response_id", ev.ResponseID, "error", err)
		return
	}
	for _, f := range frames {
		c.sendLocked(bridge.Media(f))
	}
	if len(frames) > 0 {
		c.aiAudioSeen = true
		c.lastAIAudio = c.now()
	}
}

func (c *Controller) endResponseLocked(ev *realtime.Event) {
	if c.gate.isRetired(ev.ResponseID) {
		return
	}
	played := c.gate.finish(ev.ResponseID)
	if played {
		if tail := c.out.Flush(); len(tail) > 0 {
			for _, f := range tail {
				c.sendLocked(bridge.Media(f))
			}
			c.lastAIAudio = c.now()
		}
		if ev.Kind == realtime.EventInterrupted {
			c.br.ClearOutbound()
		} else {
			c.playbackMark = c.nextMarkLocked("reply")
			c.sendLocked(bridge.Mark(c.playbackMark))
		}
	}
	switch c.sess.Phase {
	case PhaseGreeting, PhaseThinking, PhaseSpeaking:
		c.setPhaseLocked(PhaseListening)
	}
	if !c.wrapUp {
		return
	}
	if !played && ev.ResponseID == c.toolResponseID {
		// The goodbye comes in the response to the function result.
		c.toolResponseID = ""
		return
	}
	c.scheduleHangupLocked(c.wrapReason)
}

func (c *Controller) onFunctionCallLocked(h *realtime.Handle, ev *realtime.Event) {
	fc := ev.Call
	if fc == nil {
		return
	}
	output := `{"ok":true}`
	switch fc.Name {
	case realtime.EndCallName:
		reason, _ := fc.Arguments["reason"].(string)
		c.logger().Info("AI requested hang-up", "reason", reason)
		if !c.wrapUp {
			c.wrapUp = true
			c.wrapReason = ReasonEndCall
			c.toolResponseID = ev.ResponseID
			c.timers = append(c.timers, time.AfterFunc(2*c.cfg.HangupDrain, func() { c.Close(ReasonEndCall) }))
		}
	default:
		c.logger().Warn("unknown function call", "name", fc.Name)
		output = `{"error":"unknown function"}`
	}
	if err := h.SendFunctionResult(fc.ID, fc.Name, output); err != nil {
		c.logger().Warn("send function result", "name", fc.Name, "error", err)
	}
}

// fail moves the call into PhaseError, drops the AI and plays the apology
// before hanging up.
func (c *Controller) fail(err error) {
	c.mu.Lock()
	if c.closed || c.sess.Phase == PhaseError {
		c.mu.Unlock()
		return
	}
	c.err = err
	c.sess.Error = err.Error()
	c.sess.Phase = PhaseError
	h := c.handle
	c.handle = nil
	c.gate.cancel()
	apology := DefaultApology
	if c.profile != nil && c.profile.Apology != "" {
		apology = c.profile.Apology
	}
	c.mu.Unlock()

	c.logger().Error("call failed, playing fallback", "error", err)
	if h != nil {
		h.Disconnect(ReasonError)
	}
	go c.playPrompt(apology, ReasonError)
}

// playPrompt renders text and plays it, then hangs up. A render failure
// falls back to the tone. Only the latest prompt plays.
func (c *Controller) playPrompt(text, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	st, _ := c.gate.begin("prompt-" + strconv.Itoa(c.gate.gen+1))
	voice := ""
	if c.profile != nil {
		voice = c.profile.Session.Voice
	}
	timeout := c.cfg.PromptTimeout
	tone := c.cfg.Tone
	c.mu.Unlock()

	var mu []byte
	if c.prompter != nil && text != "" {
		ctx, cancel := context.WithTimeout(c.ctx, timeout)
		var err error
		mu, err = c.prompter.Prompt(ctx, voice, text)
		cancel()
		if err != nil {
			c.logger().Warn("prompt unavailable, playing tone", "error", err)
			mu = nil
		}
	}
	if len(mu) == 0 {
		mu = fallback.Tone(tone)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.gate.current() != st {
		return
	}
	st.AudioStarted = true
	c.br.ClearOutbound()
	for _, f := range pcm.Split(mu, transcode.TelephonyFrameBytes) {
		c.sendLocked(bridge.Media(f))
	}
	c.scheduleHangupLocked(reason)
}

// Close ends the call. It is safe to call from any goroutine and any
// number of times; the first call tears everything down.
func (c *Controller) Close(reason string) {
	c.closeOnce.Do(func() {
		c.releases.Add(1)

		c.mu.Lock()
		c.closed = true
		c.setPhaseLocked(PhaseEnded)
		c.sess.EndReason = reason
		c.sess.EndedAt = jsontime.Milli(c.now())
		h := c.handle
		c.handle = nil
		timers := c.timers
		c.timers = nil
		if c.out != nil {
			c.out.Close()
		}
		snap := c.sess
		c.mu.Unlock()

		for _, t := range timers {
			t.Stop()
		}
		if h != nil {
			h.Disconnect(reason)
		}
		c.cancel()
		c.br.Stop()
		c.br.CloseOutbound()

		c.logger().Info("call ended",
			"reason", reason,
			"phase", snap.Phase,
			"turns", snap.Turns,
			"inbound_frames", snap.InboundFrames,
			"outbound_frames", snap.OutboundFrames,
			"outbound_dropped", c.br.Dropped())
		close(c.done)
	})
}
