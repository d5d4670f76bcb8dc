package services

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Camera acquisition failures are terminal for a scanner instance and are
// surfaced with a manual-entry fallback; they are never retried.
var (
	ErrCameraPermissionDenied = errors.New("camera access denied, please allow camera access in your browser settings")
	ErrCameraUnavailable      = errors.New("no camera found on this device")
)

// FrameSource is the camera media stream. It must be released on every
// exit path so the hardware handle is never leaked.
type FrameSource interface {
	// NextFrame blocks for the next frame. io.EOF-style errors end the loop.
	NextFrame() ([]byte, error)
	Close() error
}

// SymbolDecoder attempts to decode one frame. ok=false is a transient miss
// and is retried silently on the next frame.
type SymbolDecoder interface {
	Decode(frame []byte) (text string, ok bool)
}

// DecodeCandidate is a tentatively detected barcode awaiting confirmation.
type DecodeCandidate struct {
	Text        string
	FirstSeenAt time.Time
}

// Submission latch states. The timer path and the manual-confirm path race
// through one compare-and-set, so the candidate is submitted at most once.
const (
	latchIdle int32 = iota
	latchConfirming
	latchSubmitted
)

const defaultConfirmDelay = 1500 * time.Millisecond

// ScanSession owns the decode-confirmation protocol for one capture view:
// the first decode becomes the active candidate, later decodes are ignored,
// and after the confirmation delay the candidate is auto-submitted unless
// the user confirmed earlier or rescanned.
type ScanSession struct {
	mu           sync.Mutex
	latch        atomic.Int32
	busy         atomic.Bool
	candidate    *DecodeCandidate
	timer        *time.Timer
	confirmDelay time.Duration
	submit       func(barcode string)
	now          func() time.Time
}

func NewScanSession(submit func(barcode string)) *ScanSession {
	return &ScanSession{
		confirmDelay: defaultConfirmDelay,
		submit:       submit,
		now:          time.Now,
	}
}

// OnDecode feeds one successful frame decode. It reports whether the text
// was promoted to the active candidate.
func (s *ScanSession) OnDecode(text string) bool {
	if text == "" || s.busy.Load() {
		return false
	}
	if !s.latch.CompareAndSwap(latchIdle, latchConfirming) {
		return false // a candidate is already active
	}

	s.mu.Lock()
	s.candidate = &DecodeCandidate{Text: text, FirstSeenAt: s.now()}
	s.timer = time.AfterFunc(s.confirmDelay, func() { s.fire(text) })
	s.mu.Unlock()
	return true
}

// Confirm submits the active candidate immediately, winning the race
// against the auto-confirm timer.
func (s *ScanSession) Confirm() bool {
	s.mu.Lock()
	cand := s.candidate
	s.mu.Unlock()
	if cand == nil {
		return false
	}
	return s.fire(cand.Text)
}

// fire is the single submission point for both trigger paths.
func (s *ScanSession) fire(text string) bool {
	if !s.latch.CompareAndSwap(latchConfirming, latchSubmitted) {
		return false
	}
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.submit(text)
	return true
}

// Rescan discards the candidate and re-arms detection. A pending
// auto-submit is cancelled; a later independent decode may submit again.
func (s *ScanSession) Rescan() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.candidate = nil
	s.mu.Unlock()
	s.latch.Store(latchIdle)
}

// Candidate returns the active candidate, if any.
func (s *ScanSession) Candidate() *DecodeCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.candidate
}

// SetBusy pauses detection entirely while an analysis request is in
// flight; only one resolution may be outstanding per session.
func (s *ScanSession) SetBusy(busy bool) { s.busy.Store(busy) }

func (s *ScanSession) Busy() bool { return s.busy.Load() }

// CameraScanner drives a ScanSession from a frame source. Permission and
// hardware failures from acquisition are passed through as-is.
type CameraScanner struct {
	source  FrameSource
	decoder SymbolDecoder
	session *ScanSession
	closed  atomic.Bool
}

func NewCameraScanner(source FrameSource, decoder SymbolDecoder, session *ScanSession) *CameraScanner {
	return &CameraScanner{source: source, decoder: decoder, session: session}
}

// Run pumps frames until the source ends or the scanner is closed.
// Transient decode misses are retried every frame with no error. The frame
// source is released on every exit path.
func (c *CameraScanner) Run() error {
	defer c.source.Close()

	for !c.closed.Load() {
		frame, err := c.source.NextFrame()
		if err != nil {
			return err
		}
		if text, ok := c.decoder.Decode(frame); ok {
			c.session.OnDecode(text)
		}
	}
	return nil
}

// Close tears down the camera stream immediately, regardless of in-flight
// decode state.
func (c *CameraScanner) Close() error {
	c.closed.Store(true)
	return c.source.Close()
}
