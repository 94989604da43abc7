package render

import (
	"sync"
	"time"
)

// Playback is the media element the renderer follows.
type Playback interface {
	// CurrentTime is the position in seconds from the start of the media.
	CurrentTime() float64
	// Duration is the media length in seconds; 0 until known.
	Duration() float64
	// VideoSize is the intrinsic frame size; 0x0 until known.
	VideoSize() (width, height int)
}

// Player plays a finite recording against the wall clock.
type Player struct {
	mu       sync.Mutex
	duration float64
	width    int
	height   int
	position float64
	playing  bool
	since    time.Time
	now      func() time.Time
}

func NewPlayer(duration float64, width, height int) *Player {
	return &Player{
		duration: duration,
		width:    width,
		height:   height,
		now:      time.Now,
	}
}

func (p *Player) positionLocked() float64 {
	pos := p.position
	if p.playing {
		pos += p.now().Sub(p.since).Seconds()
	}
	if pos > p.duration {
		pos = p.duration
	}
	if pos < 0 {
		pos = 0
	}
	return pos
}

func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return
	}
	p.playing = true
	p.since = p.now()
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = p.positionLocked()
	p.playing = false
}

// Seek moves to pos, clamped to [0, duration].
func (p *Player) Seek(pos float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = min(max(pos, 0), p.duration)
	p.since = p.now()
}

// Ended reports whether playback reached the end of the recording.
func (p *Player) Ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked() >= p.duration
}

func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *Player) Duration() float64 {
	return p.duration
}

func (p *Player) VideoSize() (int, int) {
	return p.width, p.height
}

// LivePlayer follows a live stream: the window always ends at the live edge.
type LivePlayer struct {
	window float64
	width  int
	height int
}

func NewLivePlayer(window float64, width, height int) *LivePlayer {
	return &LivePlayer{window: window, width: width, height: height}
}

func (p *LivePlayer) CurrentTime() float64 {
	return p.window
}

func (p *LivePlayer) Duration() float64 {
	return p.window
}

func (p *LivePlayer) VideoSize() (int, int) {
	return p.width, p.height
}
