package reporting

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// BufferAction defines what to do when the TUI buffer is full
type BufferAction int

const (
	BufferActionDrop BufferAction = iota
	BufferActionBlock
	BufferActionEvictOldest
)

// String makes BufferAction satisfy the fmt.Stringer interface
func (ba BufferAction) String() string {
	switch ba {
	case BufferActionDrop:
		return "Drop"
	case BufferActionBlock:
		return "Block"
	case BufferActionEvictOldest:
		return "EvictOldest"
	default:
		return "Unknown"
	}
}

// BufferStrategy decides the overflow action per message
type BufferStrategy interface {
	OnBufferFull(msg tea.Msg) BufferAction
}

// RunEventStrategy protects result-bearing events from loss: step events
// are display-only and may be dropped, everything else blocks until the
// TUI catches up.
type RunEventStrategy struct{}

// OnBufferFull implements BufferStrategy
func (RunEventStrategy) OnBufferFull(msg tea.Msg) BufferAction {
	if m, ok := msg.(RunEventMsg); ok {
		switch m.Event.Type() {
		case EventTypeStepStarted, EventTypeStepFinished:
			return BufferActionDrop
		default:
			return BufferActionBlock
		}
	}
	return BufferActionDrop
}

// ChannelStats is a snapshot of buffered channel activity
type ChannelStats struct {
	MessagesSent    int64
	MessagesDropped int64
	MessagesBlocked int64
	MessagesEvicted int64
	LastDropTime    time.Time
}

// BufferedChannel wraps a tea.Msg channel with configurable overflow
// behavior. All sends go through Send; the TUI consumes via Channel.
type BufferedChannel struct {
	ch       chan tea.Msg
	strategy BufferStrategy
	stats    ChannelStats
	mu       sync.Mutex
}

// NewBufferedChannel creates a buffered channel with the given strategy
func NewBufferedChannel(size int, strategy BufferStrategy) *BufferedChannel {
	return &BufferedChannel{
		ch:       make(chan tea.Msg, size),
		strategy: strategy,
	}
}

// Send attempts to send a message using the configured overflow strategy.
// It reports whether the message was delivered.
func (bc *BufferedChannel) Send(msg tea.Msg) bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	select {
	case bc.ch <- msg:
		bc.stats.MessagesSent++
		return true
	default:
	}

	switch bc.strategy.OnBufferFull(msg) {
	case BufferActionBlock:
		bc.stats.MessagesBlocked++
		bc.ch <- msg
		bc.stats.MessagesSent++
		return true
	case BufferActionEvictOldest:
		select {
		case <-bc.ch:
			bc.stats.MessagesEvicted++
		default:
		}
		bc.ch <- msg
		bc.stats.MessagesSent++
		return true
	default:
		bc.stats.MessagesDropped++
		bc.stats.LastDropTime = time.Now()
		return false
	}
}

// TryReceive attempts to receive a message without blocking
func (bc *BufferedChannel) TryReceive() (tea.Msg, bool) {
	select {
	case msg := <-bc.ch:
		return msg, true
	default:
		return nil, false
	}
}

// Stats returns a snapshot of the channel metrics
func (bc *BufferedChannel) Stats() ChannelStats {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.stats
}

// Channel returns the underlying channel for the TUI message loop
func (bc *BufferedChannel) Channel() <-chan tea.Msg {
	return bc.ch
}

// Close closes the underlying channel
func (bc *BufferedChannel) Close() {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	close(bc.ch)
}
