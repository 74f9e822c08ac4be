// Package auditlog buffers admin and player actions and periodically posts
// them to a configured Discord channel, so the guild has a public trail of
// who changed what.
package auditlog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// maxMessageLen is Discord's hard limit on message content length.
const maxMessageLen = 2000

// DefaultFlushInterval is how often buffered entries are posted.
const DefaultFlushInterval = 30 * time.Second

// ChannelPoster is the slice of the Discord session the logger needs.
// *discordgo.Session satisfies it.
type ChannelPoster interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Logger buffers audit entries and flushes them on a fixed interval. Record
// never blocks on the network; all posting happens in Run. Safe for
// concurrent use.
type Logger struct {
	poster    ChannelPoster
	channelID string
	interval  time.Duration

	mu      sync.Mutex
	entries []string
}

// New creates a Logger posting to channelID. A non-positive interval falls
// back to [DefaultFlushInterval].
func New(poster ChannelPoster, channelID string, interval time.Duration) *Logger {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Logger{poster: poster, channelID: channelID, interval: interval}
}

// Record buffers one audit entry.
func (l *Logger) Record(actor, command, details string) {
	entry := fmt.Sprintf("`%s` <@%s> — %s: %s", time.Now().UTC().Format("15:04:05"), actor, command, details)

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Run flushes buffered entries on the configured interval until ctx is
// cancelled, then performs one final flush so nothing is lost on shutdown.
func (l *Logger) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Flush()
			return ctx.Err()
		case <-ticker.C:
			l.Flush()
		}
	}
}

// Flush posts all buffered entries now, splitting across messages to stay
// under Discord's length limit. Entries that fail to post are re-buffered.
func (l *Logger) Flush() {
	l.mu.Lock()
	entries := l.entries
	l.entries = nil
	l.mu.Unlock()

	if len(entries) == 0 {
		return
	}

	for _, c := range chunkEntries(entries) {
		if _, err := l.poster.ChannelMessageSend(l.channelID, c.text); err != nil {
			slog.Warn("auditlog: failed to post entries", "channel", l.channelID, "err", err)
			l.mu.Lock()
			l.entries = append(entries[c.start:], l.entries...)
			l.mu.Unlock()
			return
		}
	}
}

// chunk is one message worth of entries; start indexes the first entry it
// carries, so a failed post can re-buffer exactly the unposted tail.
type chunk struct {
	text  string
	start int
}

// chunkEntries joins entries into newline-separated messages, each under the
// Discord length limit. A single oversized entry is truncated rather than
// dropped.
func chunkEntries(entries []string) []chunk {
	var chunks []chunk
	var b strings.Builder
	start := 0
	for idx, entry := range entries {
		if len(entry) > maxMessageLen {
			entry = entry[:maxMessageLen-1] + "…"
		}
		if b.Len() > 0 && b.Len()+1+len(entry) > maxMessageLen {
			chunks = append(chunks, chunk{text: b.String(), start: start})
			b.Reset()
			start = idx
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(entry)
	}
	if b.Len() > 0 {
		chunks = append(chunks, chunk{text: b.String(), start: start})
	}
	return chunks
}
