package chat

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Typing pace of the simulated stream.
const (
	wordDelay   = 20 * time.Millisecond
	numberDelay = 40 * time.Millisecond
)

// Chunk is one step of the simulated typing stream.
type Chunk struct {
	Text  string        `json:"text"`
	Delay time.Duration `json:"-"`
}

var wordRe = regexp.MustCompile(`\S+\s*`)

// Chunks splits an answer into words, each carrying its trailing
// whitespace so line breaks survive. Numbers and markdown markers are paced
// slower. Concatenating every Text gives back the answer without its
// leading whitespace.
func Chunks(text string) []Chunk {
	words := wordRe.FindAllString(text, -1)
	out := make([]Chunk, 0, len(words))
	for _, w := range words {
		d := wordDelay
		if slowWord(strings.TrimSpace(w)) {
			d = numberDelay
		}
		out = append(out, Chunk{Text: w, Delay: d})
	}
	return out
}

func slowWord(w string) bool {
	switch w {
	case "|", "**", "-", "•":
		return true
	}
	return strings.IndexFunc(w, unicode.IsDigit) >= 0
}

// Replay emits chunks at their pace until done or ctx is cancelled.
func Replay(ctx context.Context, chunks []Chunk, emit func(Chunk) error) error {
	for _, c := range chunks {
		if err := emit(c); err != nil {
			return err
		}
		if c.Delay <= 0 {
			continue
		}
		t := time.NewTimer(c.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}
