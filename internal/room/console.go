package room

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

// Console is a Conn that reads utterances line by line from r. It is the
// room used by `duet run --console`.
type Console struct {
	Static
	lines chan string
	done  chan struct{}
	once  sync.Once
}

// NewConsole starts reading lines from r. Blank lines are skipped and the
// utterance channel closes at EOF.
func NewConsole(name string, r io.Reader, participants ...Participant) *Console {
	c := &Console{
		Static: Static{RoomName: name, Participants: participants},
		lines:  make(chan string),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(c.lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			select {
			case c.lines <- line:
			case <-c.done:
				return
			}
		}
	}()
	return c
}

// Utterances yields the lines read so far.
func (c *Console) Utterances() <-chan string { return c.lines }

// Close stops delivering lines. The underlying reader is not closed.
func (c *Console) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
