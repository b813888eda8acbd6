package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// consoleCapture reads utterances line by line from stdin, standing in for
// a speech recognizer.
type consoleCapture struct {
	utterances chan string
	paused     atomic.Bool
	stopOnce   sync.Once
}

func newConsoleCapture() *consoleCapture {
	return &consoleCapture{utterances: make(chan string)}
}

func (c *consoleCapture) Start(ctx context.Context) error {
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" || c.paused.Load() {
				continue
			}
			select {
			case c.utterances <- line:
			case <-ctx.Done():
				return
			}
		}
		c.stopOnce.Do(func() { close(c.utterances) })
	}()
	return nil
}

func (c *consoleCapture) Stop() error {
	c.stopOnce.Do(func() { close(c.utterances) })
	return nil
}

func (c *consoleCapture) Utterances() <-chan string { return c.utterances }

func (c *consoleCapture) Pause()  { c.paused.Store(true) }
func (c *consoleCapture) Resume() { c.paused.Store(false) }

// consoleOutput prints engine speech to stdout, standing in for
// text-to-speech.
type consoleOutput struct{}

func newConsoleOutput() *consoleOutput { return &consoleOutput{} }

func (o *consoleOutput) Speak(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	fmt.Println(text)
}

func (o *consoleOutput) Interrupt() {}
