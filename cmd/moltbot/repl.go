package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"moltbot/internal/bot"
)

const replPrompt = "🦞 > "

// lineInput reads one line of user input
type lineInput interface {
	ReadLine() (string, error)
	Close() error
}

type readlineInput struct {
	instance *readline.Instance
}

func (r *readlineInput) ReadLine() (string, error) { return r.instance.Readline() }
func (r *readlineInput) Close() error              { return r.instance.Close() }

// basicLineInput is used when stdin is not a terminal
type basicLineInput struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (b *basicLineInput) ReadLine() (string, error) {
	fmt.Fprint(b.out, replPrompt)
	if !b.scanner.Scan() {
		if err := b.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return b.scanner.Text(), nil
}

func (b *basicLineInput) Close() error { return nil }

func newLineInput(out io.Writer) lineInput {
	instance, err := readline.NewEx(&readline.Config{
		Prompt:            replPrompt,
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
	})
	if err != nil {
		log.Printf("⚠️  Interactive prompt unavailable (%v), reading plain lines", err)
		return &basicLineInput{scanner: bufio.NewScanner(os.Stdin), out: out}
	}
	return &readlineInput{instance: instance}
}

// runREPL feeds lines to the bot until exit, EOF, Ctrl-C or ctx is done
func runREPL(ctx context.Context, b *bot.Bot, out io.Writer) {
	input := newLineInput(out)
	defer input.Close()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		for {
			line, err := input.ReadLine()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintf(out, "Hi %s! Ask me to add tasks, set reminders, search or post to Moltbook. Type \"exit\" to quit.\n", b.Config().OwnerName)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return
		case err := <-readErr:
			if !errors.Is(err, io.EOF) && !errors.Is(err, readline.ErrInterrupt) {
				log.Printf("⚠️ Failed to read input: %v", err)
			}
			return
		case line := <-lines:
			text := strings.TrimSpace(line)
			switch strings.ToLower(text) {
			case "":
				continue
			case "exit", "quit":
				return
			case "help":
				fmt.Fprintln(out, `Try: "add task: finish report", "remind me to stretch", "search for pasta recipes", "post to moltbook", "summary"`)
				continue
			}
			fmt.Fprintln(out, b.Chat(ctx, text))
		}
	}
}
