// Package prompt asks the user questions on a terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNoInput is returned when the input ends before an answer is given.
var ErrNoInput = errors.New("no input")

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Prompter reads answers line by line from one reader.
type Prompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// New creates a Prompter. Use os.Stdin and os.Stdout for normal operation,
// or buffers for testing.
func New(reader io.Reader, writer io.Writer) *Prompter {
	return &Prompter{
		reader: bufio.NewReader(reader),
		writer: writer,
	}
}

// Ask prints question with its default and returns the trimmed answer, or
// def when the answer is empty.
func (p *Prompter) Ask(question, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.writer, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(p.writer, "%s: ", question)
	}

	answer, err := p.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// AskList is Ask for a comma-separated list. Empty items are dropped; "-"
// answers with an empty list.
func (p *Prompter) AskList(question string, def []string) ([]string, error) {
	answer, err := p.Ask(question, strings.Join(def, ", "))
	if err != nil {
		return nil, err
	}
	if answer == "-" {
		return nil, nil
	}

	var items []string
	for _, item := range strings.Split(answer, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items, nil
}

// Confirm asks a yes/no question. An empty answer returns def; anything
// other than y, yes, n or no is asked again.
func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	options := "y/N"
	if def {
		options = "Y/n"
	}
	for {
		fmt.Fprintf(p.writer, "%s (%s): ", question, options)
		answer, err := p.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintf(p.writer, "Please answer y or n.\n")
	}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
