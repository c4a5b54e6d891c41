// Package chat is an interactive terminal client for the HTTP API.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"

	"github.com/alexSpace56/data-navigator/internal/answer"
	"github.com/alexSpace56/data-navigator/internal/errors"
	"github.com/alexSpace56/data-navigator/internal/logging"
)

const (
	Greeting = "Hi! I can help you find tables, columns and business logic in the database. Ask me anything."
	prompt   = "> "
	helpText = `Commands:
  /reindex [clear]  rebuild the server's index
  /history          list the conversation
  /delete N         hide message N from the history
  /show N           show the description of result N of the last answer
  /help             show this help
  /quit             leave`
)

// Spinner shows progress while the API works
type Spinner interface {
	Start()
	Stop()
}

type spinnerFactory func(suffix string) Spinner

// NewTerminalSpinner renders a spinner to w
func NewTerminalSpinner(w io.Writer) func(string) Spinner {
	return func(suffix string) Spinner {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
		s.Suffix = " " + suffix

		return s
	}
}

type noopSpinner struct{}

func (noopSpinner) Start() {}
func (noopSpinner) Stop()  {}

// Session owns one conversation
type Session struct {
	api        API
	history    *History
	out        io.Writer
	newSpinner spinnerFactory
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithSpinner sets the progress indicator factory
func WithSpinner(fn func(suffix string) Spinner) SessionOption {
	return func(s *Session) {
		s.newSpinner = fn
	}
}

// NewSession creates a session writing to out; spinners are disabled by default
func NewSession(api API, out io.Writer, opts ...SessionOption) *Session {
	s := &Session{
		api:        api,
		history:    NewHistory(),
		out:        out,
		newSpinner: func(string) Spinner { return noopSpinner{} },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// History exposes the conversation
func (s *Session) History() *History {
	return s.history
}

// Run reads lines from in until EOF, /quit or ctx cancellation
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	s.say(s.history.Append(RoleAssistant, Greeting, nil).Text)

	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(s.out, prompt)

		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		if ctx.Err() != nil {
			return nil
		}

		quit, err := s.Handle(ctx, scanner.Text())
		if err != nil {
			s.say("Error: " + errors.UserMessage(err))
			logging.WithError(err).Debug("Chat command failed")
		}

		if quit {
			return nil
		}
	}
}

// Handle processes one line of input and reports whether the session should end
func (s *Session) Handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	if !strings.HasPrefix(line, "/") {
		return false, s.ask(ctx, line)
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		s.say(helpText)
	case "/history":
		s.printHistory()
	case "/delete":
		return false, s.deleteMessage(arg)
	case "/show":
		return false, s.showResult(arg)
	case "/reindex":
		return false, s.reindex(ctx, arg == "clear")
	default:
		s.say(fmt.Sprintf("Unknown command %s. Type /help for the list.", command))
	}

	return false, nil
}

func (s *Session) ask(ctx context.Context, question string) error {
	s.history.Append(RoleUser, question, nil)

	sp := s.newSpinner("Searching...")
	sp.Start()
	resp, err := s.api.Query(ctx, question)
	sp.Stop()

	if err != nil {
		return err
	}

	msg := s.history.Append(RoleAssistant, resp.Answer, resp.Results)

	s.say(msg.Text)

	for i, item := range msg.Results {
		fmt.Fprintf(s.out, "  [%d] %s\n", i+1, Title(item))
	}

	return nil
}

func (s *Session) reindex(ctx context.Context, clear bool) error {
	sp := s.newSpinner("Indexing...")
	sp.Start()
	resp, err := s.api.Reindex(ctx, clear)
	sp.Stop()

	if err != nil {
		return err
	}

	s.say(resp.Message)

	return nil
}

func (s *Session) printHistory() {
	visible := s.history.Visible()
	if len(visible) == 0 {
		s.say("History is empty.")
		return
	}

	for i, m := range visible {
		fmt.Fprintf(s.out, "%d. [%s] %s\n", i+1, m.Role, firstLine(m.Text))
	}
}

func (s *Session) deleteMessage(arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return errors.Newf(errors.ErrTypeValidation, "usage: /delete N (got %q)", arg)
	}

	msg, err := s.history.Delete(n)
	if err != nil {
		return err
	}

	s.say(fmt.Sprintf("Deleted message %d: %s", n, firstLine(msg.Text)))

	return nil
}

func (s *Session) showResult(arg string) error {
	last, ok := s.history.LastAnswer()
	if !ok {
		return errors.New(errors.ErrTypeValidation, "no results to show yet")
	}

	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(last.Results) {
		return errors.Newf(errors.ErrTypeValidation, "usage: /show N with N between 1 and %d", len(last.Results))
	}

	item := last.Results[n-1]
	s.say(fmt.Sprintf("%s\n%s", Title(item), item.Description))

	return nil
}

func (s *Session) say(text string) {
	fmt.Fprintln(s.out, text)
}

// Title is the one-line heading of a result, e.g. "Column: wells.depth"
func Title(item answer.ContextItem) string {
	kind := item.Type
	if kind != "" {
		kind = strings.ToUpper(kind[:1]) + kind[1:]
	}

	switch {
	case item.ColumnName != "" && item.TableName != "":
		return kind + ": " + item.TableName + "." + item.ColumnName
	case item.TableName != "" && item.TableName != item.Name:
		return kind + ": " + item.Name + " (" + item.TableName + ")"
	default:
		return kind + ": " + item.Name
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
