// Package chat runs the natural-language product assistant in the terminal.
package chat

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fmcg-dev/fmcg/internal/cli/client"
	"github.com/fmcg-dev/fmcg/internal/cli/render"
	"github.com/fmcg-dev/fmcg/internal/types"
)

const errorReply = "Sorry, I encountered an error processing your question. Please try again."

// Examples are offered by /examples and can be sent with /example N
var Examples = []string{
	"Show me all products from Coca Cola",
	"What are the low confidence items?",
	"Which products were merged the most?",
	"Show me products with more than 5 merged documents",
	"List all brands in the database",
}

// Asker is the API surface the assistant needs
type Asker interface {
	ChatbotQuery(ctx context.Context, question, sessionID string) (*types.ChatResult, error)
}

// NewSessionID returns a fresh conversation id
func NewSessionID() string {
	return "session_" + uuid.NewString()
}

// Session is one conversation with the assistant
type Session struct {
	api      Asker
	id       string
	out      io.Writer
	log      zerolog.Logger
	width    int
	markdown bool

	last *types.ChatResult
}

// Option configures a Session
type Option func(*Session)

func WithLogger(log zerolog.Logger) Option { return func(s *Session) { s.log = log } }

// WithPlainText disables markdown rendering of answers
func WithPlainText() Option { return func(s *Session) { s.markdown = false } }

func WithSessionID(id string) Option { return func(s *Session) { s.id = id } }

// New starts a conversation writing to out
func New(api Asker, out io.Writer, opts ...Option) *Session {
	s := &Session{
		api:      api,
		id:       NewSessionID(),
		out:      out,
		log:      zerolog.Nop(),
		width:    80,
		markdown: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the conversation id sent with every question
func (s *Session) ID() string { return s.id }

// Last returns the most recent answer, or nil
func (s *Session) Last() *types.ChatResult { return s.last }

// Ask sends one question and prints the answer. Backend failures are shown
// as an apology and returned; cancellation is returned silently.
func (s *Session) Ask(ctx context.Context, question string) (*types.ChatResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil
	}

	result, err := s.api.ChatbotQuery(ctx, question, s.id)
	if err != nil {
		if client.IsCanceled(err) {
			return nil, err
		}
		s.log.Warn().Err(err).Str("session_id", s.id).Msg("chatbot query failed")
		fmt.Fprintln(s.out, render.Error(errorReply))
		return nil, err
	}

	s.last = result
	s.print(result)
	return result, nil
}

func (s *Session) print(r *types.ChatResult) {
	if s.markdown {
		fmt.Fprint(s.out, render.Markdown(r.Answer, s.width))
	} else {
		fmt.Fprintln(s.out, r.Answer)
	}
	if len(r.Data) > 0 {
		fmt.Fprintln(s.out)
		render.Rows(s.out, r.Data)
		fmt.Fprintln(s.out, render.Muted(fmt.Sprintf("%d result(s). /export <file> saves them as CSV.", r.ResultCount)))
	}
	if r.Explanation != "" {
		fmt.Fprintln(s.out, render.Muted(r.Explanation))
	}
}

// Run reads questions from in until EOF, /exit or ctx is done. Cancelling
// ctx ends the loop even while it waits for input.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.out, render.Title("AI Product Assistant"))
	fmt.Fprintln(s.out, render.Muted("Ask anything about your product data. /help lists commands."))

	done := make(chan struct{})
	defer close(done)
	lines, readErr := readLines(in, done)

	for {
		fmt.Fprint(s.out, "> ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case text, ok := <-lines:
			if !ok {
				fmt.Fprintln(s.out)
				return <-readErr
			}
			line = strings.TrimSpace(text)
		}

		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := s.command(ctx, line)
			if err != nil {
				fmt.Fprintln(s.out, render.Error(err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}

		if _, err := s.Ask(ctx, line); err != nil && client.IsCanceled(err) {
			return nil
		}
	}
}

// readLines scans in on its own goroutine so the caller can stop waiting.
// A read blocked on a terminal stays parked until the next line or exit.
func readLines(in io.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	return lines, readErr
}

func (s *Session) command(ctx context.Context, line string) (quit bool, err error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/exit", "/quit":
		return true, nil
	case "/help":
		fmt.Fprintln(s.out, "/examples          list example questions")
		fmt.Fprintln(s.out, "/example <n>       ask example question n")
		fmt.Fprintln(s.out, "/export <file>     save the last result rows as CSV")
		fmt.Fprintln(s.out, "/new               start a new conversation")
		fmt.Fprintln(s.out, "/exit              leave the assistant")
	case "/examples":
		for i, q := range Examples {
			fmt.Fprintf(s.out, "%d. %s\n", i+1, q)
		}
	case "/example":
		n, convErr := strconv.Atoi(arg)
		if convErr != nil || n < 1 || n > len(Examples) {
			return false, fmt.Errorf("pick an example between 1 and %d", len(Examples))
		}
		fmt.Fprintf(s.out, "> %s\n", Examples[n-1])
		if _, err := s.Ask(ctx, Examples[n-1]); err != nil && client.IsCanceled(err) {
			return true, nil
		}
	case "/export":
		if arg == "" {
			arg = "chatbot_data.csv"
		}
		if err := s.Export(arg); err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, render.Success("Saved "+arg))
	case "/new":
		s.id = NewSessionID()
		s.last = nil
		fmt.Fprintln(s.out, render.Muted("New conversation started"))
	default:
		return false, fmt.Errorf("unknown command %s, try /help", name)
	}
	return false, nil
}

// ErrNoData is returned when there are no result rows to export
var ErrNoData = errors.New("no result rows to export")

// Export writes the last answer's rows to a CSV file
func (s *Session) Export(path string) error {
	if s.last == nil || len(s.last.Data) == 0 {
		return ErrNoData
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, s.last.Data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteCSV writes rows with a header of their sorted column names
func WriteCSV(w io.Writer, rows []map[string]any) error {
	columns := render.Columns(rows)
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, c := range columns {
			record[i] = render.Cell(row[c])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
