package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/callbacks"
	"github.com/effective-security/mcpchat/chat"
	"github.com/effective-security/mcpchat/pkg/llmutils"
	"github.com/effective-security/mcpchat/store"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func newChatCmd(f *flags) *cobra.Command {
	var (
		query      string
		chatID     string
		verbose    bool
		transcript bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the model, interactively or with a single query",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(f)
			if err != nil {
				return err
			}
			defer a.Close()

			mode := callbacks.ModeDefault
			if verbose {
				mode = callbacks.ModeVerbose
			}
			s, err := a.newSession(ctx, cmd.ErrOrStderr(), mode, chatID, transcript)
			if err != nil {
				return err
			}

			if query != "" {
				return s.ask(ctx, cmd.OutOrStdout(), query)
			}
			return runInteractive(ctx, s, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Send a single query and exit")
	cmd.Flags().StringVar(&chatID, "session", "", "Resume the stored chat with this ID")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the model turns and tool outputs")
	cmd.Flags().BoolVar(&transcript, "transcript", false, "Print the transcript and stats of each query")
	return cmd
}

// session is a chat that is saved after each query, when a store is configured.
type session struct {
	chat  *chat.Chat
	store store.MessageStore
	// pad records the transcript of a query, printed to log
	pad *callbacks.Scratchpad
	log io.Writer
}

// ask runs one query and prints the answer.
// An interrupt cancels the query in flight, not the session.
func (s *session) ask(ctx context.Context, out io.Writer, query string) error {
	qctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	before := len(s.chat.History())
	answer, err := s.chat.Run(qctx, query)
	s.save(ctx, before)
	if s.pad != nil {
		_, transcript := s.pad.EndRun(s.chat.ID())
		_, _ = s.log.Write(transcript)
	}

	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.Canceled) {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
		return err
	}
	fmt.Fprintf(out, "\n%s\n", llmutils.EnsureEndsWithNewline(answer))
	return nil
}

// save stores the messages added since from.
func (s *session) save(ctx context.Context, from int) {
	if s.store == nil {
		return
	}
	added := s.chat.History()[from:]
	if err := s.store.Add(context.WithoutCancel(ctx), s.chat.ID(), added...); err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "save", "chat_id", s.chat.ID(), "err", err)
	}
}

func (s *session) reset(ctx context.Context) error {
	s.chat.Reset()
	if s.store == nil {
		return nil
	}
	return s.store.Reset(ctx, s.chat.ID())
}

// runInteractive reads queries from in until EOF or an exit command.
// Besides the exit commands, /reset clears the history and /history prints it.
func runInteractive(ctx context.Context, s *session, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Interactive mode, type 'exit' or Ctrl+D to quit")
	if s.store != nil {
		fmt.Fprintf(out, "Session: %s\n", s.chat.ID())
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "You: ")

		if !scanner.Scan() {
			fmt.Fprintln(out, "\nGoodbye!")
			return errors.WithStack(scanner.Err())
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case exitCommands[strings.ToLower(line)]:
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case line == "/reset":
			if err := s.reset(ctx); err != nil {
				fmt.Fprintf(out, "Error: %s\n", err.Error())
				continue
			}
			fmt.Fprintln(out, "History cleared.")
			continue
		case line == "/history":
			llmutils.PrintMessages(out, s.chat.History())
			continue
		}

		if err := s.ask(ctx, out, line); err != nil {
			if ctx.Err() != nil {
				return err
			}
			fmt.Fprintf(out, "Error: %s\n", err.Error())
		}
	}
}
