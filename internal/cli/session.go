package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/agent-recall/internal/config"
)

func init() {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Run a multi-turn session over stdin",
		Long: `Read one command per line from stdin and keep the session working set between turns.

  record <summary> | <tags>   record an entry
  memo <text> | <tags>        memoize the tags produced for text
  cache <text>                look up memoized tags
  reset                       clear the working set
  <tags>                      retrieve context for comma-separated tags

The snapshot is saved after every record and on exit.`,
		Run: runSession,
	}

	cmd.Flags().Bool("watch", false, "Reload the config file when it changes")

	RootCmd.AddCommand(cmd)
}

func runSession(cmd *cobra.Command, args []string) {
	watch, _ := cmd.Flags().GetBool("watch")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		exitErr("open memory", err)
	}

	reloads := make(chan *config.Config, 1)
	if watch {
		go func() {
			err := config.Watch(ctx, getConfigPath(), config.DefaultDebounce, a.log, func(cfg *config.Config) {
				select {
				case reloads <- cfg:
				case <-ctx.Done():
				}
			})
			if err != nil {
				a.log.Warn("config watch stopped", zap.Error(err))
			}
		}()
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := a.serve(ctx, os.Stdout, lines, reloads); err != nil {
		a.fail("save", err)
	}
	a.close()
}

// serve handles lines until they run out or ctx is done, then saves the
// conversation.
func (a *app) serve(ctx context.Context, w io.Writer, lines <-chan string, reloads <-chan *config.Config) error {
	for {
		select {
		case <-ctx.Done():
			return a.save(context.Background())
		case cfg := <-reloads:
			// Applied between turns so a turn never sees half a config.
			a.registry.Reconfigure(cfg)
		case line, ok := <-lines:
			if !ok {
				return a.save(context.Background())
			}
			if err := a.handleLine(ctx, w, line); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		}
	}
}

// splitPipe splits "left | right" into its trimmed halves.
func splitPipe(s string) (string, string) {
	left, right, _ := strings.Cut(s, "|")
	return strings.TrimSpace(left), strings.TrimSpace(right)
}

func (a *app) handleLine(ctx context.Context, w io.Writer, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	verb, rest, _ := strings.Cut(line, " ")
	switch verb {
	case "record":
		summary, tags := splitPipe(rest)
		e, err := a.mem.Record(summary, splitTags(tags))
		if err != nil {
			return fmt.Errorf("record: %w", err)
		}
		if err := a.save(ctx); err != nil {
			return err
		}
		fmt.Fprintf(w, "recorded %s\n", e.ID)
	case "memo":
		text, tags := splitPipe(rest)
		a.mem.CacheStore(text, splitTags(tags))
		fmt.Fprintln(w, "ok")
	case "cache":
		tags, ok := a.mem.CacheLookup(rest)
		if !ok {
			fmt.Fprintln(w, "miss")
			return nil
		}
		fmt.Fprintln(w, strings.Join(tags, ","))
	case "reset":
		a.mem.ResetSession()
		fmt.Fprintln(w, "ok")
	default:
		res := a.mem.RetrieveRanked(splitTags(line))
		for _, l := range res.Lines {
			fmt.Fprintln(w, l)
		}
		fmt.Fprintln(w)
	}
	return nil
}
