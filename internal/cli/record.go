package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-recall/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "record [summary]",
		Short: "Record a tagged summary",
		Long:  "Record a conversation summary. The summary can be a positional arg or piped via stdin. Without a DATETIME: tag the entry is stamped with the current time.",
		Run:   runRecord,
	}

	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().String("at", "", "Creation time (RFC3339 or YYYY-MM-DD HH:MM), overrides any DATETIME: tag")

	RootCmd.AddCommand(cmd)
}

type entryJSON struct {
	ID       string    `json:"id"`
	Summary  string    `json:"summary"`
	Keywords []string  `json:"keywords"`
	Tags     []string  `json:"tags"`
	Created  time.Time `json:"created"`
}

func toEntryJSON(e model.Entry) entryJSON {
	return entryJSON{ID: e.ID, Summary: e.Summary, Keywords: e.Keywords(), Tags: e.RawTags(), Created: e.Created}
}

func runRecord(cmd *cobra.Command, args []string) {
	tagsStr, _ := cmd.Flags().GetString("tags")
	atStr, _ := cmd.Flags().GetString("at")

	// Get summary: positional arg first, then check stdin
	var summary string
	if len(args) > 0 {
		summary = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			summary = string(b)
		}
	}
	if strings.TrimSpace(summary) == "" {
		exitErr("record", fmt.Errorf("summary is required (positional arg or stdin)"))
	}

	tags := splitTags(tagsStr)
	if atStr != "" {
		at, err := model.ParseTime(atStr)
		if err != nil {
			exitErr("parse --at", err)
		}
		kept := tags[:0]
		for _, t := range tags {
			if !strings.HasPrefix(t, model.DatetimePrefix) {
				kept = append(kept, t)
			}
		}
		tags = append(kept, model.Timestamp(at).String())
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open memory", err)
	}
	defer a.close()

	e, err := a.mem.Record(summary, tags)
	if err != nil {
		a.fail("record", err)
	}
	if err := a.save(cmd.Context()); err != nil {
		a.fail("save", err)
	}

	b, _ := json.Marshal(toEntryJSON(e))
	fmt.Println(string(b))
}
