package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-recall/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show conversation statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

type statsJSON struct {
	Conversation string `json:"conversation"`
	Snapshot     string `json:"snapshot"`
	SizeBytes    int64  `json:"size_bytes"`
	memory.Stats
}

func runStats(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open memory", err)
	}
	defer a.close()

	out := statsJSON{
		Conversation: a.id,
		Snapshot:     a.registry.Path(a.id),
		Stats:        a.mem.Stats(),
	}
	if info, err := os.Stat(out.Snapshot); err == nil {
		out.SizeBytes = info.Size()
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
