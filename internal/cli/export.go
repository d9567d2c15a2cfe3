package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-recall/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a conversation as JSON",
		Long:  "Export the entries and tag index of the conversation selected with -c as JSON.",
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open memory", err)
	}
	defer a.close()

	if err := store.WriteJSON(os.Stdout, a.mem.Snapshot()); err != nil {
		a.fail("export", err)
	}
}
