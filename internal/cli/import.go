package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-recall/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import entries from JSON",
		Long:  "Import entries from JSON (file or stdin). Expects the format produced by export; entries whose id already exists are skipped.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var r io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open file", err)
		}
		defer f.Close()
		r = f
	}

	snap, err := store.ReadJSON(r)
	if err != nil {
		exitErr("import", err)
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open memory", err)
	}
	defer a.close()

	imported := a.mem.Import(snap.Records)
	if err := a.save(cmd.Context()); err != nil {
		a.fail("save", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}
