package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "related [tags...]",
		Short: "Show tags associated with the given tags",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRelated,
	}

	RootCmd.AddCommand(cmd)
}

func runRelated(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open memory", err)
	}
	defer a.close()

	related := a.mem.Related(tagArgs(cmd, args))
	if len(related) == 0 {
		fmt.Println("[]")
		return
	}
	if formatFlag == "text" {
		for _, r := range related {
			fmt.Printf("%s\t%.2f\n", r.Tag, r.Score)
		}
		return
	}

	type relatedJSON struct {
		Tag   string  `json:"tag"`
		Score float64 `json:"score"`
	}
	out := make([]relatedJSON, len(related))
	for i, r := range related {
		out[i] = relatedJSON{Tag: r.Tag, Score: r.Score}
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
