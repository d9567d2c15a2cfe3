package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-recall/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "retrieve [tags...]",
		Short: "Recall memories relevant to a set of query tags",
		Long:  "Expand the query tags through the association graph, scan every retrieval tier and print the resulting context block.",
		Run:   runRetrieve,
	}

	cmd.Flags().StringP("tags", "t", "", "Comma-separated query tags")

	RootCmd.AddCommand(cmd)
}

type hitJSON struct {
	Summary   string  `json:"summary"`
	Tier      string  `json:"tier"`
	Weight    float64 `json:"weight"`
	Emergency bool    `json:"emergency,omitempty"`
}

type retrieveJSON struct {
	Query   []string  `json:"query"`
	Hits    []hitJSON `json:"hits"`
	Context []string  `json:"context"`
}

func toRetrieveJSON(res memory.Result) retrieveJSON {
	out := retrieveJSON{Query: res.Query, Hits: []hitJSON{}, Context: res.Lines}
	for _, h := range res.Hits {
		out.Hits = append(out.Hits, hitJSON{
			Summary:   h.Entry.Summary,
			Tier:      h.Level.String(),
			Weight:    h.Weight,
			Emergency: h.Emergency,
		})
	}
	if out.Query == nil {
		out.Query = []string{}
	}
	if out.Context == nil {
		out.Context = []string{}
	}
	return out
}

func runRetrieve(cmd *cobra.Command, args []string) {
	tags := tagArgs(cmd, args)

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open memory", err)
	}
	defer a.close()

	res := a.mem.RetrieveRanked(tags)
	printResult(res)
}

func printResult(res memory.Result) {
	if formatFlag == "text" {
		if len(res.Lines) > 0 {
			fmt.Println(strings.Join(res.Lines, "\n"))
		}
		return
	}
	b, _ := json.MarshalIndent(toRetrieveJSON(res), "", "  ")
	fmt.Println(string(b))
}
