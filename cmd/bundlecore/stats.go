package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

var statsQuery string

// statsCmd queries a stats.json file written by `bundlecore build --stats`,
// the same gjson.GetBytes path-query shape bennypowers-cem's manifest
// traversal engine uses against its own generated JSON.
var statsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Query a build's stats.json with a gjson path",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsQuery, "query", "", "gjson path, e.g. assets.#.filename")
}

func runStats(_ *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	if statsQuery == "" {
		fmt.Println(string(data))
		return nil
	}

	result := gjson.GetBytes(data, statsQuery)
	if !result.Exists() {
		return fmt.Errorf("no match for query %q", statsQuery)
	}
	fmt.Println(result.String())
	return nil
}
