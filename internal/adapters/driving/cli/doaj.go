package cli

import (
	"github.com/spf13/cobra"
)

var doajCmd = &cobra.Command{
	Use:   "doaj",
	Short: "Operate on the DOAJ index",
	Long: `Groups the DOAJ verbs: export, update, get and delete. Every verb
is restricted to journals named in the ISSN allow-list file.`,
}

func init() {
	rootCmd.AddCommand(doajCmd)
}
