package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scieloorg/doaj-exporter/internal/adapters/driven/config/file"
	"github.com/scieloorg/doaj-exporter/internal/core/domain"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driving"
)

// dateLayout is the accepted format of --from-date and --until-date.
const dateLayout = "2006-01-02"

var verbDescriptions = map[domain.Verb]string{
	domain.VerbExport: "Export documents to the DOAJ index",
	domain.VerbUpdate: "Update previously exported documents",
	domain.VerbGet:    "Fetch exported documents from the DOAJ index",
	domain.VerbDelete: "Delete documents from the DOAJ index",
}

func init() {
	for _, verb := range []domain.Verb{
		domain.VerbExport, domain.VerbUpdate, domain.VerbGet, domain.VerbDelete,
	} {
		doajCmd.AddCommand(newVerbCommand(verb))
	}
}

// newVerbCommand builds one verb subcommand. The four verbs share their
// selection flags; only export and delete batch dispatches with --bulk.
func newVerbCommand(verb domain.Verb) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(verb),
		Short: verbDescriptions[verb],
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerb(cmd, verb)
		},
	}

	flags := cmd.Flags()
	flags.String("issns", "", "path to the ISSN allow-list file (required)")
	flags.String("config", "", "path to the settings file")
	flags.String("output", "", "path of the JSONL result file, \"-\" for stdout (required)")
	flags.String("collection", "", "source collection code")
	flags.String("pid", "", "operate on a single document")
	flags.String("pids", "", "path to a file listing one PID per line")
	flags.String("from-date", "", "select documents modified on or after this date (YYYY-MM-DD)")
	flags.String("until-date", "", "select documents modified on or before this date (YYYY-MM-DD)")
	flags.String("connection", "", "source transport: restful or thrift")
	flags.String("domain", "", "source service address")
	if verb == domain.VerbExport || verb == domain.VerbDelete {
		flags.Bool("bulk", false, "batch destination requests")
	}

	cobra.CheckErr(cmd.MarkFlagRequired("issns"))
	cobra.CheckErr(cmd.MarkFlagRequired("output"))
	return cmd
}

func runVerb(cmd *cobra.Command, verb domain.Verb) error {
	if buildEnvironment == nil {
		return errors.New("exporter service not configured")
	}

	flags := cmd.Flags()
	issnsPath, _ := flags.GetString("issns")
	configPath, _ := flags.GetString("config")
	outputPath, _ := flags.GetString("output")

	opts, err := runOptions(cmd, verb)
	if err != nil {
		return err
	}

	settings, err := file.LoadSettings(configPath)
	if err != nil {
		return err
	}
	// Transport flags win over the settings file.
	if connection, _ := flags.GetString("connection"); connection != "" {
		settings.Connection = domain.ConnectionKind(connection)
	}
	if domainAddr, _ := flags.GetString("domain"); domainAddr != "" {
		settings.Domain = domainAddr
	}

	issns, err := file.LoadISSNs(issnsPath)
	if err != nil {
		return err
	}

	env, err := buildEnvironment(settings, issns, outputPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := env.Cleanup(); cerr != nil {
			cmd.PrintErrf("cleanup: %v\n", cerr)
		}
	}()

	summary, err := env.Exporter.Run(cmd.Context(), verb, opts)
	if err != nil {
		return err
	}

	succeeded, failed, skipped := summary.Counts()
	cmd.Printf("Run %s: %d succeeded, %d failed, %d skipped\n",
		summary.RunID, succeeded, failed, skipped)

	if summary.HasFailures() {
		return fmt.Errorf("%d documents failed", failed)
	}
	return nil
}

// runOptions resolves and validates the selection flags.
func runOptions(cmd *cobra.Command, verb domain.Verb) (driving.RunOptions, error) {
	flags := cmd.Flags()

	var opts driving.RunOptions
	opts.Collection, _ = flags.GetString("collection")
	opts.PID, _ = flags.GetString("pid")
	if flags.Lookup("bulk") != nil {
		opts.Bulk, _ = flags.GetBool("bulk")
	}

	pidsPath, _ := flags.GetString("pids")
	if pidsPath != "" {
		pids, err := file.LoadPIDs(pidsPath)
		if err != nil {
			return opts, err
		}
		opts.PIDs = pids
	}

	var err error
	if opts.FromDate, err = parseDate(flags, "from-date"); err != nil {
		return opts, err
	}
	if opts.UntilDate, err = parseDate(flags, "until-date"); err != nil {
		return opts, err
	}

	// PID selection is meaningless without naming the collection it
	// belongs to.
	if (opts.PID != "" || len(opts.PIDs) > 0) && opts.Collection == "" {
		return opts, fmt.Errorf("%w: --collection is required with --pid or --pids", domain.ErrConfig)
	}

	// Update and delete may fall back to every previously exported
	// document; export and get have no such fallback.
	if verb == domain.VerbExport || verb == domain.VerbGet {
		if opts.PID == "" && len(opts.PIDs) == 0 && opts.FromDate == nil && opts.UntilDate == nil {
			return opts, fmt.Errorf("%w: %s requires at least one of --from-date, --until-date, --pid or --pids", domain.ErrConfig, verb)
		}
	}

	return opts, nil
}

func parseDate(flags interface{ GetString(string) (string, error) }, name string) (*time.Time, error) {
	value, _ := flags.GetString(name)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("%w: --%s must be YYYY-MM-DD, got %q", domain.ErrConfig, name, value)
	}
	return &parsed, nil
}
