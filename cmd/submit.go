package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/stock-scan/internal/reconcile"
)

// submitSource tags codes submitted from the command line.
var submitSource string

var submitCmd = &cobra.Command{
	Use:   "submit [code...]",
	Short: "Reconcile codes without the scan screen",
	Long: `Reconciles each code against the expected set and prints the outcome.
Without arguments, codes are read one per line from standard input, so the
command can sit at the end of a pipe from any decoder:

  zbarcam --raw --nodisplay | stockscan submit --source camera`,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := parseSource(submitSource)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := openEnv(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		out := cmd.OutOrStdout()
		report := func(code string) {
			ev := env.session.Submit(ctx, code, source)
			if ev.Outcome == reconcile.Empty {
				return
			}
			fmt.Fprintf(out, "%s\t%s\n", ev.Code, ev.Outcome)
		}

		if len(args) > 0 {
			for _, code := range args {
				report(code)
			}
		} else {
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				if ctx.Err() != nil {
					break
				}
				report(scanner.Text())
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read codes: %w", err)
			}
		}

		p := env.session.Progress()
		fmt.Fprintf(out, "scanned %d, remaining %d of %d\n", p.Scanned, p.Remaining, p.Expected)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringVar(
		&submitSource,
		"source",
		string(reconcile.SourceManual),
		"Source tag recorded with each code (keyboard, camera, manual)",
	)
}

func parseSource(value string) (reconcile.Source, error) {
	switch s := reconcile.Source(strings.ToLower(strings.TrimSpace(value))); s {
	case reconcile.SourceKeyboard, reconcile.SourceCamera, reconcile.SourceManual:
		return s, nil
	}
	return "", fmt.Errorf("unknown source %q (want keyboard, camera or manual)", value)
}
