package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillkit-labs/skillkit/internal/audit"
	"github.com/skillkit-labs/skillkit/internal/paths"
)

var (
	auditTokens    bool
	auditDuplicity bool
	auditCompat    bool
	auditOutput    string
	auditDir       string
)

func init() {
	auditCmd.Flags().BoolVar(&auditTokens, "tokens", false, "Estimate the token cost of every skill")
	auditCmd.Flags().BoolVar(&auditDuplicity, "duplicity", false, "Find skills that overlap")
	auditCmd.Flags().BoolVar(&auditCompat, "compat", false, "Check which subagents can run every skill")
	auditCmd.Flags().StringVarP(&auditOutput, "output", "o", "", "Write the report into this directory instead of stdout")
	auditCmd.Flags().StringVar(&auditDir, "dir", "", "Skills directory (defaults to the bundle's skills)")
	rootCmd.AddCommand(auditCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit skills for token cost, overlap and subagent compatibility",
	Long: `Analyzes every skill with valid metadata and prints a Markdown report. Without
analysis flags every analysis runs.

  skillkit audit                       # full report on stdout
  skillkit audit --tokens              # token costs only
  skillkit audit --duplicity -o docs   # write docs/skill-audit-<date>.md`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		root, err := resolveSkillsDir(auditDir)
		if err != nil {
			return err
		}

		res, err := audit.Run(ctx, root, audit.Options{
			Tokens:        auditTokens,
			Duplicity:     auditDuplicity,
			Compatibility: auditCompat,
		})
		if err != nil {
			return err
		}

		now := time.Now()
		if auditOutput == "" || flagDryRun {
			return audit.WriteReport(cmd.OutOrStdout(), res, now)
		}

		if err := os.MkdirAll(auditOutput, paths.DirPermNormal); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
		path, err := audit.SaveReport(auditOutput, res, now)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Audited %d skills, report written to %s\n", len(res.Skills), path)
		high := 0
		for _, p := range res.Pairs {
			if p.High() {
				high++
			}
		}
		if high > 0 {
			fmt.Fprintf(w, "  %d skill pairs overlap heavily and are candidates for merging\n", high)
		}
		for _, c := range res.Tokens {
			if c.Status == audit.StatusCritical {
				fmt.Fprintf(w, "  %s is over the critical token budget (%d tokens)\n", c.Name, c.Tokens)
			}
		}
		return nil
	},
}
