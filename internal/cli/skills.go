package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillkit-labs/skillkit/internal/bundle"
	"github.com/skillkit-labs/skillkit/internal/deploy"
	"github.com/skillkit-labs/skillkit/internal/logger"
	"github.com/skillkit-labs/skillkit/internal/skills"
)

var skillsDir string

func init() {
	skillsCmd.PersistentFlags().StringVar(&skillsDir, "dir", "", "Skills directory (defaults to the bundle's skills)")
	skillsCmd.AddCommand(skillsIndexCmd)
	skillsCmd.AddCommand(skillsListCmd)
	rootCmd.AddCommand(skillsCmd)
}

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Inspect the bundle's skills",
}

var skillsIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Print the generated skills index",
	Long: `Prints the Markdown skills index exactly as deploy injects it into the
configuration. Skills with missing or invalid metadata are skipped with a warning.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := indexSkills(cmd, skillsDir)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), skills.Render(idx, time.Now()))
		return nil
	},
}

var skillsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List skills by category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := indexSkills(cmd, skillsDir)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for _, b := range idx.Buckets {
			fmt.Fprintf(w, "%s (%d)\n", b.Category, len(b.Records))
			for _, r := range b.Records {
				fmt.Fprintf(w, "  %-32s %s\n", r.Name, r.Description)
			}
		}
		fmt.Fprintf(w, "\n%d skills", idx.Total())
		if n := len(idx.Warnings); n > 0 {
			fmt.Fprintf(w, ", %d skipped", n)
		}
		fmt.Fprintln(w)
		return nil
	},
}

// resolveSkillsDir returns dir, or the skills directory of the bundle.
func resolveSkillsDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	b, err := bundle.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(b, deploy.SkillsDir), nil
}

func indexSkills(cmd *cobra.Command, dir string) (*skills.Index, error) {
	root, err := resolveSkillsDir(dir)
	if err != nil {
		return nil, err
	}
	idx, err := skills.NewIndexer(nil).Index(cmd.Context(), root)
	if err != nil {
		return nil, err
	}
	log := logger.G(cmd.Context())
	for _, w := range idx.Warnings {
		log.Warnf("skipped %s", w)
	}
	return idx, nil
}
