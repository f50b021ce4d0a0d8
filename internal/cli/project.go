package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/irgroup/labelstudio-to-fonduer/internal/labelstudio"
	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
	"github.com/irgroup/labelstudio-to-fonduer/internal/project"
)

var (
	projectOut     string
	projectVersion string
	projectPush    bool
	projectTitle   string
)

// projectCmd represents the project command
var projectCmd = &cobra.Command{
	Use:   "project <candidates.json>",
	Short: "Project downstream candidates into annotation-tool tasks",
	Long: `Project converts downstream relation candidates back into the annotation
tool's import format: one task per document carrying predictions, so
annotators see the candidates as suggestions rather than finished
annotations.

Span offsets are re-anchored against the stored document text; a span
whose text cannot be found is dropped while its relation and sibling
span survive.

Example:
  ls2fonduer project candidates.json --out tasks.json
  ls2fonduer project candidates.json --push --project "Review round 2"`,
	Args: cobra.ExactArgs(1),
	RunE: runProject,
}

func init() {
	rootCmd.AddCommand(projectCmd)

	projectCmd.Flags().StringVar(&projectOut, "out", "tasks.json", "output file for the import tasks")
	projectCmd.Flags().StringVar(&projectVersion, "model-version", "ls2fonduer", "model_version stamped on predictions")
	projectCmd.Flags().BoolVar(&projectPush, "push", false, "import the tasks into the annotation tool")
	projectCmd.Flags().StringVar(&projectTitle, "project", "ls2fonduer", "annotation-tool project title for --push")
}

func runProject(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)
	ctx := context.Background()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	cands, err := model.LoadCandidates(args[0])
	if err != nil {
		return err
	}

	proj := project.NewProjector(st, newTrees(cfg.Cache), projectVersion, logger)
	tasks, failures, err := proj.Project(ctx, cands)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := os.WriteFile(projectOut, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write tasks: %w", err)
	}
	fmt.Printf("✓ %d tasks written to %s (%d span failures)\n", len(tasks), projectOut, len(failures))

	if !projectPush {
		return nil
	}

	client, err := labelstudio.NewClient(cfg.LabelStudio, logger)
	if err != nil {
		return err
	}
	projectID, err := client.EnsureProject(ctx, projectTitle, project.LabelingConfig(cands))
	if err != nil {
		return err
	}
	count, err := client.ImportTasks(ctx, projectID, tasks)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %d tasks imported into project %d (%s)\n", count, projectID, projectTitle)
	return nil
}
