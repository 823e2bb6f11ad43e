package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sqldrill/sqldrill/internal/model"
	"github.com/sqldrill/sqldrill/internal/store"
	"github.com/sqldrill/sqldrill/internal/validate"
)

func newExerciseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exercise",
		Short: "Inspect and lint exercise content files",
	}

	cmd.AddCommand(newExerciseListCmd())
	cmd.AddCommand(newExerciseLintCmd())

	return cmd
}

func newExerciseListCmd() *cobra.Command {
	var seedDir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the exercises in a content directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			exercises, err := store.LoadSeedDir(seedDir)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDIFFICULTY\tTYPE\tVALIDATION\tTITLE")
			for _, ex := range exercises {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					ex.ID, ex.Difficulty, ex.Type, ex.Validation.Kind, ex.Title)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&seedDir, "seed-dir", "exercises", "Directory of exercise YAML files")
	return cmd
}

func newExerciseLintCmd() *cobra.Command {
	var seedDir string

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check exercise content for rules that cannot grade anything",
		Long: `Lint checks each exercise's validation payload for content bugs the
grader tolerates at runtime: rules with no conditions at all (every attempt
passes), partial rules naming a predicate this binary does not provide
(every attempt fails), and ddl rules on dml exercises.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			exercises, err := store.LoadSeedDir(seedDir)
			if err != nil {
				return err
			}

			preds := validate.DefaultPredicates()
			problems := 0
			warn := func(ex *model.Exercise, format string, args ...interface{}) {
				problems++
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", ex.ID, fmt.Sprintf(format, args...))
			}

			for i := range exercises {
				ex := &exercises[i]
				for _, p := range lintExercise(ex, preds) {
					warn(ex, "%s", p)
				}
			}

			if problems > 0 {
				return fmt.Errorf("%d problem(s) in %d exercise(s) under %s", problems, len(exercises), seedDir)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d exercises\n", len(exercises))
			return nil
		},
	}

	cmd.Flags().StringVar(&seedDir, "seed-dir", "exercises", "Directory of exercise YAML files")
	return cmd
}

// lintExercise returns the content problems of one exercise.
func lintExercise(ex *model.Exercise, preds *validate.PredicateRegistry) []string {
	var problems []string

	switch ex.Validation.Kind {
	case model.ValidationExact, model.ValidationPartial:
		if ex.Type == model.ExerciseDDL {
			problems = append(problems, fmt.Sprintf("ddl exercise uses result validation %q", ex.Validation.Kind))
		}
		cond, err := validate.DecodeResultConditions(ex.Validation.Conditions)
		if err != nil {
			return append(problems, err.Error())
		}
		if cond.Empty() {
			problems = append(problems, "validation has no conditions; every attempt passes")
		}
		if ex.Validation.Kind == model.ValidationPartial && cond.Predicate != "" {
			if _, ok := preds.Get(cond.Predicate); !ok {
				problems = append(problems, fmt.Sprintf("predicate %q is not provided by this binary; every attempt fails", cond.Predicate))
			}
		}
		if ex.Validation.Kind == model.ValidationExact && cond.Predicate != "" {
			problems = append(problems, "exact rules ignore predicates")
		}
		if ex.Validation.Kind == model.ValidationPartial && (cond.Rows != nil || len(cond.Values) > 0) {
			problems = append(problems, "partial rules ignore rows and values conditions")
		}

	case model.ValidationDDLSchema:
		if ex.Type != model.ExerciseDDL {
			problems = append(problems, "ddl_schema validation on a dml exercise")
		}
		cond, err := validate.DecodeDDLConditions(ex.Validation.Conditions)
		if err != nil {
			return append(problems, err.Error())
		}
		if cond.Empty() {
			problems = append(problems, "validation has no conditions; every attempt passes")
		}

	default:
		problems = append(problems, fmt.Sprintf("unknown validation kind %q; every attempt fails", ex.Validation.Kind))
	}

	return problems
}
