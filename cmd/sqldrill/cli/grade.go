package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sqldrill/sqldrill/internal/model"
	"github.com/sqldrill/sqldrill/internal/service"
	"github.com/sqldrill/sqldrill/internal/store"
	"github.com/sqldrill/sqldrill/internal/validate"
)

// errAttemptFailed makes `sqldrill grade` exit non-zero on a failing verdict
// without printing a second error line.
var errAttemptFailed = fmt.Errorf("attempt did not pass")

func newGradeCmd() *cobra.Command {
	var (
		seedDir    string
		exerciseID string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "grade [sql-file]",
		Short: "Grade a SQL file against one exercise without a server",
		Long: `Grade runs a SQL file against a fresh embedded practice database seeded
for the named exercise and prints the verdict. With no file argument the
SQL is read from stdin. The exit code is 0 when the attempt passes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlText, err := readSQLInput(cmd, args)
			if err != nil {
				return err
			}
			return runGrade(cmd, seedDir, exerciseID, sqlText, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&seedDir, "seed-dir", "exercises", "Directory of exercise YAML files")
	cmd.Flags().StringVarP(&exerciseID, "exercise", "e", "", "Exercise ID to grade against (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the full outcome as JSON")
	cmd.MarkFlagRequired("exercise")

	return cmd
}

func readSQLInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read sql file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func runGrade(cmd *cobra.Command, seedDir, exerciseID, sqlText string, jsonOutput bool) error {
	exercises, err := store.LoadSeedDir(seedDir)
	if err != nil {
		return err
	}

	var exercise *model.Exercise
	for i := range exercises {
		if exercises[i].ID == exerciseID {
			exercise = &exercises[i]
			break
		}
	}
	if exercise == nil {
		return fmt.Errorf("exercise %q not found under %s", exerciseID, seedDir)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := newEngineRegistry()
	grader := validate.NewGrader(validate.DefaultPredicates())
	sessions := service.NewSessionManager(registry, practiceConfig(), grader, nil, service.Events{}, logger)
	defer sessions.CloseAll()

	session := sessions.Get("")
	outcome, err := session.Attempt(context.Background(), exercise, sqlText)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcome); err != nil {
			return err
		}
		if !outcome.Verdict.IsValid {
			return errAttemptFailed
		}
		return nil
	}

	printOutcome(cmd.OutOrStdout(), exercise, outcome)
	if !outcome.Verdict.IsValid {
		return errAttemptFailed
	}
	return nil
}

func printOutcome(w io.Writer, ex *model.Exercise, outcome *service.AttemptOutcome) {
	for i, res := range outcome.Results {
		if res.Error {
			fmt.Fprintf(w, "statement %d: ERROR: %s\n", i+1, res.Message)
			if res.Example != "" {
				fmt.Fprintf(w, "  example: %s\n", res.Example)
			}
			continue
		}
		fmt.Fprintf(w, "statement %d: %d row(s), columns %v\n", i+1, len(res.Rows), res.FieldNames())
	}

	verdict := outcome.Verdict
	if verdict.IsValid {
		fmt.Fprintf(w, "PASS [%s] %s\n", ex.ID, verdict.Message)
	} else {
		fmt.Fprintf(w, "FAIL [%s] %s\n", ex.ID, verdict.Message)
	}

	if sv := verdict.SchemaValidation; sv != nil {
		fmt.Fprintf(w, "  schema: table_found=%t\n", sv.TableFound)
		for _, e := range sv.Errors {
			fmt.Fprintf(w, "    - %s\n", e)
		}
	}
	if tr := verdict.TestQueryResults; tr != nil {
		for _, pr := range tr.Results {
			status := "ok"
			if pr.Actual != pr.Expected {
				status = "failed"
			}
			fmt.Fprintf(w, "  probe %s: %s\n", status, pr.Query)
		}
	}
}
