package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/sqldrill/sqldrill/internal/model"
)

// seedFile is the top-level shape of an exercise content file.
type seedFile struct {
	Exercises []exerciseSeed `yaml:"exercises"`
}

// exerciseSeed is one exercise as authored in YAML. Validation conditions
// stay a free-form map here; normalizeValidation turns them into the JSON
// payload the graders decode.
type exerciseSeed struct {
	ID             string         `yaml:"id"`
	Title          string         `yaml:"title"`
	Difficulty     string         `yaml:"difficulty"`
	Description    string         `yaml:"description"`
	Details        string         `yaml:"details"`
	Hint           string         `yaml:"hint"`
	SuccessMessage string         `yaml:"success_message"`
	Example        *model.Example `yaml:"example"`
	Type           string         `yaml:"type"`
	Setup          []string       `yaml:"setup"`
	Validation     validationSeed `yaml:"validation"`
}

type validationSeed struct {
	Type       string                 `yaml:"type"`
	Conditions map[string]interface{} `yaml:"conditions"`
}

// LoadSeedFile reads and parses one exercise content file.
func LoadSeedFile(path string) ([]model.Exercise, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", filepath.Base(path), err)
	}

	exercises := make([]model.Exercise, 0, len(f.Exercises))
	for _, seed := range f.Exercises {
		ex, err := seed.toModel()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		exercises = append(exercises, ex)
	}
	return exercises, nil
}

// LoadSeedDir loads every .yaml/.yml file in a directory, in name order, and
// rejects duplicate exercise IDs across files.
func LoadSeedDir(dir string) ([]model.Exercise, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read seed dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	var all []model.Exercise
	seen := make(map[string]string)
	for _, path := range paths {
		exercises, err := LoadSeedFile(path)
		if err != nil {
			return nil, err
		}
		for _, ex := range exercises {
			if prev, ok := seen[ex.ID]; ok {
				return nil, fmt.Errorf("duplicate exercise id %q in %s (first seen in %s)",
					ex.ID, filepath.Base(path), prev)
			}
			seen[ex.ID] = filepath.Base(path)
		}
		all = append(all, exercises...)
	}
	return all, nil
}

// SeedExercises upserts a batch of exercises into the catalog.
func (s *Store) SeedExercises(ctx context.Context, exercises []model.Exercise) error {
	for i := range exercises {
		if err := s.UpsertExercise(ctx, &exercises[i]); err != nil {
			return fmt.Errorf("seed exercise %s: %w", exercises[i].ID, err)
		}
	}
	return nil
}

func (seed exerciseSeed) toModel() (model.Exercise, error) {
	if seed.ID == "" {
		return model.Exercise{}, fmt.Errorf("exercise is missing an id")
	}
	if seed.Title == "" {
		return model.Exercise{}, fmt.Errorf("exercise %s: missing title", seed.ID)
	}
	if !model.ValidDifficulty(seed.Difficulty) {
		return model.Exercise{}, fmt.Errorf("exercise %s: unknown difficulty %q", seed.ID, seed.Difficulty)
	}

	exType := model.ExerciseType(seed.Type)
	if seed.Type == "" {
		exType = model.ExerciseDML
	}
	switch exType {
	case model.ExerciseDML, model.ExerciseDDL:
	default:
		return model.Exercise{}, fmt.Errorf("exercise %s: unknown type %q", seed.ID, seed.Type)
	}

	validation, err := normalizeValidation(seed.Validation)
	if err != nil {
		return model.Exercise{}, fmt.Errorf("exercise %s: %w", seed.ID, err)
	}

	return model.Exercise{
		ID:             seed.ID,
		Title:          seed.Title,
		Difficulty:     model.Difficulty(seed.Difficulty),
		Description:    seed.Description,
		Details:        seed.Details,
		Hint:           seed.Hint,
		SuccessMessage: seed.SuccessMessage,
		Example:        seed.Example,
		Type:           exType,
		Validation:     validation,
		Setup:          seed.Setup,
	}, nil
}

// normalizeValidation converts an authored rule into its canonical form.
// Two legacy spellings from older content files are folded in here so the
// graders only ever see the three canonical kinds:
//
//	count  {count: N}      -> exact   {rows: N}
//	custom {predicate: p}  -> partial {predicate: p}
func normalizeValidation(seed validationSeed) (model.Validation, error) {
	kind := model.ValidationKind(seed.Type)
	cond := seed.Conditions

	switch seed.Type {
	case "count":
		kind = model.ValidationExact
		normalized := map[string]interface{}{}
		for k, v := range cond {
			if k == "count" {
				k = "rows"
			}
			normalized[k] = v
		}
		cond = normalized
	case "custom":
		kind = model.ValidationPartial
	}

	switch kind {
	case model.ValidationExact, model.ValidationPartial, model.ValidationDDLSchema:
	case "":
		return model.Validation{}, fmt.Errorf("validation is missing a type")
	default:
		return model.Validation{}, fmt.Errorf("unknown validation type %q", seed.Type)
	}

	raw := json.RawMessage("{}")
	if len(cond) > 0 {
		data, err := json.Marshal(cond)
		if err != nil {
			return model.Validation{}, fmt.Errorf("encode validation conditions: %w", err)
		}
		raw = data
	}

	return model.Validation{Kind: kind, Conditions: raw}, nil
}
