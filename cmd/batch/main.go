// Headless batch captioning: runs one batch over a project folder and
// exits, for scripting and cron-style dataset preparation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"captionstudio/internal/backend"
	"captionstudio/internal/batch"
	"captionstudio/internal/captions"
	"captionstudio/internal/config"
	"captionstudio/internal/index"
	"captionstudio/internal/model"
	"captionstudio/internal/prompt"
)

func main() {
	configPath := flag.String("config", "config/config.json", "config file path")
	root := flag.String("root", "", "project root folder (required)")
	provider := flag.String("provider", backend.ProviderLmStudio, "caption backend: lmstudio, ollama, wd14, joycaption, hybrid")
	all := flag.Bool("all", false, "caption every image, captioned or not")
	ratings := flag.String("ratings", "", "comma-separated ratings to caption (good,bad,needs_edit,none)")
	basePrompt := flag.String("prompt", "", "base prompt override")
	characterName := flag.String("name", "", "character name substituted for {name} in the prompt")
	wordLimit := flag.Int("words", 0, "approximate word limit for captions")
	concurrency := flag.Int("concurrency", 0, "parallel requests within a chunk (defaults from config)")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if *root == "" {
		fmt.Fprintln(os.Stderr, "Usage: batch -root <folder> [-provider lmstudio] [-all | -ratings good] [image paths...]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		cfg = config.Default()
	}

	images, err := index.Scan(*root)
	if err != nil {
		log.Error().Err(err).Str("root", *root).Msg("Could not scan project")
		os.Exit(1)
	}

	criteria, err := buildCriteria(*all, *ratings, flag.Args())
	if err != nil {
		log.Error().Err(err).Msg("Invalid selection")
		os.Exit(1)
	}

	gen, err := backend.New(*provider, cfg.Backends)
	if err != nil {
		log.Error().Err(err).Msg("Could not build backend")
		os.Exit(1)
	}

	workers := *concurrency
	if workers == 0 {
		workers = cfg.Batch.Concurrency
	}

	promptText := prompt.Build(prompt.Config{
		BasePrompt:    *basePrompt,
		WordLimit:     *wordLimit,
		CharacterName: *characterName,
	})

	targets := batch.SelectTargets(images, criteria)
	job, err := batch.NewJob(targets, gen, promptText, workers)
	if err != nil {
		log.Error().Err(err).Msg("Could not start run")
		os.Exit(1)
	}

	runner := batch.NewRunner(uuid.NewString(), job, captions.NewStore())

	start := time.Now()
	snap := runner.Run(context.Background())

	for _, notice := range snap.Notices {
		log.Warn().Msg(notice)
	}
	for _, failure := range snap.Failures {
		log.Warn().
			Str("image", failure.Path).
			Str("stage", string(failure.Stage)).
			Msg(failure.Error)
	}

	log.Info().
		Str("status", string(snap.Status)).
		Int("applied", snap.Applied).
		Int("failed", len(snap.Failures)).
		Int("total", snap.Total).
		Dur("took", time.Since(start)).
		Msg("Batch run finished")
}

// buildCriteria maps the CLI selection flags onto run criteria. Explicit
// image paths are passed as positional arguments.
func buildCriteria(all bool, ratings string, paths []string) (model.SelectionCriteria, error) {
	criteria := model.SelectionCriteria{IncludeAll: all}

	if ratings != "" {
		for _, raw := range strings.Split(ratings, ",") {
			raw = strings.TrimSpace(raw)
			rating := model.ParseRating(raw)
			if raw != string(rating) {
				return criteria, fmt.Errorf("unknown rating %q", raw)
			}
			criteria.RatingFilter = append(criteria.RatingFilter, rating)
		}
	}

	// Image ids are full paths, so relative arguments are resolved first.
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return criteria, err
		}
		criteria.ExplicitIDs = append(criteria.ExplicitIDs, abs)
	}
	return criteria, nil
}
