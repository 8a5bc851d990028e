// Command eballot-seed loads the candidate list from a YAML file. The default
// is wipe-and-insert; --keep only adds candidates whose names are not already
// present, which is safe once voting has started.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/whitematrix/eballot/pkg/models"
	"github.com/whitematrix/eballot/pkg/observability"
	"github.com/whitematrix/eballot/pkg/store"
)

type seedFile struct {
	Candidates []seedCandidate `yaml:"candidates"`
}

type seedCandidate struct {
	Name        string `yaml:"name"`
	LinkedInURL string `yaml:"linkedinUrl"`
	Party       string `yaml:"party"`
	Team        string `yaml:"team"`
	ImageURL    string `yaml:"img"`
}

func main() {
	var (
		file = flag.String("file", "candidates.yaml", "candidate YAML file")
		keep = flag.Bool("keep", false, "keep existing candidates, only add new names")
		dsn  = flag.String("database-url", os.Getenv("EBALLOT_POSTGRES_URL"), "postgres connection URL")
	)
	flag.Parse()

	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)

	if *dsn == "" {
		logger.Error("database URL is required (flag --database-url or EBALLOT_POSTGRES_URL)")
		os.Exit(1)
	}

	if err := run(logger, *file, *dsn, *keep); err != nil {
		logger.WithError(err).Error("seeding failed")
		os.Exit(1)
	}
}

func run(logger *observability.Logger, file, dsn string, keep bool) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return err
	}

	db, err := store.Connect(store.ConnectionConfig{URL: dsn})
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := store.RunMigrations(ctx, db); err != nil {
		return err
	}

	candidates := store.NewCandidateStore(db)

	if !keep {
		if err := candidates.DeleteAll(ctx); err != nil {
			return err
		}
		logger.Info("existing candidates removed")
	}

	inserted := 0
	for _, sc := range seed.Candidates {
		if keep {
			exists, err := candidates.ExistsByName(ctx, sc.Name)
			if err != nil {
				return err
			}
			if exists {
				logger.WithField("name", sc.Name).Info("candidate already present, skipping")
				continue
			}
		}

		c := &models.Candidate{
			Name:        sc.Name,
			LinkedInURL: sc.LinkedInURL,
			Party:       sc.Party,
			Team:        sc.Team,
			ImageURL:    sc.ImageURL,
		}
		if c.Party == "" {
			c.Party = "Independent"
		}
		if c.Team == "" {
			c.Team = "White Matrix Team"
		}

		if err := candidates.Insert(ctx, c); err != nil {
			return err
		}
		inserted++
	}

	logger.WithField("inserted", inserted).Info("seeding complete")
	return nil
}
