package main

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "cage-migrate",
		Usage: "apply homerun cage schema migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db-url",
				Usage:    "postgres connection url",
				EnvVars:  []string{"DB_URL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "dir",
				Usage:   "migration directory",
				EnvVars: []string{"MIGRATIONS_DIR", "MIGRATIONS_PATH"},
			},
			&cli.BoolFlag{
				Name:    "disable-prepared-binary",
				Usage:   "append disable_prepared_binary_result=yes to the db url",
				EnvVars: []string{"DB_DISABLE_PREPARED_BINARY_RESULT"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply every pending migration",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrate) error {
					if err := ignoreNoChange(m.Up()); err != nil {
						return err
					}
					log.Printf("migrations applied")
					return nil
				}),
			},
			{
				Name:      "down",
				Usage:     "roll back migrations",
				ArgsUsage: "[steps]",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrate) error {
					steps, err := parseSteps(c.Args().First())
					if err != nil {
						return err
					}
					if err := ignoreNoChange(m.Steps(-steps)); err != nil {
						return err
					}
					log.Printf("rolled back %d migration(s)", steps)
					return nil
				}),
			},
			{
				Name:  "version",
				Usage: "print the current schema version",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrate) error {
					version, dirty, err := m.Version()
					if errors.Is(err, migrate.ErrNilVersion) {
						fmt.Println("version: none")
						fmt.Println("dirty: false")
						return nil
					}
					if err != nil {
						return fmt.Errorf("read version: %w", err)
					}
					fmt.Printf("version: %d\n", version)
					fmt.Printf("dirty: %t\n", dirty)
					return nil
				}),
			},
			{
				Name:      "force",
				Usage:     "set the schema version without running migrations",
				ArgsUsage: "<version>",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrate) error {
					version, err := parseVersion(c.Args().First())
					if err != nil {
						return err
					}
					if err := m.Force(version); err != nil {
						return fmt.Errorf("force version %d: %w", version, err)
					}
					log.Printf("forced version to %d", version)
					return nil
				}),
			},
			{
				Name:      "goto",
				Aliases:   []string{"migrate"},
				Usage:     "migrate up or down to a target version",
				ArgsUsage: "<version>",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrate) error {
					target, err := parseTarget(c.Args().First())
					if err != nil {
						return err
					}
					if err := ignoreNoChange(m.Migrate(target)); err != nil {
						return err
					}
					log.Printf("migrated to version %d", target)
					return nil
				}),
			},
			{
				Name:  "river",
				Usage: "apply the river job queue schema",
				Action: func(c *cli.Context) error {
					return migrateRiver(c)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func withMigrator(fn func(c *cli.Context, m *migrate.Migrate) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		migrationsDir, err := resolveMigrationsDir(c.String("dir"))
		if err != nil {
			return err
		}

		sourceURL := "file://" + filepath.ToSlash(migrationsDir)
		m, err := migrate.New(sourceURL, dbURL(c))
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer closeMigrator(m)

		return fn(c, m)
	}
}

func migrateRiver(c *cli.Context) error {
	pool, err := pgxpool.New(c.Context, dbURL(c))
	if err != nil {
		return fmt.Errorf("create pgx pool: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	res, err := migrator.Migrate(c.Context, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{})
	if err != nil {
		return fmt.Errorf("run river migrations: %w", err)
	}
	log.Printf("river migrations applied: %d version(s)", len(res.Versions))
	return nil
}

func dbURL(c *cli.Context) string {
	raw := strings.TrimSpace(c.String("db-url"))
	if !c.Bool("disable-prepared-binary") {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil {
		return raw
	}
	query := parsed.Query()
	if query.Get("disable_prepared_binary_result") == "" {
		query.Set("disable_prepared_binary_result", "yes")
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func parseSteps(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 1, nil
	}

	steps, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid down steps %q: %w", raw, err)
	}
	if steps <= 0 {
		return 0, fmt.Errorf("down steps must be > 0")
	}
	return steps, nil
}

func parseVersion(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("version argument is required")
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("version must be >= 0")
	}
	if value > int64(^uint(0)>>1) {
		return 0, fmt.Errorf("version is too large for this platform")
	}
	return int(value), nil
}

func parseTarget(raw string) (uint, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("target version argument is required")
	}
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid target version %q: %w", raw, err)
	}
	return uint(value), nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		log.Printf("no migration changes")
		return nil
	}
	return err
}

func closeMigrator(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		log.Printf("close migration source: %v", srcErr)
	}
	if dbErr != nil {
		log.Printf("close migration db: %v", dbErr)
	}
}

func resolveMigrationsDir(explicit string) (string, error) {
	candidates := []string{
		strings.TrimSpace(explicit),
		"./db/migrations",
		"/app/db/migrations",
	}

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			continue
		}
		return abs, nil
	}

	return "", fmt.Errorf("migration directory not found (checked --dir, ./db/migrations, /app/db/migrations)")
}
