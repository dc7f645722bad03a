package main

import (
	"os"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"bizu/backend/internal/logger"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newOutputFlag(value string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "out",
		Aliases: []string{"o"},
		Usage:   "Output file",
		Value:   value,
	}
}

// newRedisFlags points write commands at the server's report cache.
func newRedisFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "redis-url", EnvVars: []string{"REDIS_URL"}},
		&cli.StringFlag{Name: "redis-addr", EnvVars: []string{"REDIS_ADDR"}},
		&cli.StringFlag{Name: "redis-password", EnvVars: []string{"REDIS_PASSWORD"}},
		&cli.IntFlag{Name: "redis-db", EnvVars: []string{"REDIS_DB"}},
	}
}

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "bizuctl",
		Usage: "Operator tasks for the Bizu do Bigode backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create the tables if they do not exist",
				Flags:  []cli.Flag{newDBURLFlag()},
				Action: runMigrate,
			},
			{
				Name:   "seed",
				Usage:  "Copy the demo catalog and customers into the database",
				Flags:  append([]cli.Flag{newDBURLFlag()}, newRedisFlags()...),
				Action: runSeed,
			},
			{
				Name:      "import",
				Usage:     "Import products from an exported CSV",
				ArgsUsage: "<file.csv>",
				Flags: append([]cli.Flag{
					newDBURLFlag(),
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Parse and report without writing",
					},
				}, newRedisFlags()...),
				Action: runImport,
			},
			{
				Name:  "debtors",
				Usage: "List customers with an open balance",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Filter by name, rank or unit"},
				},
				Action: runDebtors,
			},
			{
				Name:      "closing",
				Usage:     "Write a customer's closing statement as PDF",
				ArgsUsage: "<customer-id>",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newOutputFlag(""),
					&cli.StringFlag{Name: "pix-key", EnvVars: []string{"PIX_KEY"}},
					&cli.StringFlag{Name: "business-name", Value: "BIZU DO BIGODE", EnvVars: []string{"BUSINESS_NAME"}},
				},
				Action: runClosing,
			},
			{
				Name:  "analytics",
				Usage: "Export the profitability report",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newOutputFlag(""),
					&cli.StringFlag{Name: "period", Value: "month", Usage: "today or month"},
					&cli.StringFlag{Name: "format", Value: "csv", Usage: "csv or xlsx"},
					&cli.StringFlag{Name: "timezone", Value: "America/Sao_Paulo", EnvVars: []string{"BUSINESS_TIMEZONE"}},
				},
				Action: runAnalytics,
			},
			{
				Name:      "token",
				Usage:     "Sign an identity token for local testing",
				ArgsUsage: "<email>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "secret", Required: true, EnvVars: []string{"AUTH_JWT_SECRET"}},
					&cli.StringFlag{Name: "audience", Value: "authenticated", EnvVars: []string{"AUTH_JWT_AUDIENCE"}},
					&cli.DurationFlag{Name: "ttl", Value: defaultTokenTTL},
				},
				Action: runToken,
			},
			{
				Name:      "grant",
				Usage:     "Put an email on the access list",
				ArgsUsage: "<email>",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.BoolFlag{Name: "admin", Usage: "Grant the admin role"},
				},
				Action: runGrant,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("bizuctl failed")
	}
}
