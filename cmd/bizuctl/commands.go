package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"bizu/backend/internal/analytics"
	"bizu/backend/internal/cache"
	"bizu/backend/internal/domain"
	"bizu/backend/internal/httpapi"
	"bizu/backend/internal/logger"
	"bizu/backend/internal/money"
	"bizu/backend/internal/service"
	"bizu/backend/internal/store"
	"bizu/backend/internal/store/memory"
	pgstore "bizu/backend/internal/store/postgres"
)

const defaultTokenTTL = 12 * time.Hour

// operator is the session the CLI acts under; it has shell access to the
// database already.
var operator = domain.Session{Email: "bizuctl@localhost", Role: domain.RoleAdmin}

func openStore(c *cli.Context) (*pgstore.Store, error) {
	pg, err := pgstore.New(c.Context, c.String("db-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pg, nil
}

func runMigrate(c *cli.Context) error {
	pg, err := openStore(c)
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.Migrate(c.Context); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Log.Info().Msg("schema ready")
	return nil
}

func runSeed(c *cli.Context) error {
	pg, err := openStore(c)
	if err != nil {
		return err
	}
	defer pg.Close()

	products, customers, err := seedInto(c.Context, pg, memory.NewSeeded())
	if err != nil {
		return err
	}
	logger.Log.Info().Int("products", products).Int("customers", customers).Msg("seed finished")
	if products == 0 {
		return nil
	}
	return invalidateReports(c, "seed")
}

// invalidateReports drops the analytics reports the server cached in Redis,
// when Redis is configured.
func invalidateReports(c *cli.Context, cause string) error {
	opts := cache.RedisOptions{
		URL:      c.String("redis-url"),
		Addr:     c.String("redis-addr"),
		Password: c.String("redis-password"),
		DB:       c.Int("redis-db"),
	}
	if opts.URL == "" && opts.Addr == "" {
		return nil
	}
	rc, err := cache.NewRedisReportCache(opts)
	if err != nil {
		return fmt.Errorf("analytics cache: %w", err)
	}
	defer rc.Close()
	return dropReports(c.Context, rc, cause)
}

func dropReports(ctx context.Context, rc cache.ReportCache, cause string) error {
	if err := rc.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate analytics cache after %s: %w", cause, err)
	}
	logger.Log.Info().Str("cause", cause).Msg("analytics cache invalidated")
	return nil
}

// seedInto copies src's catalog and customers into dst. Rows dst rejects as
// duplicates are skipped.
func seedInto(ctx context.Context, dst, src store.Repository) (int, int, error) {
	products, err := src.ListProducts(ctx)
	if err != nil {
		return 0, 0, err
	}
	customers, err := src.ListCustomers(ctx)
	if err != nil {
		return 0, 0, err
	}

	var nProducts, nCustomers int
	for _, p := range products {
		if _, err := dst.CreateProduct(ctx, p); err != nil {
			if errors.Is(err, store.ErrInvalid) {
				logger.Log.Debug().Str("product", p.Name).Msg("already present, skipped")
				continue
			}
			return nProducts, nCustomers, fmt.Errorf("product %s: %w", p.Name, err)
		}
		nProducts++
	}
	for _, cu := range customers {
		if _, err := dst.CreateCustomer(ctx, cu); err != nil {
			if errors.Is(err, store.ErrInvalid) {
				continue
			}
			return nProducts, nCustomers, fmt.Errorf("customer %s: %w", cu.FullName, err)
		}
		nCustomers++
	}
	return nProducts, nCustomers, nil
}

func runImport(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("import needs a CSV file", 2)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	products, skipped, err := parseProductsCSV(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	logger.Log.Info().Int("rows", len(products)).Int("skipped", skipped).Str("file", path).Msg("parsed export")
	if c.Bool("dry-run") {
		return nil
	}

	pg, err := openStore(c)
	if err != nil {
		return err
	}
	defer pg.Close()

	imported := 0
	for _, p := range products {
		if _, err := pg.CreateProduct(c.Context, p); err != nil {
			logger.Log.Warn().Err(err).Str("product", p.Name).Msg("row not imported")
			continue
		}
		imported++
	}
	logger.Log.Info().Int("imported", imported).Msg("import finished")
	if imported == 0 {
		return nil
	}
	return invalidateReports(c, "import")
}

func newCLIService(repo store.Repository, opts service.Options) *service.Service {
	opts.BootstrapAdmin = operator.Email
	return service.New(repo, opts)
}

func runDebtors(c *cli.Context) error {
	pg, err := openStore(c)
	if err != nil {
		return err
	}
	defer pg.Close()

	resp, err := newCLIService(pg, service.Options{}).ListDebtors(c.Context, operator, c.String("query"))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tRANK\tUNIT\tSALES\tTOTAL")
	for _, d := range resp.Debtors {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", d.CustomerID, d.Name, d.Rank, d.Unit, len(d.SaleIDs), money.Format(d.Total))
	}
	fmt.Fprintf(tw, "\t\t\t\t\t%s\n", money.Format(resp.Total))
	return tw.Flush()
}

func runClosing(c *cli.Context) error {
	customerID := c.Args().First()
	if customerID == "" {
		return cli.Exit("closing needs a customer id", 2)
	}
	pg, err := openStore(c)
	if err != nil {
		return err
	}
	defer pg.Close()

	svc := newCLIService(pg, service.Options{
		BusinessName: c.String("business-name"),
		PixKey:       c.String("pix-key"),
	})
	doc, err := svc.ClosingStatementPDF(c.Context, operator, customerID)
	if err != nil {
		return err
	}
	out := c.String("out")
	if out == "" {
		out = "fechamento-" + customerID + ".pdf"
	}
	if err := os.WriteFile(out, doc, 0o644); err != nil {
		return err
	}
	logger.Log.Info().Str("file", out).Msg("statement written")
	return nil
}

func runAnalytics(c *cli.Context) error {
	format := strings.ToLower(c.String("format"))
	if format != "csv" && format != "xlsx" {
		return cli.Exit(fmt.Sprintf("unknown format %q", format), 2)
	}
	location, err := time.LoadLocation(c.String("timezone"))
	if err != nil {
		return err
	}
	pg, err := openStore(c)
	if err != nil {
		return err
	}
	defer pg.Close()

	report, err := newCLIService(pg, service.Options{Location: location}).Analytics(c.Context, operator, c.String("period"))
	if err != nil {
		return err
	}

	out := c.String("out")
	if out == "" {
		out = fmt.Sprintf("bizu-%s-%s.%s", report.Period, report.ReferenceDate, format)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	if format == "xlsx" {
		err = analytics.WriteXLSX(f, report)
	} else {
		err = analytics.WriteCSV(f, report)
	}
	if err != nil {
		return err
	}
	logger.Log.Info().Str("file", out).Msg("report written")
	return nil
}

func runToken(c *cli.Context) error {
	email := c.Args().First()
	if email == "" {
		return cli.Exit("token needs an email", 2)
	}
	token, err := httpapi.NewTokenVerifier(c.String("secret"), c.String("audience")).Sign(email, c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, token)
	return nil
}

func runGrant(c *cli.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.Args().First()))
	if email == "" {
		return cli.Exit("grant needs an email", 2)
	}
	pg, err := openStore(c)
	if err != nil {
		return err
	}
	defer pg.Close()

	role := domain.RoleCollaborator
	if c.Bool("admin") {
		role = domain.RoleAdmin
	}
	if _, err := pg.UpsertCollaborator(c.Context, domain.Collaborator{Email: email, Role: role}); err != nil {
		return err
	}
	logger.Log.Info().Str("email", email).Str("role", role).Msg("access granted")
	return nil
}
