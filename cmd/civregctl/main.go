package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/policy"
	"github.com/noah-isme/civreg-api/internal/repository"
	"github.com/noah-isme/civreg-api/internal/service"
	"github.com/noah-isme/civreg-api/pkg/config"
	"github.com/noah-isme/civreg-api/pkg/database"
	"github.com/noah-isme/civreg-api/pkg/storage"
)

const usageText = `civregctl - civil registration operations tool

Usage:
  civregctl create-admin  --name NAME --email EMAIL --password PASSWORD [--phone PHONE]
  civregctl sync-citizens
  civregctl import        --type TYPE --format FORMAT --file PATH [--validate-only] [--atomic]
  civregctl export        --type TYPE --format FORMAT [--region REGION] [--year YEAR]
  civregctl cleanup-exports
`

// Generated export files older than this are deleted by cleanup-exports.
const exportRetention = 24 * time.Hour

// cliActor is the synthetic system administrator the CLI acts as. Audit
// entries it produces carry this ID.
var cliActor = policy.Actor{UserID: "civregctl", Role: models.RoleAdmin, IsSystemAdmin: true, IsApproved: true}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "create-admin":
		err = runCreateAdmin(os.Args[2:])
	case "sync-citizens":
		err = runSyncCitizens()
	case "import":
		err = runImport(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	case "cleanup-exports":
		err = runCleanupExports()
	case "help", "-h", "--help":
		fmt.Print(usageText)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usageText)
		os.Exit(2)
	}
	if err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func connect() (*config.Config, *sqlx.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return cfg, db, nil
}

func runCreateAdmin(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "login email")
	password := fs.String("password", "", "initial password")
	phone := fs.String("phone", "", "contact phone")
	fs.Parse(args) //nolint:errcheck

	if *name == "" || *email == "" || *password == "" {
		return fmt.Errorf("--name, --email, and --password are required")
	}

	_, db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := repository.NewUserRepository(db)
	exists, err := users.ExistsByEmail(ctx, *email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		return fmt.Errorf("a user with email %s already exists", *email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// The bootstrap admin bypasses the user service: only system
	// administrators may create accounts, and none exists yet.
	user := &models.User{
		ID:            uuid.NewString(),
		Name:          *name,
		Email:         *email,
		PasswordHash:  string(hash),
		Role:          models.RoleAdmin,
		IsSystemAdmin: true,
		IsApproved:    true,
		Phone:         *phone,
	}
	if err := users.Create(ctx, user); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	color.Green("System administrator created: %s (%s)", user.Email, user.ID)
	return nil
}

func runSyncCitizens() error {
	_, db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	citizens := service.NewCitizenService(repository.NewCitizenRepository(db), zap.NewNop())
	started := time.Now()
	count, err := citizens.Rebuild(ctx)
	if err != nil {
		return err
	}
	color.Green("Citizens projection rebuilt: %d rows in %s", count, time.Since(started).Round(time.Millisecond))
	return nil
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	recordType := fs.String("type", "", "record type: birth, marriage, or death")
	format := fs.String("format", "csv", "file format: csv or json")
	file := fs.String("file", "", "path to the records file")
	validateOnly := fs.Bool("validate-only", false, "validate rows without creating records")
	atomic := fs.Bool("atomic", false, "reject the whole batch when any row fails validation")
	fs.Parse(args) //nolint:errcheck

	if *file == "" {
		return fmt.Errorf("--file is required")
	}
	src, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("open %s: %w", *file, err)
	}
	defer src.Close() //nolint:errcheck

	_, db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	logr := zap.NewNop()
	validate := validator.New()
	sequences := repository.NewSequenceRepository(db, logr)
	offices := repository.NewOfficeRepository(db)
	audit := service.NewAuditService(repository.NewAuditRepository(db), logr)
	birthRepo := repository.NewBirthRepository(db, sequences)
	births := service.NewBirthService(birthRepo, offices, audit, validate, logr)
	marriages := service.NewMarriageService(repository.NewMarriageRepository(db, sequences), birthRepo, offices, audit, validate, logr)
	deaths := service.NewDeathService(repository.NewDeathRepository(db, sequences), birthRepo, offices, audit, validate, logr)
	imports := service.NewImportService(births, marriages, deaths, validate, logr)

	report, err := imports.Run(ctx, cliActor, service.ImportRequest{
		Type:         service.ExportType(*recordType),
		Format:       service.ExportFormat(*format),
		ValidateOnly: *validateOnly,
		Atomic:       *atomic,
	}, src)
	if err != nil {
		return err
	}

	if len(report.Errors) > 0 {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Row", "Error"})
		for _, rowErr := range report.Errors {
			table.Append([]string{strconv.Itoa(rowErr.Row), rowErr.Message})
		}
		table.Render()
	}

	if report.Failed > 0 {
		color.Yellow("Processed %d rows: %d created, %d failed", report.Total, report.Created, report.Failed)
	} else if report.ValidateOnly {
		color.Green("Validated %d rows, no errors", report.Total)
	} else {
		color.Green("Imported %d rows", report.Created)
	}
	return nil
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	recordType := fs.String("type", "all", "record type: birth, marriage, death, or all")
	format := fs.String("format", "csv", "file format: csv, json, or pdf")
	region := fs.String("region", "", "limit to one region")
	year := fs.Int("year", 0, "limit to one year")
	fs.Parse(args) //nolint:errcheck

	cfg, db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return fmt.Errorf("init export storage: %w", err)
	}

	logr := zap.NewNop()
	sequences := repository.NewSequenceRepository(db, logr)
	exports := service.NewExportService(service.ExportServiceParams{
		Births:       repository.NewBirthRepository(db, sequences),
		Marriages:    repository.NewMarriageRepository(db, sequences),
		Deaths:       repository.NewDeathRepository(db, sequences),
		Certificates: repository.NewCertificateRepository(db),
		Storage:      exportStorage,
		Signer:       storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		Logger:       logr,
		Config:       service.ExportConfig{APIPrefix: cfg.APIPrefix},
	})

	result, err := exports.Generate(ctx, cliActor, service.ExportRequest{
		Type:   service.ExportType(*recordType),
		Format: service.ExportFormat(*format),
		Region: *region,
		Year:   *year,
	})
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"File", "Rows", "Download URL", "Expires"})
	table.Append([]string{result.RelativePath, strconv.Itoa(result.Rows), result.URL, result.ExpiresAt.Format(time.RFC3339)})
	table.Render()
	color.Green("Export written to %s", exportStorage.Path(result.RelativePath))
	return nil
}

func runCleanupExports() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return fmt.Errorf("init export storage: %w", err)
	}
	removed, err := exportStorage.CleanupOlderThan(exportRetention)
	if err != nil {
		return err
	}
	color.Green("Removed %d expired export files", len(removed))
	return nil
}
