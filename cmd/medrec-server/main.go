package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medrec/medrec/internal/config"
	"github.com/medrec/medrec/internal/domain/clinical"
	"github.com/medrec/medrec/internal/domain/directory"
	"github.com/medrec/medrec/internal/domain/encounter"
	"github.com/medrec/medrec/internal/domain/medication"
	"github.com/medrec/medrec/internal/domain/observation"
	"github.com/medrec/medrec/internal/domain/organization"
	"github.com/medrec/medrec/internal/domain/patient"
	"github.com/medrec/medrec/internal/domain/practitioner"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/db"
	"github.com/medrec/medrec/internal/platform/fhir"
	"github.com/medrec/medrec/internal/platform/middleware"
	"github.com/medrec/medrec/internal/platform/openapi"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "medrec-server",
		Short: "FHIR R5 medical records API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s).\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a local account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			rolesFlag, _ := cmd.Flags().GetString("roles")
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			store := auth.NewUserStorePG(pool)
			user := &auth.User{
				Username:     username,
				PasswordHash: hash,
				Roles:        strings.Split(rolesFlag, ","),
				Active:       true,
			}
			if err := store.Create(ctx, user); err != nil {
				return err
			}

			fmt.Printf("Created user %s (%s) with roles %v\n", user.Username, user.ID, user.Roles)
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Account username")
	createCmd.Flags().String("password", "", "Account password")
	createCmd.Flags().String("roles", "admin", "Comma-separated roles")
	cmd.AddCommand(createCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(echomw.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Token issuance
	issuer := auth.NewIssuer(auth.IssuerConfig{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		AccessTTL:  cfg.AccessTokenDuration(),
		RefreshTTL: cfg.RefreshTokenDuration(),
	})
	userStore := auth.NewUserStorePG(pool)
	authHandler := auth.NewHandler(issuer, userStore)
	authHandler.RegisterRoutes(e.Group("/auth"))

	// Protected API groups
	apiV1 := e.Group("/api/v1")
	fhirGroup := e.Group("/fhir")

	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware(issuer))
		fhirGroup.Use(auth.DevAuthMiddleware(issuer))
	} else {
		apiV1.Use(auth.JWTMiddleware(issuer))
		fhirGroup.Use(auth.JWTMiddleware(issuer))
	}

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	fhirGroup.Use(middleware.RateLimit(rateLimitCfg))

	// Health check
	e.GET("/health", db.HealthHandler(pool))

	// Dynamic CapabilityStatement
	baseURL := fmt.Sprintf("http://localhost:%s/fhir", cfg.Port)
	capBuilder := fhir.NewCapabilityBuilder(baseURL, version)

	capBuilder.AddResource("Patient", fhir.DefaultInteractions(), []fhir.SearchParam{
		{Name: "name", Type: "string"},
		{Name: "family", Type: "string"},
		{Name: "given", Type: "string"},
		{Name: "birthdate", Type: "date"},
		{Name: "gender", Type: "token"},
		{Name: "identifier", Type: "token"},
	})
	capBuilder.AddResource("RelatedPerson", fhir.DefaultInteractions(), []fhir.SearchParam{
		{Name: "patient", Type: "reference"},
		{Name: "relationship", Type: "token"},
	})
	capBuilder.AddResource("Practitioner", fhir.DefaultInteractions(), []fhir.SearchParam{
		{Name: "name", Type: "string"},
		{Name: "family", Type: "string"},
		{Name: "identifier", Type: "token"},
		{Name: "active", Type: "token"},
	})
	capBuilder.AddResource("PractitionerRole", fhir.DefaultInteractions(), []fhir.SearchParam{
		{Name: "practitioner", Type: "reference"},
		{Name: "organization", Type: "reference"},
		{Name: "role", Type: "token"},
		{Name: "specialty", Type: "token"},
	})
	capBuilder.AddResource("Organization", fhir.DefaultInteractions(), []fhir.SearchParam{
		{Name: "name", Type: "string"},
		{Name: "identifier", Type: "token"},
		{Name: "type", Type: "token"},
		{Name: "active", Type: "token"},
		{Name: "partof", Type: "reference"},
	})
	capBuilder.AddResource("Encounter", fhir.DefaultInteractions(), []fhir.SearchParam{
		{Name: "patient", Type: "reference"},
		{Name: "status", Type: "token"},
		{Name: "class", Type: "token"},
		{Name: "date", Type: "date"},
		{Name: "practitioner", Type: "reference"},
	})
	capBuilder.AddResource("Observation", fhir.DefaultInteractions(), []fhir.SearchParam{
		{Name: "patient", Type: "reference"},
		{Name: "category", Type: "token"},
		{Name: "code", Type: "token"},
		{Name: "date", Type: "date"},
		{Name: "status", Type: "token"},
		{Name: "value-quantity", Type: "number"},
	})
	capBuilder.AddResource("Condition", fhir.DefaultInteractions(), []fhir.SearchParam{
		{Name: "patient", Type: "reference"},
		{Name: "clinical-status", Type: "token"},
		{Name: "category", Type: "token"},
		{Name: "code", Type: "token"},
	})
	capBuilder.AddResource("AllergyIntolerance", fhir.DefaultInteractions(), []fhir.SearchParam{
		{Name: "patient", Type: "reference"},
		{Name: "clinical-status", Type: "token"},
		{Name: "type", Type: "token"},
		{Name: "criticality", Type: "token"},
	})
	capBuilder.AddResource("Medication", fhir.DefaultInteractions(), []fhir.SearchParam{
		{Name: "code", Type: "token"},
		{Name: "status", Type: "token"},
		{Name: "form", Type: "token"},
		{Name: "ingredient", Type: "token"},
	})
	capBuilder.AddResource("Location", fhir.DefaultInteractions(), []fhir.SearchParam{
		{Name: "name", Type: "string"},
		{Name: "status", Type: "token"},
		{Name: "type", Type: "token"},
		{Name: "organization", Type: "reference"},
	})
	capBuilder.AddResource("HealthcareService", fhir.DefaultInteractions(), []fhir.SearchParam{
		{Name: "name", Type: "string"},
		{Name: "active", Type: "token"},
		{Name: "organization", Type: "reference"},
		{Name: "location", Type: "reference"},
	})
	capBuilder.AddResource("Endpoint", fhir.DefaultInteractions(), []fhir.SearchParam{
		{Name: "status", Type: "token"},
		{Name: "connection-type", Type: "token"},
		{Name: "organization", Type: "reference"},
	})

	// CapabilityStatement stays public
	e.GET("/fhir/metadata", fhir.CapabilityHandler(capBuilder))

	// OpenAPI spec and docs
	openAPIGen := openapi.NewGenerator(capBuilder, version, baseURL)
	openAPIGen.RegisterRoutes(e)

	// Resource versioning
	historyRepo := fhir.NewHistoryRepository(pool)
	versionTracker := fhir.NewVersionTracker(historyRepo)

	// -- Domain handlers --

	patientSvc := patient.NewService(patient.NewRepo(pool))
	patientSvc.SetVersionTracker(versionTracker)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1, fhirGroup)

	practSvc := practitioner.NewService(practitioner.NewRepo(pool))
	practSvc.SetVersionTracker(versionTracker)
	practitioner.NewHandler(practSvc).RegisterRoutes(apiV1, fhirGroup)

	orgSvc := organization.NewService(organization.NewRepo(pool))
	orgSvc.SetVersionTracker(versionTracker)
	organization.NewHandler(orgSvc).RegisterRoutes(apiV1, fhirGroup)

	encSvc := encounter.NewService(encounter.NewRepo(pool))
	encSvc.SetVersionTracker(versionTracker)
	encounter.NewHandler(encSvc).RegisterRoutes(apiV1, fhirGroup)

	obsSvc := observation.NewService(observation.NewRepo(pool))
	obsSvc.SetVersionTracker(versionTracker)
	observation.NewHandler(obsSvc).RegisterRoutes(apiV1, fhirGroup)

	clinicalSvc := clinical.NewService(clinical.NewRepo(pool))
	clinicalSvc.SetVersionTracker(versionTracker)
	clinical.NewHandler(clinicalSvc).RegisterRoutes(apiV1, fhirGroup)

	medSvc := medication.NewService(medication.NewRepo(pool))
	medSvc.SetVersionTracker(versionTracker)
	medication.NewHandler(medSvc).RegisterRoutes(apiV1, fhirGroup)

	dirSvc := directory.NewService(directory.NewRepo(pool))
	dirSvc.SetVersionTracker(versionTracker)
	directory.NewHandler(dirSvc).RegisterRoutes(apiV1, fhirGroup)

	// Start with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
