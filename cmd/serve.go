package cmd

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/launchforge/secscan/database"
	gqlschema "github.com/launchforge/secscan/graphql"
	"github.com/launchforge/secscan/intel"
	"github.com/launchforge/secscan/scanner"
	"github.com/launchforge/secscan/server"
	"github.com/launchforge/secscan/util"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the secscan API server",
	Long: `Connects to ArangoDB, loads the threat intelligence catalog, and serves
the scan, triage, and GraphQL endpoints until terminated.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Optional .env file for local development
	_ = godotenv.Load()

	// Initialize database connection
	db := database.InitializeDatabase()

	// Initialize GraphQL schema
	gqlschema.InitDB(db)
	schema, err := gqlschema.CreateSchema()
	if err != nil {
		log.Fatalf("Failed to create GraphQL schema: %v", err)
	}

	// Load the threat intelligence catalog, with an optional per-deployment
	// override directory
	intelDir := util.GetEnvDefault("SECSCAN_INTEL_DIR", "")
	if intelDir != "" && !util.FileExists(intelDir) {
		log.Printf("Intel directory %s not found, using embedded catalog", intelDir)
		intelDir = ""
	}
	catalog, err := intel.Load(intelDir)
	if err != nil {
		log.Fatalf("Failed to load intel catalog: %v", err)
	}

	engine := scanner.NewEngine(catalog, limitsFromEnv())
	store := database.NewReportStore(db)
	svc := scanner.NewService(engine, store)

	app := server.New(svc, store, schema)

	// Get port from environment or default to 3000
	port := util.GetEnvDefault("MS_PORT", "3000")

	// Start server
	log.Printf("Starting server on port %s", port)
	log.Printf("GraphQL endpoint available at /api/v1/graphql")
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	return nil
}

// limitsFromEnv applies scan budget overrides from the environment
func limitsFromEnv() scanner.Limits {
	limits := scanner.DefaultLimits()

	if v := os.Getenv("SECSCAN_MAX_FILES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limits.MaxFiles = n
		}
	}
	if v := os.Getenv("SECSCAN_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			limits.MaxFileSize = n
		}
	}
	if v := os.Getenv("SECSCAN_SCAN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			limits.Timeout = d
		}
	}

	return limits
}
