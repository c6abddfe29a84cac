// Package server provides the HTTP surface of secscan: scan triggering,
// triage toggles, report deletion, and the GraphQL query endpoint.
package server

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/graphql-go/graphql"

	"github.com/launchforge/secscan/database"
	"github.com/launchforge/secscan/model"
	"github.com/launchforge/secscan/scanner"
	"github.com/launchforge/secscan/util"
)

// ScanTrigger starts scans in the background
type ScanTrigger interface {
	TriggerScan(ctx context.Context, target scanner.Target) (*model.SecurityReport, error)
}

// TriageStore mutates the two post-scan triage flags and deletes reports
type TriageStore interface {
	SetVulnerabilityResolved(ctx context.Context, key string, resolved bool) (*model.Vulnerability, error)
	SetRecommendationImplemented(ctx context.Context, key string, implemented bool) (*model.Recommendation, error)
	DeleteReport(ctx context.Context, key string) error
}

// ScanResponse returns the result of scan trigger operations
type ScanResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ReportKey string `json:"report_key,omitempty"`
}

// UpdateResponse returns the result of PATCH and DELETE operations
type UpdateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ============================================================================
// Handlers
// ============================================================================

// PostScan handles POST requests that start a background scan of a checkout
func PostScan(svc ScanTrigger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req model.ScanRequest

		// Parse request body
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ScanResponse{
				Success: false,
				Message: "Invalid request body: " + err.Error(),
			})
		}

		// Validate required fields
		if util.IsEmpty(req.RepoID) || util.IsEmpty(req.Path) {
			return c.Status(fiber.StatusBadRequest).JSON(ScanResponse{
				Success: false,
				Message: "repo_id and path are required fields",
			})
		}

		// The path must be a directory visible to the scanner host; the
		// engine re-validates, but a missing path should fail the request,
		// not the report.
		if info, err := os.Stat(req.Path); err != nil || !info.IsDir() {
			return c.Status(fiber.StatusBadRequest).JSON(ScanResponse{
				Success: false,
				Message: "path must be an existing directory on the scanner host",
			})
		}

		report, err := svc.TriggerScan(c.Context(), scanner.Target{
			RepoID:    req.RepoID,
			ProjectID: req.ProjectID,
			RootPath:  req.Path,
			CommitSha: req.CommitSha,
		})
		if err != nil {
			if errors.Is(err, scanner.ErrScanInFlight) {
				return c.Status(fiber.StatusConflict).JSON(ScanResponse{
					Success: false,
					Message: "A scan for repository " + req.RepoID + " is already running",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(ScanResponse{
				Success: false,
				Message: "Failed to start scan: " + err.Error(),
			})
		}

		// The scan continues in the background; the report key is enough to
		// poll for completion.
		return c.Status(fiber.StatusAccepted).JSON(ScanResponse{
			Success:   true,
			Message:   "Scan started for repository " + req.RepoID,
			ReportKey: report.Key,
		})
	}
}

// PatchVulnerabilityResolved handles PATCH requests toggling the resolved
// flag of one finding
func PatchVulnerabilityResolved(store TriageStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Resolved *bool `json:"resolved"`
		}

		if err := c.BodyParser(&req); err != nil || req.Resolved == nil {
			return c.Status(fiber.StatusBadRequest).JSON(UpdateResponse{
				Success: false,
				Message: "Body must be a JSON object with a boolean resolved field",
			})
		}

		key := c.Params("key")
		if _, err := store.SetVulnerabilityResolved(c.Context(), key, *req.Resolved); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(UpdateResponse{
					Success: false,
					Message: "Vulnerability not found: " + key,
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(UpdateResponse{
				Success: false,
				Message: "Failed to update vulnerability: " + err.Error(),
			})
		}

		return c.JSON(UpdateResponse{
			Success: true,
			Message: "Vulnerability " + key + " updated",
		})
	}
}

// PatchRecommendationImplemented handles PATCH requests toggling the
// implemented flag of one recommendation
func PatchRecommendationImplemented(store TriageStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Implemented *bool `json:"implemented"`
		}

		if err := c.BodyParser(&req); err != nil || req.Implemented == nil {
			return c.Status(fiber.StatusBadRequest).JSON(UpdateResponse{
				Success: false,
				Message: "Body must be a JSON object with a boolean implemented field",
			})
		}

		key := c.Params("key")
		if _, err := store.SetRecommendationImplemented(c.Context(), key, *req.Implemented); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(UpdateResponse{
					Success: false,
					Message: "Recommendation not found: " + key,
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(UpdateResponse{
				Success: false,
				Message: "Failed to update recommendation: " + err.Error(),
			})
		}

		return c.JSON(UpdateResponse{
			Success: true,
			Message: "Recommendation " + key + " updated",
		})
	}
}

// DeleteReport handles DELETE requests removing a report and all of its
// child records
func DeleteReport(store TriageStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")

		if err := store.DeleteReport(c.Context(), key); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(UpdateResponse{
					Success: false,
					Message: "Report not found: " + key,
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(UpdateResponse{
				Success: false,
				Message: "Failed to delete report: " + err.Error(),
			})
		}

		return c.JSON(UpdateResponse{
			Success: true,
			Message: "Report " + key + " and its findings deleted",
		})
	}
}

// GraphQLHandler handles GraphQL requests
func GraphQLHandler(schema graphql.Schema) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var params struct {
			Query         string                 `json:"query"`
			OperationName string                 `json:"operationName"`
			Variables     map[string]interface{} `json:"variables"`
		}

		if err := c.BodyParser(&params); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"errors": []map[string]interface{}{
					{
						"message": "Invalid request body",
					},
				},
			})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  params.Query,
			VariableValues: params.Variables,
			OperationName:  params.OperationName,
		})

		if len(result.Errors) > 0 {
			log.Printf("GraphQL errors: %v", result.Errors)
		}

		return c.JSON(result)
	}
}

// ============================================================================
// App assembly
// ============================================================================

// New builds the Fiber app with middleware and all routes wired
func New(svc ScanTrigger, store TriageStore, schema graphql.Schema) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:     "secscan API v1.0",
		ReadTimeout: time.Second * 60,
	})

	// Middleware
	app.Use(fiberrecover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
		})
	})

	// API routes
	api := app.Group("/api/v1")

	api.Post("/scans", PostScan(svc))
	api.Patch("/vulnerabilities/:key/resolved", PatchVulnerabilityResolved(store))
	api.Patch("/recommendations/:key/implemented", PatchRecommendationImplemented(store))
	api.Delete("/reports/:key", DeleteReport(store))

	// GraphQL endpoint - replaces all GET endpoints
	api.Post("/graphql", GraphQLHandler(schema))

	return app
}
