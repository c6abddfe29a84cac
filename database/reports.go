// Package database - report store: lifecycle writes, triage toggles, and
// cascade delete for scan reports and their child records
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/launchforge/secscan/model"
)

// ErrNotFound is returned when a requested document does not exist
var ErrNotFound = errors.New("document not found")

// ErrBadTransition is returned when a report status update would violate the
// PENDING -> SCANNING -> COMPLETED/FAILED lifecycle
var ErrBadTransition = errors.New("illegal report status transition")

// ReportStore persists scan reports with their findings, dependency risks,
// and recommendations
type ReportStore struct {
	conn DBConnection
}

// NewReportStore wraps an initialized database connection
func NewReportStore(conn DBConnection) *ReportStore {
	return &ReportStore{conn: conn}
}

// CreateReport inserts a new report document
func (s *ReportStore) CreateReport(ctx context.Context, report *model.SecurityReport) error {
	meta, err := s.conn.Collections["report"].CreateDocument(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	report.Key = meta.Key
	return nil
}

// UpdateReportStatus moves a report from one lifecycle status to another.
// The current status is checked inside the query, so a report that already
// left the expected state is never overwritten.
func (s *ReportStore) UpdateReportStatus(ctx context.Context, key string, from, to model.ScanStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, from, to)
	}

	query := `
		FOR r IN report
			FILTER r._key == @key AND r.status == @from
			UPDATE r WITH { status: @to } IN report
			RETURN NEW._key
	`
	bindVars := map[string]interface{}{
		"key":  key,
		"from": string(from),
		"to":   string(to),
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return fmt.Errorf("%w: report %s is not %s", ErrBadTransition, key, from)
	}
	return nil
}

// CompleteReport persists the results of a finished scan. Children are
// inserted before the report leaves SCANNING, so a COMPLETED report is never
// observed without its findings.
func (s *ReportStore) CompleteReport(ctx context.Context, report *model.SecurityReport,
	findings []model.Vulnerability, risks []model.DependencyRisk, recs []model.Recommendation) error {

	if err := batchInsert(ctx, s.conn, "vulnerability", findings); err != nil {
		return err
	}
	if err := batchInsert(ctx, s.conn, "dependencyrisk", risks); err != nil {
		return err
	}
	if err := batchInsert(ctx, s.conn, "recommendation", recs); err != nil {
		return err
	}

	query := `
		FOR r IN report
			FILTER r._key == @key AND r.status == "SCANNING"
			REPLACE r WITH @report IN report
			RETURN NEW._key
	`
	bindVars := map[string]interface{}{
		"key":    report.Key,
		"report": report,
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return fmt.Errorf("failed to complete report %s: %w", report.Key, err)
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return fmt.Errorf("%w: report %s is not SCANNING", ErrBadTransition, report.Key)
	}
	return nil
}

// FailReport marks a non-terminal report FAILED and records the cause
func (s *ReportStore) FailReport(ctx context.Context, key, cause string) error {
	query := `
		FOR r IN report
			FILTER r._key == @key AND r.status IN ["PENDING", "SCANNING"]
			UPDATE r WITH { status: "FAILED", error: @cause } IN report
			RETURN NEW._key
	`
	bindVars := map[string]interface{}{
		"key":   key,
		"cause": cause,
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return fmt.Errorf("%w: report %s is already terminal or missing", ErrBadTransition, key)
	}
	return nil
}

// SetVulnerabilityResolved updates the resolved flag of one finding and
// returns the updated document. Resolved is the only field touched.
func (s *ReportStore) SetVulnerabilityResolved(ctx context.Context, key string, resolved bool) (*model.Vulnerability, error) {
	query := `
		FOR v IN vulnerability
			FILTER v._key == @key
			UPDATE v WITH { resolved: @resolved } IN vulnerability
			RETURN NEW
	`
	bindVars := map[string]interface{}{
		"key":      key,
		"resolved": resolved,
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return nil, ErrNotFound
	}

	var vuln model.Vulnerability
	if _, err := cursor.ReadDocument(ctx, &vuln); err != nil {
		return nil, err
	}
	return &vuln, nil
}

// SetRecommendationImplemented updates the implemented flag of one
// recommendation and returns the updated document
func (s *ReportStore) SetRecommendationImplemented(ctx context.Context, key string, implemented bool) (*model.Recommendation, error) {
	query := `
		FOR c IN recommendation
			FILTER c._key == @key
			UPDATE c WITH { implemented: @implemented } IN recommendation
			RETURN NEW
	`
	bindVars := map[string]interface{}{
		"key":         key,
		"implemented": implemented,
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return nil, ErrNotFound
	}

	var rec model.Recommendation
	if _, err := cursor.ReadDocument(ctx, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteReport removes a report and sweeps all child records keyed to it in
// a single query
func (s *ReportStore) DeleteReport(ctx context.Context, key string) error {
	query := `
		LET removedVulns = (
			FOR v IN vulnerability
				FILTER v.report_key == @key
				REMOVE v IN vulnerability
		)
		LET removedRisks = (
			FOR d IN dependencyrisk
				FILTER d.report_key == @key
				REMOVE d IN dependencyrisk
		)
		LET removedRecs = (
			FOR c IN recommendation
				FILTER c.report_key == @key
				REMOVE c IN recommendation
		)
		FOR r IN report
			FILTER r._key == @key
			REMOVE r IN report
			RETURN OLD._key
	`
	bindVars := map[string]interface{}{
		"key": key,
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return ErrNotFound
	}
	return nil
}

// batchInsert inserts a slice of documents into a collection in one query
func batchInsert[T any](ctx context.Context, conn DBConnection, collection string, docs []T) error {
	if len(docs) == 0 {
		return nil
	}

	query := `
		FOR doc IN @docs
			INSERT doc INTO @@collection
	`

	bindVars := map[string]interface{}{
		"@collection": collection,
		"docs":        docs,
	}

	cursor, err := conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	cursor.Close()

	return nil
}
