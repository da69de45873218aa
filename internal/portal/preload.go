package portal

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/store"
)

// Preload fetches every read mark and every approved mark of the pair with
// two concurrent queries, replacing one lookup pair per file.
func Preload(ctx context.Context, repo store.Repository, projectID, customerID string) (*ReadApprovalSets, error) {
	var readIDs, approvedIDs []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := repo.Query(gctx, store.Query{Collection: ReadMarksCollection}.
			Filter("projectId", projectID).
			Filter("customerId", customerID))
		if err != nil {
			return fmt.Errorf("failed to query read marks: %w", err)
		}
		readIDs = publicIDs(docs)
		return nil
	})
	g.Go(func() error {
		docs, err := repo.Query(gctx, store.Query{Collection: ApprovalsCollection}.
			Filter("projectId", projectID).
			Filter("customerId", customerID).
			Filter("status", string(models.ReportApproved)))
		if err != nil {
			return fmt.Errorf("failed to query approval marks: %w", err)
		}
		approvedIDs = publicIDs(docs)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewReadApprovalSets(readIDs, approvedIDs), nil
}

func publicIDs(docs []store.Document) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		if id := d.String("publicId"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
