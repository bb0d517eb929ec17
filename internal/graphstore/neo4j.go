package graphstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"doc-distill/internal/parser"
)

// Neo4jSink writes each triple as an (:Entity)-[:RELATES]->(:Entity) relationship tagged
// with the run that produced it. Entities are shared across runs.
type Neo4jSink struct {
	driver neo4j.DriverWithContext
}

// NewNeo4jDriver opens a driver and checks the server is reachable.
func NewNeo4jDriver(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return driver, nil
}

func NewNeo4jSink(driver neo4j.DriverWithContext) (*Neo4jSink, error) {
	if driver == nil {
		return nil, errors.New("neo4j driver is nil")
	}
	return &Neo4jSink{driver: driver}, nil
}

// SyncRun replaces the relationships previously written for runID.
func (s *Neo4jSink) SyncRun(ctx context.Context, runID, source string, triples []parser.Triple) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	rows := make([]map[string]any, 0, len(triples))
	for i, t := range triples {
		rows = append(rows, map[string]any{
			"ord":       i,
			"subject":   t.Subject,
			"predicate": t.Predicate,
			"object":    t.Object,
		})
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MERGE (r:Run {id: $run_id})
			SET r.source = $source,
			    r.updated_at = datetime()
		`, map[string]any{"run_id": runID, "source": source}); err != nil {
			return nil, fmt.Errorf("upsert run node: %w", err)
		}

		if _, err := tx.Run(ctx, `
			MATCH (:Entity)-[rel:RELATES {run_id: $run_id}]->(:Entity)
			DELETE rel
		`, map[string]any{"run_id": runID}); err != nil {
			return nil, fmt.Errorf("clear existing relations: %w", err)
		}

		if len(rows) == 0 {
			return nil, nil
		}
		if _, err := tx.Run(ctx, `
			MATCH (r:Run {id: $run_id})
			UNWIND $rows AS row
			MERGE (s:Entity {name: row.subject})
			MERGE (o:Entity {name: row.object})
			MERGE (r)-[:MENTIONS]->(s)
			MERGE (r)-[:MENTIONS]->(o)
			CREATE (s)-[:RELATES {predicate: row.predicate, run_id: $run_id, ord: row.ord}]->(o)
		`, map[string]any{"run_id": runID, "rows": rows}); err != nil {
			return nil, fmt.Errorf("upsert triples: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	if _, cleanupErr := session.Run(ctx, `
		MATCH (e:Entity)
		WHERE NOT (e)--()
		DELETE e
	`, nil); cleanupErr != nil {
		return cleanupErr
	}
	return nil
}

func (s *Neo4jSink) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
