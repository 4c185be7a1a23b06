package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb"
	"github.com/rs/zerolog/log"
)

type mangoIndex struct {
	name   string
	fields []string
}

var indexes = []mangoIndex{
	{name: "by-type-user", fields: []string{"doc_type", "user_id"}},
	{name: "by-type-note", fields: []string{"doc_type", "note_id"}},
	{name: "by-type-id", fields: []string{"doc_type", "id"}},
}

// Gateway owns the CouchDB client and the one-time database setup shared by
// every repository.
type Gateway struct {
	client *kivik.Client
	dbName string

	schemaOnce sync.Once
	schemaErr  error
}

func NewGateway(dsn, dbName string) (*Gateway, error) {
	client, err := kivik.New("couch", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to CouchDB: %w", err)
	}

	return &Gateway{
		client: client,
		dbName: dbName,
	}, nil
}

// EnsureSchema creates the database and its Mango indexes. It runs at most
// once per Gateway; later calls return the first result.
func (g *Gateway) EnsureSchema(ctx context.Context) error {
	g.schemaOnce.Do(func() {
		g.schemaErr = g.ensureSchema(ctx)
	})
	return g.schemaErr
}

func (g *Gateway) ensureSchema(ctx context.Context) error {
	exists, err := g.client.DBExists(ctx, g.dbName)
	if err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}

	if !exists {
		if err := g.client.CreateDB(ctx, g.dbName); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		log.Info().Str("db", g.dbName).Msg("created database")
	}

	db := g.client.DB(g.dbName)
	for _, idx := range indexes {
		index := map[string]interface{}{
			"fields": idx.fields,
		}
		if err := db.CreateIndex(ctx, "noteforge-"+idx.name, idx.name, index); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}

func (g *Gateway) DB() *kivik.DB {
	return g.client.DB(g.dbName)
}

func (g *Gateway) Close() error {
	return g.client.Close()
}
