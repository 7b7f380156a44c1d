package retrieve

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/XiaoConstantine/prodeval/internal/logger"
	"github.com/XiaoConstantine/prodeval/pkg/benchgen"
	"github.com/XiaoConstantine/prodeval/pkg/catalog"
	"github.com/XiaoConstantine/prodeval/pkg/eval"
)

// ErrFTSUnavailable is returned when the SQLite build lacks the fts5 module.
var ErrFTSUnavailable = errors.New("sqlite fts5 module not available")

// FTSIndex is a full-text index over the catalog backed by SQLite FTS5.
type FTSIndex struct {
	db  *sql.DB
	log logger.Logger
}

// NewFTSIndex indexes every item of table into the database at path.
// An empty path keeps the index in memory.
func NewFTSIndex(ctx context.Context, path string, table *catalog.Table, log logger.Logger) (*FTSIndex, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	idx := &FTSIndex{db: db, log: logger.OrNop(log)}
	if err := idx.build(ctx, table); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (x *FTSIndex) build(ctx context.Context, table *catalog.Table) error {
	stmts := []string{
		`DROP TABLE IF EXISTS products_fts`,
		`CREATE VIRTUAL TABLE products_fts USING fts5(
			item_id UNINDEXED,
			name,
			brand,
			category,
			capacity,
			olfactory,
			description
		)`,
	}
	for _, q := range stmts {
		if _, err := x.db.ExecContext(ctx, q); err != nil {
			if strings.Contains(err.Error(), "no such module: fts5") {
				return ErrFTSUnavailable
			}
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products_fts(item_id, name, brand, category, capacity, olfactory, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	groups := table.Groups()
	for _, it := range table.Items() {
		var member []string
		for _, g := range groups {
			if it.InGroup(g) {
				member = append(member, g)
			}
		}
		if _, err := stmt.ExecContext(ctx, string(it.ID), it.Name, it.Brand, it.Category,
			it.Capacity, strings.Join(member, " "), it.Description); err != nil {
			return fmt.Errorf("index item %s: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	x.log.Info("full-text index built", map[string]interface{}{"items": table.Len()})
	return nil
}

// Method implements Retriever.
func (x *FTSIndex) Method() eval.Method { return eval.MethodText }

// Retrieve searches for the query's shopper phrasing.
func (x *FTSIndex) Retrieve(ctx context.Context, q benchgen.QuerySpec) ([]catalog.ItemID, error) {
	return x.Search(ctx, Keywords(q))
}

// Search returns the ids of items containing every meaningful term of text.
// Text without meaningful terms matches nothing.
func (x *FTSIndex) Search(ctx context.Context, text string) ([]catalog.ItemID, error) {
	terms := ExtractSearchTerms(text)
	if terms == "" {
		return []catalog.ItemID{}, nil
	}

	rows, err := x.db.QueryContext(ctx, `SELECT item_id FROM products_fts WHERE products_fts MATCH ?`, terms)
	if err != nil {
		return nil, fmt.Errorf("full-text query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []catalog.ItemID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, catalog.ItemID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sortedUnique(ids), nil
}

// Close releases the database.
func (x *FTSIndex) Close() error {
	return x.db.Close()
}
