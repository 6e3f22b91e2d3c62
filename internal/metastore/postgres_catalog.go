package metastore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PostgresCatalog is a DEPRECATED, compatibility-shim read/write
// binding for deployments that bootstrap the metastore against an
// existing Postgres-tracked Iceberg catalog rather than iceberg-go's
// native REST/Glue catalogs — adapted from the teacher's
// IcebergCatalog/newPostgresClient()+jackc/pgx wrapper. New
// deployments should use InMemory + IcebergBinding instead.
type PostgresCatalog struct {
	connString string
}

func NewPostgresCatalog(connString string) *PostgresCatalog {
	return &PostgresCatalog{connString: connString}
}

func (c *PostgresCatalog) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, c.connString)
	if err != nil {
		return nil, ErrBackend(err)
	}
	return conn, nil
}

// MetadataLocation reads the current metadata_location for a table
// tracked in the legacy `iceberg_tables` relation.
func (c *PostgresCatalog) MetadataLocation(ctx context.Context, ident TableIdent) (string, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close(ctx)

	var location string
	err = conn.QueryRow(
		ctx,
		"SELECT metadata_location FROM iceberg_tables WHERE table_namespace=$1 AND table_name=$2",
		ident.Schema, ident.Table,
	).Scan(&location)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", ErrNotFound("table", ident.Table)
		}
		return "", ErrBackend(err)
	}
	return location, nil
}

// CreateTable records a new table row, mirroring the teacher's
// IcebergCatalog.CreateTable (INSERT INTO iceberg_tables).
func (c *PostgresCatalog) CreateTable(ctx context.Context, ident TableIdent, metadataLocation string, columns []map[string]string) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	columnsJSON, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("marshaling columns for %s: %w", ident, err)
	}

	_, err = conn.Exec(
		ctx,
		"INSERT INTO iceberg_tables (table_namespace, table_name, metadata_location, columns) VALUES ($1, $2, $3, $4)",
		ident.Schema, ident.Table, metadataLocation, columnsJSON,
	)
	if err != nil {
		return ErrBackend(err)
	}
	return nil
}

func (c *PostgresCatalog) DropTable(ctx context.Context, ident TableIdent) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, "DELETE FROM iceberg_tables WHERE table_namespace=$1 AND table_name=$2", ident.Schema, ident.Table)
	if err != nil {
		return ErrBackend(err)
	}
	return nil
}
