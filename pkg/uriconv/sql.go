package uriconv

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/jacoelho/ecore/pkg/uri"
)

// SQLScheme is the scheme served by SQL: db:/any/path.xml.
const SQLScheme = "db"

// DefaultTable holds documents when no table name is given.
const DefaultTable = "ecore_documents"

// Dialect selects placeholder and column syntax.
type Dialect uint8

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

func (d Dialect) placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (d Dialect) blobType() string {
	if d == DialectPostgres {
		return "BYTEA"
	}
	return "BLOB"
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQL stores documents as rows of a (uri, body) table.
type SQL struct {
	db      *sql.DB
	table   string
	dialect Dialect
}

// NewSQL returns a handler over db and creates the document table when it
// does not exist.
func NewSQL(ctx context.Context, db *sql.DB, table string, dialect Dialect) (*SQL, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	h := &SQL{db: db, table: table, dialect: dialect}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		uri TEXT PRIMARY KEY,
		body %s NOT NULL
	)`, table, dialect.blobType())
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create %s table: %w", table, err)
	}
	return h, nil
}

// CanHandle accepts db: URIs.
func (h *SQL) CanHandle(u uri.URI) bool { return u.Scheme() == SQLScheme }

// Open reads the row stored for u.
func (h *SQL) Open(ctx context.Context, u uri.URI) (io.ReadCloser, error) {
	q := fmt.Sprintf(`SELECT body FROM %s WHERE uri = %s`, h.table, h.dialect.placeholder(1))
	var body []byte
	err := h.db.QueryRowContext(ctx, q, u.String()).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("open %s: %w", u, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", u, err)
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

// Create returns a writer upserting the row for u on Close.
func (h *SQL) Create(ctx context.Context, u uri.URI) (io.WriteCloser, error) {
	q := fmt.Sprintf(`INSERT INTO %s (uri, body) VALUES (%s, %s)
		ON CONFLICT (uri) DO UPDATE SET body = excluded.body`,
		h.table, h.dialect.placeholder(1), h.dialect.placeholder(2))
	return &bufferWriter{commit: func(data []byte) error {
		if data == nil {
			data = []byte{}
		}
		if _, err := h.db.ExecContext(ctx, q, u.String(), data); err != nil {
			return fmt.Errorf("create %s: %w", u, err)
		}
		return nil
	}}, nil
}

// List returns the stored URIs starting with prefix, in order.
func (h *SQL) List(ctx context.Context, prefix string) ([]uri.URI, error) {
	q := fmt.Sprintf(`SELECT uri FROM %s ORDER BY uri`, h.table)
	rows, err := h.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []uri.URI
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if strings.HasPrefix(s, prefix) {
			out = append(out, uri.New(s))
		}
	}
	return out, rows.Err()
}
