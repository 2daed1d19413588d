package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/szz00712/bibliometrix/internal/network"
)

// NetworkFrom converts a TermNetwork into its storable form.
func NetworkFrom(net *network.TermNetwork, name string) *Network {
	return &Network{
		Field:  net.Field,
		Name:   name,
		Terms:  net.Terms(),
		Matrix: net.Rows(),
	}
}

// TermNetwork rebuilds the in-memory network.
func (n *Network) TermNetwork() (*network.TermNetwork, error) {
	return network.New(n.Field, n.Terms, n.Matrix)
}

// SaveNetwork inserts n and returns its new id. n.ID and n.ImportedAt are set.
func (s *SQLiteStore) SaveNetwork(ctx context.Context, n *Network) (int64, error) {
	if n == nil || len(n.Terms) == 0 {
		return 0, fmt.Errorf("saving network: no terms")
	}
	terms, err := json.Marshal(n.Terms)
	if err != nil {
		return 0, fmt.Errorf("encoding terms: %w", err)
	}
	matrix, err := json.Marshal(n.Matrix)
	if err != nil {
		return 0, fmt.Errorf("encoding matrix: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO networks (field, name, terms_json, matrix_json, imported_at)
		 VALUES (?, ?, ?, ?, ?)`,
		n.Field, n.Name, string(terms), string(matrix), now,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting network: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting network id: %w", err)
	}
	n.ID = id
	n.ImportedAt = now
	return id, nil
}

// GetNetwork returns the network with the given id.
func (s *SQLiteStore) GetNetwork(ctx context.Context, id int64) (*Network, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, field, name, terms_json, matrix_json, imported_at
		 FROM networks WHERE id = ?`, id)
	n, err := scanNetwork(row)
	if err != nil {
		return nil, fmt.Errorf("getting network %d: %w", id, err)
	}
	return n, nil
}

// GetNetworkByField returns the most recently imported network for field.
func (s *SQLiteStore) GetNetworkByField(ctx context.Context, field string) (*Network, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, field, name, terms_json, matrix_json, imported_at
		 FROM networks WHERE field = ?
		 ORDER BY imported_at DESC, id DESC LIMIT 1`, field)
	n, err := scanNetwork(row)
	if err != nil {
		return nil, fmt.Errorf("getting network for field %q: %w", field, err)
	}
	return n, nil
}

// ListNetworks returns all stored networks, newest first.
func (s *SQLiteStore) ListNetworks(ctx context.Context) ([]*NetworkInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, field, name, json_array_length(terms_json), imported_at
		 FROM networks ORDER BY imported_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing networks: %w", err)
	}
	defer rows.Close()

	var out []*NetworkInfo
	for rows.Next() {
		info := &NetworkInfo{}
		if err := rows.Scan(&info.ID, &info.Field, &info.Name, &info.Terms, &info.ImportedAt); err != nil {
			return nil, fmt.Errorf("scanning network: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func scanNetwork(row *sql.Row) (*Network, error) {
	n := &Network{}
	var terms, matrix string
	err := row.Scan(&n.ID, &n.Field, &n.Name, &terms, &matrix, &n.ImportedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(terms), &n.Terms); err != nil {
		return nil, fmt.Errorf("decoding terms: %w", err)
	}
	if err := json.Unmarshal([]byte(matrix), &n.Matrix); err != nil {
		return nil, fmt.Errorf("decoding matrix: %w", err)
	}
	return n, nil
}
