package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/UnknownOlympus/locator/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const schemaQuery = `
	CREATE TABLE IF NOT EXISTS resolved_addresses (
		id BIGSERIAL PRIMARY KEY,
		country_code VARCHAR(3) NOT NULL,
		city VARCHAR(255) NOT NULL,
		street VARCHAR(255) NOT NULL,
		postcode VARCHAR(16) NOT NULL,
		latitude DOUBLE PRECISION NULL,
		longitude DOUBLE PRECISION NULL,
		resolved_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (country_code, city, street, postcode)
	);
`

const lookupQuery = `
	SELECT id, latitude, longitude, resolved_at
	FROM resolved_addresses
	WHERE
		country_code = $1
		AND city = $2
		AND street = $3
		AND postcode = $4;
`

const saveQuery = `
	INSERT INTO resolved_addresses (country_code, city, street, postcode, latitude, longitude)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (country_code, city, street, postcode) DO NOTHING;
`

// EnsureSchema creates the resolved_addresses table if it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaQuery); err != nil {
		return fmt.Errorf("failed to create resolved_addresses table: %w", err)
	}

	return nil
}

// Lookup returns the stored record for the address, or nil when the address
// has never been resolved. A record with NULL coordinates is a known miss.
func (r *Repository) Lookup(ctx context.Context, address models.Address) (*models.ResolvedAddress, error) {
	var (
		record   = models.ResolvedAddress{Address: address}
		lat, lng pgtype.Float8
	)

	err := r.db.QueryRow(ctx, lookupQuery, address.Country, address.City, address.Street, address.Postcode).
		Scan(&record.ID, &lat, &lng, &record.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query resolved address: %w", err)
	}

	if lat.Valid && lng.Valid {
		record.Coordinates = &models.Coordinates{Latitude: lat.Float64, Longitude: lng.Float64}
	}

	r.log.DebugContext(ctx, "Resolved address found in storage",
		"ID", record.ID, "address", address.String(), "miss", record.IsMiss())

	return &record, nil
}

// SaveIfNotExist stores coordinates for the address unless a record already
// exists. Nil coordinates store a known miss. The first writer wins; it reports
// whether this call inserted the record.
func (r *Repository) SaveIfNotExist(
	ctx context.Context,
	address models.Address,
	coords *models.Coordinates,
) (bool, error) {
	var lat, lng pgtype.Float8
	if coords != nil {
		lat = pgtype.Float8{Float64: coords.Latitude, Valid: true}
		lng = pgtype.Float8{Float64: coords.Longitude, Valid: true}
	}

	tag, err := r.db.Exec(ctx, saveQuery,
		address.Country, address.City, address.Street, address.Postcode, lat, lng)
	if err != nil {
		return false, fmt.Errorf("failed to save resolved address: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
