package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ecobuddy/locator/apperr"
	"github.com/ecobuddy/locator/models"
	"github.com/ecobuddy/locator/search"
	"github.com/ecobuddy/locator/status"
	"github.com/ecobuddy/locator/storage"
)

func scanFacility(row pgx.Row) (models.Facility, error) {
	var f models.Facility
	var comment *string
	if err := row.Scan(
		&f.ID,
		&f.Title,
		&f.CategoryID,
		&f.CategoryName,
		&f.Description,
		&f.HouseNumber,
		&f.StreetName,
		&f.Town,
		&f.County,
		&f.Postcode,
		&f.Lat,
		&f.Lng,
		&f.Contributor,
		&comment,
		&f.CreatedAt,
	); err != nil {
		return f, err
	}
	if comment != nil {
		c := status.Comment(*comment)
		f.Comments = &c
	}
	return f, nil
}

func collect(rows pgx.Rows) ([]models.Facility, error) {
	defer rows.Close()
	out := make([]models.Facility, 0)
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Search runs the count and the paged listing inside one read-only snapshot so
// the total always agrees with the page.
func (s *Storage) Search(ctx context.Context, q search.Query) (storage.Page, error) {
	const op = "storage.postgres.Search"

	list, err := q.List()
	if err != nil {
		return storage.Page{}, err
	}
	count := q.Count()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return storage.Page{}, classify(op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var page storage.Page
	if err := tx.QueryRow(ctx, count.SQL, count.Args...).Scan(&page.Total); err != nil {
		return storage.Page{}, classify(op, err)
	}

	rows, err := tx.Query(ctx, list.SQL, list.Args...)
	if err != nil {
		return storage.Page{}, classify(op, err)
	}
	page.Facilities, err = collect(rows)
	if err != nil {
		return storage.Page{}, classify(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.Page{}, classify(op, err)
	}
	return page, nil
}

func (s *Storage) Count(ctx context.Context, q search.Query) (int, error) {
	const op = "storage.postgres.Count"

	stmt := q.Count()
	var total int
	if err := s.db.QueryRow(ctx, stmt.SQL, stmt.Args...).Scan(&total); err != nil {
		return 0, classify(op, err)
	}
	return total, nil
}

func (s *Storage) All(ctx context.Context, q search.Query) ([]models.Facility, error) {
	const op = "storage.postgres.All"

	stmt := q.All()
	rows, err := s.db.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, classify(op, err)
	}
	facilities, err := collect(rows)
	if err != nil {
		return nil, classify(op, err)
	}
	return facilities, nil
}

func (s *Storage) Get(ctx context.Context, id int64) (models.Facility, error) {
	const op = "storage.postgres.Get"

	f, err := scanFacility(s.db.QueryRow(ctx, search.SelectClause+` WHERE f.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Facility{}, fmt.Errorf("%s: %w", op, apperr.NotFound("facility %d not found", id))
	}
	if err != nil {
		return models.Facility{}, classify(op, err)
	}
	return f, nil
}

func (s *Storage) Create(ctx context.Context, in models.FacilityInput) (models.Facility, error) {
	const op = "storage.postgres.Create"

	var id int64
	err := s.db.QueryRow(ctx, `
        INSERT INTO facilities (title, category, description, house_number, street_name, town, county, postcode, lat, lng, contributor)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id`,
		in.Title, in.CategoryID, in.Description, in.HouseNumber, in.StreetName,
		in.Town, in.County, in.Postcode, in.Lat, in.Lng, in.Contributor,
	).Scan(&id)
	if err != nil {
		return models.Facility{}, classify(op, err)
	}
	return s.Get(ctx, id)
}

// Update replaces the editable fields. contributor is set once, on insert.
func (s *Storage) Update(ctx context.Context, id int64, in models.FacilityInput) (models.Facility, error) {
	const op = "storage.postgres.Update"

	tag, err := s.db.Exec(ctx, `
        UPDATE facilities
        SET title = $1, category = $2, description = $3, house_number = $4, street_name = $5,
            town = $6, county = $7, postcode = $8, lat = $9, lng = $10
        WHERE id = $11`,
		in.Title, in.CategoryID, in.Description, in.HouseNumber, in.StreetName,
		in.Town, in.County, in.Postcode, in.Lat, in.Lng, id,
	)
	if err != nil {
		return models.Facility{}, classify(op, err)
	}
	if tag.RowsAffected() == 0 {
		return models.Facility{}, fmt.Errorf("%s: %w", op, apperr.NotFound("facility %d not found", id))
	}
	return s.Get(ctx, id)
}

func (s *Storage) Delete(ctx context.Context, id int64) error {
	const op = "storage.postgres.Delete"

	tag, err := s.db.Exec(ctx, `DELETE FROM facilities WHERE id = $1`, id)
	if err != nil {
		return classify(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, apperr.NotFound("facility %d not found", id))
	}
	return nil
}

func (s *Storage) UpdateComment(ctx context.Context, id int64, comment status.Comment) error {
	const op = "storage.postgres.UpdateComment"

	if !comment.Valid() {
		return fmt.Errorf("%s: %w", op, apperr.Validation("invalid status comment"))
	}
	tag, err := s.db.Exec(ctx, `UPDATE facilities SET comments = $1 WHERE id = $2`, string(comment), id)
	if err != nil {
		return classify(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, apperr.NotFound("facility %d not found", id))
	}
	return nil
}

func (s *Storage) Categories(ctx context.Context) ([]models.Category, error) {
	const op = "storage.postgres.Categories"

	rows, err := s.db.Query(ctx, `
        SELECT c.id, c.name
        FROM categories c
        WHERE EXISTS (SELECT 1 FROM facilities f WHERE f.category = c.id)
        ORDER BY c.name COLLATE "C"`)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, classify(op, err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return categories, nil
}

func (s *Storage) Towns(ctx context.Context) ([]string, error) {
	const op = "storage.postgres.Towns"

	rows, err := s.db.Query(ctx, `SELECT town FROM facilities WHERE town <> '' GROUP BY town ORDER BY town COLLATE "C"`)
	if err != nil {
		return nil, classify(op, err)
	}
	towns, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify(op, err)
	}
	return towns, nil
}
