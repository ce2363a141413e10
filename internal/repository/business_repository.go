package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/greenbite/surplus-market/internal/model"
)

// BusinessRepo provides lookups on the businesses and branches
// tables. Reservation creation resolves business codes through it
// for number generation, and QR payload assembly resolves branch
// names and manager contacts.
type BusinessRepo struct {
    db *sql.DB
}

// NewBusinessRepo returns a new BusinessRepo bound to the given database.
func NewBusinessRepo(db *sql.DB) *BusinessRepo { return &BusinessRepo{db: db} }

func scanBusiness(row interface{ Scan(...interface{}) error }) (model.Business, error) {
    var b model.Business
    var phone sql.NullString
    err := row.Scan(&b.ID, &b.OwnerID, &b.Code, &b.Name, &phone, &b.CreatedAt, &b.UpdatedAt)
    if err != nil {
        return model.Business{}, err
    }
    if phone.Valid {
        p := phone.String
        b.Phone = &p
    }
    return b, nil
}

// GetByID returns a business by id. ErrBusinessNotFound is returned
// when no row exists.
func (r *BusinessRepo) GetByID(ctx context.Context, id uint64) (model.Business, error) {
    const q = `SELECT id, owner_id, code, name, phone, created_at, updated_at FROM businesses WHERE id = ?`
    b, err := scanBusiness(r.db.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return model.Business{}, ErrBusinessNotFound
    }
    return b, err
}

// GetByIDs returns the businesses for the given ids keyed by id.
// Missing ids are simply absent from the map; callers that require
// every id check the map themselves.
func (r *BusinessRepo) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Business, error) {
    out := make(map[uint64]model.Business, len(ids))
    if len(ids) == 0 {
        return out, nil
    }
    placeholders := make([]string, 0, len(ids))
    args := make([]interface{}, 0, len(ids))
    for _, id := range ids {
        placeholders = append(placeholders, "?")
        args = append(args, id)
    }
    q := `SELECT id, owner_id, code, name, phone, created_at, updated_at FROM businesses WHERE id IN (` +
        strings.Join(placeholders, ",") + `)`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        b, err := scanBusiness(rows)
        if err != nil {
            return nil, err
        }
        out[b.ID] = b
    }
    return out, rows.Err()
}

func scanBranch(row interface{ Scan(...interface{}) error }) (model.Branch, error) {
    var b model.Branch
    var managerID sql.NullInt64
    var managerPhone sql.NullString
    err := row.Scan(&b.ID, &b.BusinessID, &b.Code, &b.Name, &managerID, &managerPhone, &b.CreatedAt, &b.UpdatedAt)
    if err != nil {
        return model.Branch{}, err
    }
    if managerID.Valid {
        id := uint64(managerID.Int64)
        b.ManagerID = &id
    }
    if managerPhone.Valid {
        p := managerPhone.String
        b.ManagerPhone = &p
    }
    return b, nil
}

// BranchesByBusiness returns all branches of a business keyed by
// branch id.
func (r *BusinessRepo) BranchesByBusiness(ctx context.Context, businessID uint64) (map[uint64]model.Branch, error) {
    const q = `SELECT id, business_id, code, name, manager_id, manager_phone, created_at, updated_at
               FROM branches WHERE business_id = ?`
    rows, err := r.db.QueryContext(ctx, q, businessID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make(map[uint64]model.Branch)
    for rows.Next() {
        b, err := scanBranch(rows)
        if err != nil {
            return nil, err
        }
        out[b.ID] = b
    }
    return out, rows.Err()
}
