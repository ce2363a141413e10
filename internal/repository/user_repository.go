package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/greenbite/surplus-market/internal/model"
	"github.com/greenbite/surplus-market/internal/utils"
)

// UserRepo provides access to the 'users' table. Staff accounts
// (BUSINESS, BRANCH_MANAGER) carry the business and branch they act
// for; handlers read these to scope verification and cancellation.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// Create inserts a user and returns its ID. businessID/branchID are
// nil for customers.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, businessID, branchID *uint64, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	var bizArg, branchArg interface{}
	if businessID != nil {
		bizArg = *businessID
	}
	if branchID != nil {
		branchArg = *branchID
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, business_id, branch_id) VALUES (?,?,?,?,?)",
		email, hash, role, bizArg, branchArg)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	var businessID, branchID sql.NullInt64
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &businessID, &branchID,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if businessID.Valid {
		id := uint64(businessID.Int64)
		u.BusinessID = &id
	}
	if branchID.Valid {
		id := uint64(branchID.Int64)
		u.BranchID = &id
	}
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,business_id,branch_id,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,business_id,branch_id,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id))
}
