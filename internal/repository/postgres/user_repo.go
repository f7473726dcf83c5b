package postgres

import (
	"context"
	"database/sql"
	"errors"

	"begegnungscafe/internal/domain"

	"github.com/lib/pq"
)

type userRepository struct {
	DB *sql.DB
}

// NewUserRepository returns a domain.UserRepository reading the profiles table.
func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, email, display_name, role, gender, birth_year, allowed_categories, allowed_room_ids
		FROM profiles
		WHERE id = $1
	`
	u := &domain.User{}
	var birthYear sql.NullInt32
	var rooms pq.StringArray
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.Gender, &birthYear,
		pq.Array(&u.AllowedCategories), &rooms,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	u.BirthYear = nullIntPtr(birthYear)
	// NULL keeps AllowedRoomIDs nil (every room); '{}' yields an empty list.
	if rooms != nil {
		u.AllowedRoomIDs = []string(rooms)
	}
	return u, nil
}
