package db

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

// inserts a new user; returns ErrConflict when the username is taken.
func (s *sqlStore) CreateUser(ctx context.Context, username, hashedPassword string) (model.User, error) {
	if _, err := s.GetUserByUsername(ctx, username); err == nil {
		return model.User{}, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return model.User{}, err
	}

	u := model.User{
		ID:             newID("usr"),
		Username:       username,
		HashedPassword: hashedPassword,
		CreatedAt:      s.now(),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (id, username, hashed_password, created_at)
		VALUES (:id, :username, :hashed_password, :created_at)`, u)
	if isUniqueViolation(err) {
		return model.User{}, ErrConflict
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to create user")
		return model.User{}, err
	}
	return u, nil
}

// fetches user by username. returns ErrNotFound if missing.
func (s *sqlStore) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, s.q(`
		SELECT id, username, hashed_password, created_at
		FROM users
		WHERE username = ?`), username)
	if err != nil {
		return model.User{}, notFound(err)
	}
	return u, nil
}

func (s *sqlStore) GetUserByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, s.q(`
		SELECT id, username, hashed_password, created_at
		FROM users
		WHERE id = ?`), id)
	if err != nil {
		log.Error().Err(err).Str("user_id", id).Msg("failed to get user by id")
		return model.User{}, notFound(err)
	}
	return u, nil
}
