package endpoints

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api/packets"
	"github.com/Nixie-Tech-LLC/signage/internal/http/middleware"
)

type AccountManager struct {
	jwtSecret string
	store     db.Store
}

func accountManagementController(secret string, store db.Store) *AccountManager {
	return &AccountManager{jwtSecret: secret, store: store}
}

// AuthPublicModule mounts the login endpoint. It must not sit behind the
// JWT middleware.
func AuthPublicModule(jwtSecret string, store db.Store) api.Module {
	ctl := accountManagementController(jwtSecret, store)
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/auth/login", ctl.userLogin)
	})
}

// AuthSessionModule mounts endpoints for an already authenticated user.
func AuthSessionModule(jwtSecret string, store db.Store) api.Module {
	ctl := accountManagementController(jwtSecret, store)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/auth/current_profile", ctl.getCurrentProfile)
	})
}

// POST /api/auth/login
func (a *AccountManager) userLogin(ctx *gin.Context) (any, *api.APIError) {
	var request packets.LoginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		log.Warn().Err(err).Msg("[auth] login: bad request")
		return nil, api.NewError(http.StatusBadRequest, err.Error())
	}

	user, err := a.store.GetUserByUsername(ctx.Request.Context(), request.Username)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, api.StoreError(err, "something went wrong, please try again")
	}
	if err != nil || !middleware.CheckPassword(user.HashedPassword, request.Password) {
		log.Info().Str("username", request.Username).Msg("[auth] login failed")
		return nil, api.NewError(http.StatusUnauthorized, middleware.ErrInvalidCredentials.Error())
	}

	token, expires, err := middleware.GenerateJWT(user.ID, a.jwtSecret)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("[auth] could not generate JWT")
		return nil, api.NewError(http.StatusInternalServerError, "something went wrong, please try again")
	}

	return packets.LoginResponse{Token: token, ExpiresAt: expires}, nil
}

// GET /api/auth/current_profile
func (a *AccountManager) getCurrentProfile(ctx *gin.Context) (any, *api.APIError) {
	currentUser, ok := middleware.GetCurrentUser(ctx)
	if !ok {
		return nil, api.NewError(http.StatusInternalServerError, "could not retrieve user from context")
	}
	return packets.ProfileResponse{
		ID:        currentUser.ID,
		Username:  currentUser.Username,
		CreatedAt: currentUser.CreatedAt.Format(time.RFC3339),
	}, nil
}
