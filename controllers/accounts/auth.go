package accounts

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/types"
	u "github.com/steamtrust/backend/utils"
	"github.com/steamtrust/backend/utils/crypto"
	"github.com/steamtrust/backend/utils/logger"
	"github.com/steamtrust/backend/utils/token"
)

// AuthController issues access tokens for the back office
type AuthController struct {
	conf *config.AuthConfiguration
}

// NewAuthController creates a new instance of AuthController
func NewAuthController(conf *config.AuthConfiguration) *AuthController {
	return &AuthController{conf: conf}
}

// Login controller validates the admin credentials and returns an access token
func (ctrl *AuthController) Login(ctx *gin.Context) {
	var payload types.LoginPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		u.BindingErrorResponse(ctx, err)
		return
	}

	if ctrl.conf.AdminPasswordHash == "" {
		logger.Errorf("Login: admin password hash is not configured")
		u.APIResponse(ctx, http.StatusServiceUnavailable, "error", "Admin login is not configured", nil)
		return
	}

	usernameMatch := strings.EqualFold(strings.TrimSpace(payload.Username), ctrl.conf.AdminUsername)
	passwordMatch := crypto.CheckPasswordHash(payload.Password, ctrl.conf.AdminPasswordHash)
	if !usernameMatch || !passwordMatch {
		logger.WithFields(logger.Fields{
			"Username": payload.Username,
			"ClientIP": ctx.ClientIP(),
		}).Warnf("Login: invalid credentials")
		u.APIResponse(ctx, http.StatusUnauthorized, "error", "Username and password do not match", nil)
		return
	}

	accessToken, expiresAt, err := token.GenerateAccessJWT(ctrl.conf.Secret, ctrl.conf.AdminUsername, ctrl.conf.JwtAccessLifespan)
	if err != nil {
		logger.WithFields(logger.Fields{
			"Error": fmt.Sprintf("%v", err),
		}).Errorf("Login: failed to generate access token")
		u.ErrorResponse(ctx, types.ErrInternal(err))
		return
	}

	u.APIResponse(ctx, http.StatusOK, "success", "Successfully logged in", &types.LoginResponse{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt.Unix(),
	})
}
