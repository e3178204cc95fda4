package handlers

import (
	"net/http"

	"smartdalali_backend/internal/dto"
	"smartdalali_backend/internal/services"
	"smartdalali_backend/internal/validator"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	*BaseHandler
	auth services.AuthService
}

func NewAuthHandler(v *validator.Validator, auth services.AuthService) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(v),
		auth:        auth,
	}
}

func (h *AuthHandler) RegisterRoutes(api *gin.RouterGroup) {
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.auth.Login(&req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
