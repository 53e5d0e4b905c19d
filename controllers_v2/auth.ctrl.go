package v2controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/escrowhub/escrowhub.go/lib/responses"
	"github.com/escrowhub/escrowhub.go/lib/service"
)

// AuthController : Token issuance controller struct
type AuthController struct {
	svc *service.EscrowService
}

func NewAuthController(svc *service.EscrowService) *AuthController {
	return &AuthController{svc: svc}
}

type AuthRequestBody struct {
	Principal string `json:"principal" validate:"required"`
}

type AuthResponseBody struct {
	AccessToken string `json:"access_token"`
}

// Auth godoc
// @Summary      Issue an access token
// @Description  Mints an access token for the given principal, gated by the admin token
// @Accept       json
// @Produce      json
// @Tags         Auth
// @Param        credentials  body      AuthRequestBody  True  "Principal"
// @Success      200  {object}  AuthResponseBody
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /auth [post]
func (controller *AuthController) Auth(c echo.Context) error {
	var body AuthRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load auth request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid auth request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	accessToken, err := controller.svc.GenerateToken(body.Principal)
	if err != nil {
		c.Logger().Errorf("Error generating token for %s: %v", body.Principal, err)
		return responses.WriteLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, &AuthResponseBody{AccessToken: accessToken})
}
