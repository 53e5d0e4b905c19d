package v2controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/escrowhub/escrowhub.go/lib/responses"
	"github.com/escrowhub/escrowhub.go/lib/service"
)

// DisputeController : Dispute resolution controller struct
type DisputeController struct {
	svc *service.EscrowService
}

func NewDisputeController(svc *service.EscrowService) *DisputeController {
	return &DisputeController{svc: svc}
}

type ResolveDisputeRequestBody struct {
	ReleaseToFreelancer *bool `json:"release_to_freelancer" validate:"required"`
}

// ResolveDispute godoc
// @Summary      Resolve a disputed invoice
// @Description  The arbiter releases the funds to the freelancer or refunds the client
// @Accept       json
// @Produce      json
// @Tags         Dispute
// @Param        id       path      int                        True  "Invoice ID"
// @Param        verdict  body      ResolveDisputeRequestBody  True  "Resolve Dispute"
// @Success      200  {object}  Invoice
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /v2/admin/disputes/{id}/resolve [post]
// @Security     OAuth2Password
func (controller *DisputeController) ResolveDispute(c echo.Context) error {
	caller, ok := callerFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
	}
	id, ok := invoiceIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	var body ResolveDisputeRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load dispute request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid dispute request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if err := controller.svc.ResolveDispute(c.Request().Context(), id, *body.ReleaseToFreelancer, caller); err != nil {
		c.Logger().Errorf("Error resolving dispute: id %d error: %v", id, err)
		return responses.WriteLedgerError(c, err)
	}

	invoice, err := controller.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return responses.WriteLedgerError(c, err)
	}
	response := toInvoiceResponse(invoice)
	return c.JSON(http.StatusOK, &response)
}

type TransferArbiterRequestBody struct {
	Arbiter string `json:"arbiter" validate:"required"`
}

type TransferArbiterResponseBody struct {
	Arbiter string `json:"arbiter"`
}

// TransferArbiter godoc
// @Summary      Transfer the arbiter role
// @Description  The current arbiter hands dispute resolution to a new identity
// @Accept       json
// @Produce      json
// @Tags         Dispute
// @Param        arbiter  body      TransferArbiterRequestBody  True  "Transfer Arbiter"
// @Success      200  {object}  TransferArbiterResponseBody
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /v2/admin/arbiter [post]
// @Security     OAuth2Password
func (controller *DisputeController) TransferArbiter(c echo.Context) error {
	caller, ok := callerFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
	}
	var body TransferArbiterRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load arbiter request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid arbiter request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if err := controller.svc.TransferArbiter(body.Arbiter, caller); err != nil {
		c.Logger().Errorf("Error transferring arbiter role: %v", err)
		return responses.WriteLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, &TransferArbiterResponseBody{Arbiter: body.Arbiter})
}
