package v2controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/escrowhub/escrowhub.go/ledger"
	"github.com/escrowhub/escrowhub.go/lib/responses"
	"github.com/escrowhub/escrowhub.go/lib/service"
	"github.com/escrowhub/escrowhub.go/lib/tokens"
)

// InvoiceController : Invoice lifecycle controller struct
type InvoiceController struct {
	svc *service.EscrowService
}

func NewInvoiceController(svc *service.EscrowService) *InvoiceController {
	return &InvoiceController{svc: svc}
}

type Invoice struct {
	ID          uint64 `json:"id"`
	Client      string `json:"client"`
	Freelancer  string `json:"freelancer"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Status      uint8  `json:"status"`
	StatusLabel string `json:"status_label"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

func toInvoiceResponse(inv *ledger.Invoice) Invoice {
	resp := Invoice{
		ID:          inv.ID,
		Client:      string(inv.Client),
		Freelancer:  string(inv.Freelancer),
		Description: inv.Description,
		Status:      uint8(inv.Status),
		StatusLabel: inv.Status.String(),
		CreatedAt:   inv.CreatedAt,
		UpdatedAt:   inv.UpdatedAt,
	}
	if inv.Amount != nil {
		resp.Amount = inv.Amount.Dec()
	}
	return resp
}

func invoiceIDParam(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Logger().Errorf("Invalid invoice id param: %v", err)
		return 0, false
	}
	return id, true
}

func callerFromContext(c echo.Context) (ledger.Identity, bool) {
	caller, ok := tokens.CallerFromContext(c)
	if !ok {
		c.Logger().Error("Missing caller identity on request context")
	}
	return caller, ok
}

type AddInvoiceRequestBody struct {
	Freelancer  string `json:"freelancer" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type AddInvoiceResponseBody struct {
	ID uint64 `json:"id"`
}

// AddInvoice godoc
// @Summary      Create a new escrow invoice
// @Description  Creates an invoice with the authenticated caller as client
// @Accept       json
// @Produce      json
// @Tags         Invoice
// @Param        invoice  body      AddInvoiceRequestBody  True  "Add Invoice"
// @Success      200      {object}  AddInvoiceResponseBody
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      500      {object}  responses.ErrorResponse
// @Router       /v2/invoices [post]
// @Security     OAuth2Password
func (controller *InvoiceController) AddInvoice(c echo.Context) error {
	caller, ok := callerFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
	}
	var body AddInvoiceRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load invoice request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid invoice request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	id, err := controller.svc.AddInvoice(c.Request().Context(), caller, body.Freelancer, body.Amount, body.Description)
	if err != nil {
		c.Logger().Errorf("Error creating invoice: client %s error: %v", caller, err)
		return responses.WriteLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, &AddInvoiceResponseBody{ID: id})
}

type FundInvoiceRequestBody struct {
	Amount string `json:"amount" validate:"required"`
}

// FundInvoice godoc
// @Summary      Fund an invoice
// @Description  Places the exact invoice amount in escrow
// @Accept       json
// @Produce      json
// @Tags         Invoice
// @Param        id       path      int                     True  "Invoice ID"
// @Param        payment  body      FundInvoiceRequestBody  True  "Fund Invoice"
// @Success      200  {object}  Invoice
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{id}/fund [post]
// @Security     OAuth2Password
func (controller *InvoiceController) FundInvoice(c echo.Context) error {
	caller, ok := callerFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
	}
	id, ok := invoiceIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	var body FundInvoiceRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load fund request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid fund request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if err := controller.svc.FundInvoice(c.Request().Context(), id, body.Amount, caller); err != nil {
		c.Logger().Errorf("Error funding invoice: id %d error: %v", id, err)
		return responses.WriteLedgerError(c, err)
	}

	return controller.respondWithInvoice(c, id)
}

// CompleteInvoice godoc
// @Summary      Mark work as completed
// @Description  The freelancer marks the funded invoice as completed
// @Accept       json
// @Produce      json
// @Tags         Invoice
// @Param        id  path  int  True  "Invoice ID"
// @Success      200  {object}  Invoice
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{id}/complete [post]
// @Security     OAuth2Password
func (controller *InvoiceController) CompleteInvoice(c echo.Context) error {
	caller, ok := callerFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
	}
	id, ok := invoiceIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if err := controller.svc.CompleteInvoice(c.Request().Context(), id, caller); err != nil {
		c.Logger().Errorf("Error completing invoice: id %d error: %v", id, err)
		return responses.WriteLedgerError(c, err)
	}

	return controller.respondWithInvoice(c, id)
}

// ReleasePayment godoc
// @Summary      Release escrowed funds
// @Description  The client releases the escrowed amount to the freelancer
// @Accept       json
// @Produce      json
// @Tags         Invoice
// @Param        id  path  int  True  "Invoice ID"
// @Success      200  {object}  Invoice
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{id}/release [post]
// @Security     OAuth2Password
func (controller *InvoiceController) ReleasePayment(c echo.Context) error {
	caller, ok := callerFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
	}
	id, ok := invoiceIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if err := controller.svc.ReleasePayment(c.Request().Context(), id, caller); err != nil {
		c.Logger().Errorf("Error releasing payment: id %d error: %v", id, err)
		return responses.WriteLedgerError(c, err)
	}

	return controller.respondWithInvoice(c, id)
}

// CancelInvoice godoc
// @Summary      Cancel an unfunded invoice
// @Description  The client cancels the invoice before any funds were escrowed
// @Accept       json
// @Produce      json
// @Tags         Invoice
// @Param        id  path  int  True  "Invoice ID"
// @Success      200  {object}  Invoice
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{id}/cancel [post]
// @Security     OAuth2Password
func (controller *InvoiceController) CancelInvoice(c echo.Context) error {
	caller, ok := callerFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
	}
	id, ok := invoiceIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if err := controller.svc.CancelInvoice(c.Request().Context(), id, caller); err != nil {
		c.Logger().Errorf("Error cancelling invoice: id %d error: %v", id, err)
		return responses.WriteLedgerError(c, err)
	}

	return controller.respondWithInvoice(c, id)
}

// GetInvoice godoc
// @Summary      Retrieve an invoice
// @Description  Returns a single invoice by id
// @Accept       json
// @Produce      json
// @Tags         Invoice
// @Param        id  path  int  True  "Invoice ID"
// @Success      200  {object}  Invoice
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{id} [get]
// @Security     OAuth2Password
func (controller *InvoiceController) GetInvoice(c echo.Context) error {
	id, ok := invoiceIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	return controller.respondWithInvoice(c, id)
}

type InvoiceStatusResponseBody struct {
	ID          uint64 `json:"id"`
	Status      uint8  `json:"status"`
	StatusLabel string `json:"status_label"`
}

// GetInvoiceStatus godoc
// @Summary      Retrieve an invoice status
// @Description  Returns the lifecycle status of one invoice
// @Accept       json
// @Produce      json
// @Tags         Invoice
// @Param        id  path  int  True  "Invoice ID"
// @Success      200  {object}  InvoiceStatusResponseBody
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{id}/status [get]
// @Security     OAuth2Password
func (controller *InvoiceController) GetInvoiceStatus(c echo.Context) error {
	id, ok := invoiceIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	status, err := controller.svc.GetInvoiceStatus(c.Request().Context(), id)
	if err != nil {
		return responses.WriteLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, &InvoiceStatusResponseBody{
		ID:          id,
		Status:      uint8(status),
		StatusLabel: status.String(),
	})
}

type GetInvoiceEventsResponseBody struct {
	Events []ledger.Event `json:"events"`
}

// GetInvoiceEvents godoc
// @Summary      Retrieve invoice history
// @Description  Returns the transition history of one invoice, oldest first
// @Accept       json
// @Produce      json
// @Tags         Invoice
// @Param        id  path  int  True  "Invoice ID"
// @Success      200  {object}  GetInvoiceEventsResponseBody
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{id}/events [get]
// @Security     OAuth2Password
func (controller *InvoiceController) GetInvoiceEvents(c echo.Context) error {
	id, ok := invoiceIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	// 404 for ids that were never minted
	if _, err := controller.svc.GetInvoice(c.Request().Context(), id); err != nil {
		return responses.WriteLedgerError(c, err)
	}

	events, err := controller.svc.InvoiceEvents(c.Request().Context(), id)
	if err != nil {
		c.Logger().Errorf("Error loading invoice events: id %d error: %v", id, err)
		return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
	}

	return c.JSON(http.StatusOK, &GetInvoiceEventsResponseBody{Events: events})
}

type CountInvoicesResponseBody struct {
	Count uint64 `json:"count"`
}

// CountInvoices godoc
// @Summary      Count invoices
// @Description  Returns the number of invoices ever created
// @Accept       json
// @Produce      json
// @Tags         Invoice
// @Success      200  {object}  CountInvoicesResponseBody
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /v2/invoices/count [get]
// @Security     OAuth2Password
func (controller *InvoiceController) CountInvoices(c echo.Context) error {
	return c.JSON(http.StatusOK, &CountInvoicesResponseBody{Count: controller.svc.TotalInvoices()})
}

func (controller *InvoiceController) respondWithInvoice(c echo.Context, id uint64) error {
	invoice, err := controller.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return responses.WriteLedgerError(c, err)
	}
	response := toInvoiceResponse(invoice)
	return c.JSON(http.StatusOK, &response)
}
