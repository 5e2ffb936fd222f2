package ledger

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"nooveria/internal/api"
	"nooveria/internal/auth"
	"nooveria/internal/event"
	"nooveria/internal/logger"
	"nooveria/internal/transaction"
	"nooveria/internal/usage"
	"nooveria/internal/wallet"
)

// Ledger is the part of Service the HTTP layer talks to.
type Ledger interface {
	Charge(ctx context.Context, req ChargeRequest) (Outcome, error)
	GetUserWallets(ctx context.Context, userID string) (Summary, error)
	CommunalBalance(ctx context.Context) (decimal.Decimal, error)
	CommunalAllowance(ctx context.Context, userID string) (Allowance, error)
	RecordUsage(ctx context.Context, userID string, counts usage.Counts, transactionID int64) (*usage.Record, error)
	OpenAccount(ctx context.Context, userID, role string) (*wallet.Wallet, bool, error)
	TopUp(ctx context.Context, req TopUpRequest) (*transaction.Transaction, error)
	ListEvents(ctx context.Context, userID string, limit int) ([]event.Event, error)
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]transaction.Transaction, error)
	ListUsage(ctx context.Context, userID string, limit int) ([]usage.Record, error)
	Transfer(ctx context.Context, fromUserID, toUserID string, amount decimal.Decimal) error
}

var _ Ledger = (*Service)(nil)

type Handler struct {
	ledger Ledger
}

func NewHandler(ledger Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// ChargeBody carries the chat correlation fields inline: chat_id, world_id, world_name.
type ChargeBody struct {
	Tokens         int64         `json:"tokens" validate:"gt=0,lte=1000000000000"`
	PreferCommunal bool          `json:"prefer_communal"`
	Usage          *usage.Counts `json:"usage,omitempty"`
	event.Correlation
}

type UsageBody struct {
	TransactionID int64 `json:"transaction_id" validate:"gt=0"`
	usage.Counts
}

type OpenAccountBody struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Role   string `json:"role" validate:"required,max=50"`
}

type TopUpBody struct {
	UserID      string          `json:"user_id" validate:"omitempty,uuid"`
	Amount      decimal.Decimal `json:"amount"`
	Target      string          `json:"target" validate:"omitempty,oneof=personal communal"`
	Kind        string          `json:"kind" validate:"omitempty,oneof=topup admin_adjust"`
	Description string          `json:"description" validate:"max=255"`
}

type TransferBody struct {
	ToUserID string          `json:"to_user_id" validate:"required,uuid"`
	Amount   decimal.Decimal `json:"amount"`
}

type WalletsResponse struct {
	Summary
	Allowance Allowance `json:"communal_allowance"`
}

type ChargeResponse struct {
	Charged  *Charged     `json:"charged,omitempty"`
	Rejected RejectReason `json:"rejected,omitempty"`
}

// GetWallets returns the caller's balances with their communal allowance.
// @Summary      Get my wallets
// @Tags         wallets
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  WalletsResponse
// @Failure      401  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /wallets [get]
func (h *Handler) GetWallets(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	summary, err := h.ledger.GetUserWallets(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	allowance, err := h.ledger.CommunalAllowance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, WalletsResponse{Summary: summary, Allowance: allowance})
}

// @Summary      Get communal balance
// @Tags         wallets
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Balance
// @Failure      500  {object}  api.ErrorResponse
// @Router       /wallets/communal [get]
func (h *Handler) GetCommunal(c *gin.Context) {
	balance, err := h.ledger.CommunalBalance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Balance{Balance: balance})
}

// Charge debits the caller. A business rejection is a 402 carrying the reason.
// @Summary      Charge tokens
// @Description  Debits the personal wallet, or the communal wallet when prefer_communal is set and the personal balance is short.
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      ChargeBody  true  "Charge request"
// @Success      200      {object}  ChargeResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      402      {object}  ChargeResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /wallets/charge [post]
func (h *Handler) Charge(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var body ChargeBody
	if !api.BindJSON(c, &body) {
		return
	}

	outcome, err := h.ledger.Charge(c.Request.Context(), ChargeRequest{
		UserID:         userID,
		Tokens:         body.Tokens,
		PreferCommunal: body.PreferCommunal,
		Usage:          body.Usage,
		Correlation:    body.Correlation,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if !outcome.OK() {
		c.JSON(http.StatusPaymentRequired, ChargeResponse{Rejected: outcome.Rejected.Reason})
		return
	}
	c.JSON(http.StatusOK, ChargeResponse{Charged: outcome.Charged})
}

// RecordUsage godoc
// @Summary      Record usage for a charge
// @Tags         usage
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      UsageBody  true  "Token counts"
// @Success      201      {object}  usage.Record
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /usage [post]
func (h *Handler) RecordUsage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var body UsageBody
	if !api.BindJSON(c, &body) {
		return
	}

	rec, err := h.ledger.RecordUsage(c.Request.Context(), userID, body.Counts, body.TransactionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// @Summary      List wallet events
// @Tags         wallets
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Max events"  default(50)
// @Success      200    {array}   event.Event
// @Router       /wallets/events [get]
func (h *Handler) ListEvents(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	events, err := h.ledger.ListEvents(c.Request.Context(), userID, queryInt(c, "limit", 50))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// @Summary      List transactions
// @Tags         wallets
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Page size"  default(50)
// @Param        offset  query     int  false  "Offset"     default(0)
// @Success      200     {array}   transaction.Transaction
// @Failure      404     {object}  api.ErrorResponse
// @Router       /wallets/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	txns, err := h.ledger.ListTransactions(c.Request.Context(), userID, queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

// @Summary      List usage records
// @Tags         usage
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Max records"  default(50)
// @Success      200    {array}   usage.Record
// @Router       /wallets/usage [get]
func (h *Handler) ListUsage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	records, err := h.ledger.ListUsage(c.Request.Context(), userID, queryInt(c, "limit", 50))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// @Summary      Transfer tokens
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      TransferBody  true  "Transfer request"
// @Failure      501      {object}  api.ErrorResponse
// @Router       /wallets/transfer [post]
func (h *Handler) Transfer(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var body TransferBody
	if !api.BindJSON(c, &body) {
		return
	}

	if err := h.ledger.Transfer(c.Request.Context(), userID, body.ToUserID, body.Amount); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "transfer completed"})
}

// OpenAccount registers a user and their personal wallet. Admin only.
// @Summary      Open account
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      OpenAccountBody  true  "Account"
// @Success      201      {object}  wallet.Wallet
// @Success      200      {object}  wallet.Wallet
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  gin.H
// @Router       /admin/accounts [post]
func (h *Handler) OpenAccount(c *gin.Context) {
	var body OpenAccountBody
	if !api.BindJSON(c, &body) {
		return
	}

	w, created, err := h.ledger.OpenAccount(c.Request.Context(), body.UserID, body.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, w)
}

// TopUp credits a personal or the communal wallet. Admin only.
// @Summary      Top up a wallet
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      TopUpBody  true  "Credit"
// @Success      201      {object}  transaction.Transaction
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  gin.H
// @Failure      404      {object}  api.ErrorResponse
// @Router       /admin/wallets/topup [post]
func (h *Handler) TopUp(c *gin.Context) {
	var body TopUpBody
	if !api.BindJSON(c, &body) {
		return
	}

	txn, err := h.ledger.TopUp(c.Request.Context(), TopUpRequest{
		UserID:      body.UserID,
		Amount:      body.Amount,
		Target:      wallet.Kind(body.Target),
		Kind:        transaction.Kind(body.Kind),
		Description: body.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

func requireUser(c *gin.Context) (string, bool) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return "", false
	}
	return userID, true
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Code: "validation"})
	case IsNotFound(err):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, ErrQuotaExceeded):
		c.JSON(http.StatusPaymentRequired, api.ErrorResponse{Error: err.Error(), Code: string(ReasonQuotaExceeded)})
	case IsPaymentRequired(err):
		c.JSON(http.StatusPaymentRequired, api.ErrorResponse{Error: err.Error(), Code: string(ReasonInsufficientFunds)})
	case errors.Is(err, ErrUsageAlreadyRecorded):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error(), Code: "conflict"})
	case errors.Is(err, ErrNotImplemented):
		c.JSON(http.StatusNotImplemented, api.ErrorResponse{Error: err.Error(), Code: "not_implemented"})
	case IsRetryable(err):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "wallet busy, retry", Code: "concurrency"})
	default:
		logger.Error("ledger request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal error", Code: "storage"})
	}
}
