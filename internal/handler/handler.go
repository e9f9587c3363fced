package handler

import (
	"errors"

	"tokenledger/internal/model"
	"tokenledger/internal/repository"
	"tokenledger/internal/service"
	"tokenledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// Handler carries the service layer for the HTTP surface.
type Handler struct {
	accounts    *service.AccountService
	ledger      *service.LedgerService
	confirm     *service.ConfirmService
	topups      *service.TopupService
	generations *service.GenerationService
}

func NewHandler(
	accounts *service.AccountService,
	ledger *service.LedgerService,
	confirm *service.ConfirmService,
	topups *service.TopupService,
	generations *service.GenerationService,
) *Handler {
	return &Handler{
		accounts:    accounts,
		ledger:      ledger,
		confirm:     confirm,
		topups:      topups,
		generations: generations,
	}
}

type startRequest struct {
	TgID     int64  `json:"tg_id" binding:"required"`
	Username string `json:"username"`
	RefCode  string `json:"ref_code"`
}

// Start gets or creates the account for a Telegram user, attributing a
// referral on first contact.
func (h *Handler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	account, err := h.accounts.GetOrCreate(c.Request.Context(), req.TgID, req.Username, req.RefCode)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, account)
}

// Balance returns the account with all its balances.
func (h *Handler) Balance(c *gin.Context) {
	tgID, ok := queryTgID(c)
	if !ok {
		return
	}
	account, err := h.accounts.GetByTgID(c.Request.Context(), tgID)
	if err != nil {
		h.accountError(c, err)
		return
	}
	response.Success(c, account)
}

type tierRequest struct {
	TgID int64  `json:"tg_id" binding:"required"`
	Tier string `json:"tier" binding:"required"`
}

func (h *Handler) SetTier(c *gin.Context) {
	var req tierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	account, err := h.accounts.GetByTgID(c.Request.Context(), req.TgID)
	if err != nil {
		h.accountError(c, err)
		return
	}
	if err := h.accounts.SetSelectedTier(c.Request.Context(), account.ID, req.Tier); err != nil {
		if errors.Is(err, service.ErrInvalidTier) {
			response.BusinessError(c, response.CodeInvalidTier, "unknown tier")
			return
		}
		h.accountError(c, err)
		return
	}
	response.Success(c, gin.H{"tier": req.Tier})
}

type presetRequest struct {
	TgID   int64   `json:"tg_id" binding:"required"`
	Preset *string `json:"preset"`
}

func (h *Handler) SetPreset(c *gin.Context) {
	var req presetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	account, err := h.accounts.GetByTgID(c.Request.Context(), req.TgID)
	if err != nil {
		h.accountError(c, err)
		return
	}
	if err := h.accounts.SetSelectedPreset(c.Request.Context(), account.ID, req.Preset); err != nil {
		h.accountError(c, err)
		return
	}
	response.Success(c, gin.H{"preset": req.Preset})
}

// Referrals reports the account's referral code and how many accounts it
// has referred.
func (h *Handler) Referrals(c *gin.Context) {
	tgID, ok := queryTgID(c)
	if !ok {
		return
	}
	account, err := h.accounts.GetByTgID(c.Request.Context(), tgID)
	if err != nil {
		h.accountError(c, err)
		return
	}
	count, err := h.accounts.ReferralCount(c.Request.Context(), account.ID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"referral_code":  account.ReferralCode,
		"referral_count": count,
		"earned_usdt":    account.EarnedUsdt,
	})
}

// Find looks an account up by tg id or username.
func (h *Handler) Find(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		response.ParamError(c, "query is required")
		return
	}
	account, err := h.accounts.Find(c.Request.Context(), query)
	if err != nil {
		h.accountError(c, err)
		return
	}
	response.Success(c, account)
}

// Transactions pages through the account's journal.
func (h *Handler) Transactions(c *gin.Context) {
	tgID, ok := queryTgID(c)
	if !ok {
		return
	}
	account, err := h.accounts.GetByTgID(c.Request.Context(), tgID)
	if err != nil {
		h.accountError(c, err)
		return
	}

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)
	transactions, total, err := h.ledger.ListTransactions(c.Request.Context(), account.ID, page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"total":        total,
		"page":         page,
		"transactions": transactions,
	})
}

type topupRequest struct {
	TgID    int64  `json:"tg_id" binding:"required"`
	Method  string `json:"method" binding:"required"`
	Package string `json:"package" binding:"required"`
}

// CreateTopup opens a pending top-up order against one of the package
// catalogs.
func (h *Handler) CreateTopup(c *gin.Context) {
	var req topupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	account, err := h.accounts.GetByTgID(c.Request.Context(), req.TgID)
	if err != nil {
		h.accountError(c, err)
		return
	}

	var order *service.TopupOrder
	switch req.Method {
	case model.MethodCard:
		order, err = h.topups.CreateCardOrder(c.Request.Context(), account.ID, req.Package)
	case model.MethodStars:
		order, err = h.topups.CreateStarsOrder(c.Request.Context(), account.ID, req.Package)
	default:
		response.ParamError(c, "method must be card or stars")
		return
	}
	if err != nil {
		if errors.Is(err, service.ErrPackageNotFound) {
			response.BusinessError(c, response.CodePackageNotFound, "unknown package")
			return
		}
		if errors.Is(err, repository.ErrDuplicateExternalID) {
			response.BusinessError(c, response.CodeDuplicateExternalID, "order id collision, retry")
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, order)
}

type webhookRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// PaymentWebhook settles a pending top-up. Safe to deliver any number of
// times: a replay of a settled order and an unknown order id get the
// same no-op acknowledgement, so the provider stops retrying and cannot
// probe which order ids exist.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	trans, err := h.confirm.Confirm(c.Request.Context(), req.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			response.Success(c, gin.H{"confirmed": false})
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"confirmed":   true,
		"transaction": trans,
	})
}

type adjustRequest struct {
	AdminID       int64  `json:"admin_id" binding:"required"`
	AdminUsername string `json:"admin_username"`
	TgID          int64  `json:"tg_id" binding:"required"`
	Diamonds      int    `json:"diamonds"`
	Bananas       int    `json:"bananas"`
}

// AdminAdjust applies a signed balance correction with an audit trail.
func (h *Handler) AdminAdjust(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	if req.Diamonds == 0 && req.Bananas == 0 {
		response.ParamError(c, "nothing to adjust")
		return
	}

	account, err := h.accounts.GetByTgID(c.Request.Context(), req.TgID)
	if err != nil {
		h.accountError(c, err)
		return
	}

	delta := model.BalanceDelta{Diamonds: req.Diamonds, Bananas: req.Bananas}
	trans, err := h.ledger.AdminAdjust(c.Request.Context(), account.ID, delta, req.AdminID, req.AdminUsername)
	if err != nil {
		h.accountError(c, err)
		return
	}
	response.Success(c, trans)
}

// AdminLogs exports the newest audit trail entries.
func (h *Handler) AdminLogs(c *gin.Context) {
	limit := queryInt(c, "limit", 100)
	logs, err := h.ledger.ListActionLogs(c.Request.Context(), limit)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"logs": logs})
}

type generationRequest struct {
	TgID   int64   `json:"tg_id" binding:"required"`
	Kind   string  `json:"kind" binding:"required"`
	Prompt string  `json:"prompt"`
	Preset *string `json:"preset"`
	FileID string  `json:"file_id"`
}

// StartGeneration debits the account and opens a processing generation.
func (h *Handler) StartGeneration(c *gin.Context) {
	var req generationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	kind := model.GenerationKind(req.Kind)
	switch kind {
	case model.GenKindText2Img, model.GenKindPresetImg2Img, model.GenKindAnimate:
	default:
		response.ParamError(c, "unknown generation kind")
		return
	}

	account, err := h.accounts.GetByTgID(c.Request.Context(), req.TgID)
	if err != nil {
		h.accountError(c, err)
		return
	}

	gen, err := h.generations.Start(c.Request.Context(), service.StartRequest{
		AccountID: account.ID,
		Kind:      kind,
		Prompt:    req.Prompt,
		Preset:    req.Preset,
		FileID:    req.FileID,
	})
	if err != nil {
		h.accountError(c, err)
		return
	}
	response.Success(c, gen)
}

type completeRequest struct {
	GenerationID int64  `json:"generation_id" binding:"required"`
	ResultURL    string `json:"result_url" binding:"required"`
}

func (h *Handler) CompleteGeneration(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	if err := h.generations.Complete(c.Request.Context(), req.GenerationID, req.ResultURL); err != nil {
		h.generationError(c, err)
		return
	}
	response.Success(c, gin.H{"generation_id": req.GenerationID})
}

type failRequest struct {
	GenerationID int64  `json:"generation_id" binding:"required"`
	Error        string `json:"error"`
}

func (h *Handler) FailGeneration(c *gin.Context) {
	var req failRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	if req.Error == "" {
		req.Error = "generation failed"
	}
	if err := h.generations.Fail(c.Request.Context(), req.GenerationID, req.Error); err != nil {
		h.generationError(c, err)
		return
	}
	response.Success(c, gin.H{"generation_id": req.GenerationID, "refunded": true})
}

func (h *Handler) GetGeneration(c *gin.Context) {
	id := queryInt64(c, "id")
	if id == 0 {
		response.ParamError(c, "id is required")
		return
	}
	gen, err := h.generations.Get(c.Request.Context(), id)
	if err != nil {
		h.generationError(c, err)
		return
	}
	response.Success(c, gen)
}

func (h *Handler) accountError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		response.BusinessError(c, response.CodeAccountNotFound, "account not found")
	case errors.Is(err, repository.ErrInsufficientBalance):
		response.BusinessError(c, response.CodeInsufficientBalance, "insufficient balance")
	default:
		response.ServerError(c, err.Error())
	}
}

func (h *Handler) generationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrGenerationNotFound):
		response.BusinessError(c, response.CodeGenerationNotFound, "generation not found or already finished")
	case errors.Is(err, repository.ErrAccountNotFound):
		response.BusinessError(c, response.CodeAccountNotFound, "account not found")
	case errors.Is(err, repository.ErrInsufficientBalance):
		response.BusinessError(c, response.CodeInsufficientBalance, "insufficient balance")
	default:
		response.ServerError(c, err.Error())
	}
}
