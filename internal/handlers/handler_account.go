package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/finbooks/ledger-core/internal/core/ports/services"
	"github.com/finbooks/ledger-core/internal/dto"
	"github.com/finbooks/ledger-core/internal/middleware"
)

// accountHandler handles HTTP requests for the chart of accounts.
type accountHandler struct {
	accountService portssvc.AccountSvcFacade
}

func newAccountHandler(accountService portssvc.AccountSvcFacade) *accountHandler {
	return &accountHandler{accountService: accountService}
}

// registerAccountRoutes wires account management under a company scope.
func registerAccountRoutes(rg *gin.RouterGroup, accountSvc portssvc.AccountSvcFacade) {
	h := newAccountHandler(accountSvc)

	accounts := rg.Group("/companies/:companyID/accounts")
	{
		accounts.POST("", h.createAccount)
		accounts.GET("", h.listAccounts)
		accounts.GET("/:accountID", h.getAccount)
		accounts.DELETE("/:accountID", h.deactivateAccount)
		accounts.GET("/:accountID/balance-check", h.checkBalance)
	}
}

func (h *accountHandler) createAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("companyID")

	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for createAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), companyID, req, creatorUserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToAccountResponse(account))
}

func (h *accountHandler) listAccounts(c *gin.Context) {
	companyID := c.Param("companyID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), companyID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]dto.AccountResponse, len(accounts))
	for i := range accounts {
		responses[i] = dto.ToAccountResponse(&accounts[i])
	}
	c.JSON(http.StatusOK, gin.H{"accounts": responses})
}

func (h *accountHandler) getAccount(c *gin.Context) {
	companyID := c.Param("companyID")
	accountID := c.Param("accountID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	account, err := h.accountService.GetAccountByID(c.Request.Context(), companyID, accountID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

func (h *accountHandler) deactivateAccount(c *gin.Context) {
	companyID := c.Param("companyID")
	accountID := c.Param("accountID")

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.accountService.DeactivateAccount(c.Request.Context(), companyID, accountID, actorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *accountHandler) checkBalance(c *gin.Context) {
	companyID := c.Param("companyID")
	accountID := c.Param("accountID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp, err := h.accountService.CheckBalanceConsistency(c.Request.Context(), companyID, accountID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
