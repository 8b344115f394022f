package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/finbooks/ledger-core/internal/core/ports/services"
	"github.com/finbooks/ledger-core/internal/dto"
	"github.com/finbooks/ledger-core/internal/middleware"
)

// companyHandler handles HTTP requests for companies and memberships.
type companyHandler struct {
	companyService portssvc.CompanySvcFacade
}

func newCompanyHandler(companyService portssvc.CompanySvcFacade) *companyHandler {
	return &companyHandler{companyService: companyService}
}

// registerCompanyRoutes wires company management routes.
func registerCompanyRoutes(rg *gin.RouterGroup, companySvc portssvc.CompanySvcFacade) {
	h := newCompanyHandler(companySvc)

	companies := rg.Group("/companies")
	{
		companies.POST("", h.createCompany)
		companies.GET("/:companyID", h.getCompany)
		companies.POST("/:companyID/members", h.addMember)
	}
}

func (h *companyHandler) createCompany(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for createCompany", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	company, err := h.companyService.CreateCompany(c.Request.Context(), req, creatorUserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToCompanyResponse(company))
}

func (h *companyHandler) getCompany(c *gin.Context) {
	companyID := c.Param("companyID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	company, err := h.companyService.GetCompanyByID(c.Request.Context(), companyID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCompanyResponse(company))
}

func (h *companyHandler) addMember(c *gin.Context) {
	companyID := c.Param("companyID")

	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.companyService.AddMember(c.Request.Context(), companyID, req, actorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
