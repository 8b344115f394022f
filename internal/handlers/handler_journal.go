package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/finbooks/ledger-core/internal/core/ports/services"
	"github.com/finbooks/ledger-core/internal/dto"
	"github.com/finbooks/ledger-core/internal/middleware"
)

// entryHandler handles HTTP requests for the journal entry lifecycle.
type entryHandler struct {
	entryService portssvc.EntrySvcFacade
	autoService  portssvc.AutoEntrySvcFacade
}

// newEntryHandler creates a new entryHandler.
func newEntryHandler(entryService portssvc.EntrySvcFacade, autoService portssvc.AutoEntrySvcFacade) *entryHandler {
	return &entryHandler{
		entryService: entryService,
		autoService:  autoService,
	}
}

// registerEntryRoutes wires the entry lifecycle under a company scope.
func registerEntryRoutes(rg *gin.RouterGroup, entrySvc portssvc.EntrySvcFacade, autoSvc portssvc.AutoEntrySvcFacade) {
	h := newEntryHandler(entrySvc, autoSvc)

	entries := rg.Group("/companies/:companyID/entries")
	{
		entries.POST("", h.createEntry)
		entries.GET("", h.listEntries)
		entries.POST("/auto", h.generateEntry)
		entries.GET("/:entryID", h.getEntry)
		entries.GET("/:entryID/timeline", h.getEntryTimeline)
		entries.POST("/:entryID/submit", h.submitEntry)
		entries.POST("/:entryID/approve", h.approveEntry)
		entries.POST("/:entryID/post", h.postEntry)
		entries.POST("/:entryID/void", h.voidEntry)
		entries.POST("/:entryID/reverse", h.reverseEntry)
	}
}

func (h *entryHandler) createEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("companyID")

	var req dto.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for createEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entry, err := h.entryService.CreateEntry(c.Request.Context(), companyID, req, creatorUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("Entry created via API", slog.String("entry_id", entry.EntryID))
	c.JSON(http.StatusCreated, dto.ToEntryResponse(entry))
}

func (h *entryHandler) listEntries(c *gin.Context) {
	companyID := c.Param("companyID")

	var params dto.ListEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp, err := h.entryService.ListEntries(c.Request.Context(), companyID, userID, params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *entryHandler) getEntry(c *gin.Context) {
	companyID := c.Param("companyID")
	entryID := c.Param("entryID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entry, err := h.entryService.GetEntryByID(c.Request.Context(), companyID, entryID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

func (h *entryHandler) getEntryTimeline(c *gin.Context) {
	companyID := c.Param("companyID")
	entryID := c.Param("entryID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	records, err := h.entryService.GetEntryTimeline(c.Request.Context(), companyID, entryID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	events := make([]dto.AuditRecordResponse, len(records))
	for i := range records {
		events[i] = dto.ToAuditRecordResponse(&records[i])
	}
	c.JSON(http.StatusOK, dto.EntryTimelineResponse{EntryID: entryID, Events: events})
}

func (h *entryHandler) submitEntry(c *gin.Context) {
	var req dto.SubmitEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	h.transition(c, func(companyID, entryID, actorID string) (any, error) {
		entry, err := h.entryService.SubmitEntry(c.Request.Context(), companyID, entryID, req, actorID)
		if err != nil {
			return nil, err
		}
		return dto.ToEntryResponse(entry), nil
	})
}

func (h *entryHandler) approveEntry(c *gin.Context) {
	var req dto.ApproveEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	h.transition(c, func(companyID, entryID, actorID string) (any, error) {
		entry, err := h.entryService.ApproveEntry(c.Request.Context(), companyID, entryID, req, actorID)
		if err != nil {
			return nil, err
		}
		return dto.ToEntryResponse(entry), nil
	})
}

func (h *entryHandler) postEntry(c *gin.Context) {
	var req dto.PostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	h.transition(c, func(companyID, entryID, actorID string) (any, error) {
		entry, err := h.entryService.PostEntry(c.Request.Context(), companyID, entryID, req, actorID)
		if err != nil {
			return nil, err
		}
		return dto.ToEntryResponse(entry), nil
	})
}

func (h *entryHandler) voidEntry(c *gin.Context) {
	var req dto.VoidEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Void reason is required"})
		return
	}
	h.transition(c, func(companyID, entryID, actorID string) (any, error) {
		entry, err := h.entryService.VoidEntry(c.Request.Context(), companyID, entryID, req, actorID)
		if err != nil {
			return nil, err
		}
		return dto.ToEntryResponse(entry), nil
	})
}

func (h *entryHandler) reverseEntry(c *gin.Context) {
	var req dto.ReverseEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	h.transition(c, func(companyID, entryID, actorID string) (any, error) {
		original, reversal, err := h.entryService.ReverseEntry(c.Request.Context(), companyID, entryID, req, actorID)
		if err != nil {
			return nil, err
		}
		return dto.ReverseEntryResponse{
			Original: dto.ToEntryResponse(original),
			Reversal: dto.ToEntryResponse(reversal),
		}, nil
	})
}

// transition factors the shared plumbing of the lifecycle endpoints: actor
// extraction, error mapping, 200 on success.
func (h *entryHandler) transition(c *gin.Context, fn func(companyID, entryID, actorID string) (any, error)) {
	companyID := c.Param("companyID")
	entryID := c.Param("entryID")

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp, err := fn(companyID, entryID, actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *entryHandler) generateEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("companyID")

	var req dto.AutoEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for generateEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.autoService.GenerateEntry(c.Request.Context(), companyID, req, &actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Outcome != dto.OutcomeCreated {
		status = http.StatusOK
	}
	c.JSON(status, result)
}
