package guide

import (
	"net/http"

	"meal-prep-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ConsolidateRequest carries already-parsed recipes whose ingredients
// should be merged into one shopping list.
type ConsolidateRequest struct {
	Recipes []common.ParsedRecipe `json:"recipes" binding:"required"`
}

// ConsolidateResponse is the shopping-list payload.
type ConsolidateResponse struct {
	ConsolidatedIngredients []common.ConsolidatedIngredient `json:"consolidatedIngredients"`
}

// HandleConsolidate merges ingredients across recipes. Consolidation
// itself never fails; only a malformed request is an error.
func (h *Handler) HandleConsolidate(c *gin.Context) {
	reqID := requestID(c)

	var req ConsolidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("Invalid consolidate request",
			zap.Error(err),
			zap.String("request_id", reqID),
		)
		writeError(c, common.NewInvalidInput("invalid request format"))
		return
	}
	if len(req.Recipes) == 0 {
		writeError(c, common.NewInvalidInput("at least one recipe is required"))
		return
	}

	list := h.orchestrator.Consolidate(c.Request.Context(), req.Recipes)

	common.LogInfo("Consolidation request completed",
		zap.String("request_id", reqID),
		zap.Int("recipes", len(req.Recipes)),
		zap.Int("ingredients", len(list)),
	)

	c.JSON(http.StatusOK, ConsolidateResponse{
		ConsolidatedIngredients: list,
	})
}
