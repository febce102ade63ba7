package guide

import (
	"net/http"
	"strings"

	guideService "meal-prep-planner/internal/core/guide"
	"meal-prep-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CombineRequest is the input for both the streaming and non-streaming
// combine endpoints.
type CombineRequest struct {
	Recipes []common.RecipeSource `json:"recipes" binding:"required"`
}

// Handler serves the combine and consolidation endpoints.
type Handler struct {
	orchestrator *guideService.Orchestrator
}

// NewHandler creates the guide handler.
func NewHandler(orchestrator *guideService.Orchestrator) *Handler {
	return &Handler{
		orchestrator: orchestrator,
	}
}

func requestID(c *gin.Context) string {
	id := c.GetHeader("X-Request-ID")
	if id == "" {
		id = uuid.New().String()
		c.Header("X-Request-ID", id)
	}
	return id
}

// validateSources checks the caller request before any work starts.
func validateSources(sources []common.RecipeSource) *common.CustomError {
	if len(sources) == 0 {
		return common.NewInvalidInput("at least one recipe is required")
	}
	for _, src := range sources {
		if src.Kind != common.SourceKindURL && src.Kind != common.SourceKindText {
			return common.NewInvalidInput("recipe kind must be \"url\" or \"text\"")
		}
		if strings.TrimSpace(src.Content) == "" {
			return common.NewInvalidInput("recipe content must not be empty")
		}
	}
	return nil
}

func writeError(c *gin.Context, err error) {
	c.JSON(common.StatusOf(err), gin.H{
		"error": err.Error(),
		"code":  common.CodeOf(err),
	})
}

// HandleStream runs one combine session over server-sent events:
// metadata once, chunks as generated, then exactly one done or error.
func (h *Handler) HandleStream(c *gin.Context) {
	reqID := requestID(c)

	var req CombineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("Invalid combine request",
			zap.Error(err),
			zap.String("request_id", reqID),
		)
		writeError(c, common.NewInvalidInput("invalid request format"))
		return
	}
	if verr := validateSources(req.Recipes); verr != nil {
		writeError(c, verr)
		return
	}

	common.LogInfo("Starting combine stream",
		zap.String("request_id", reqID),
		zap.Int("recipes", len(req.Recipes)),
		zap.String("client_ip", c.ClientIP()),
	)

	emitter, err := newSSEEmitter(c.Writer)
	if err != nil {
		writeError(c, common.NewError(common.ErrCodeInternalError, "streaming not supported", http.StatusInternalServerError, err))
		return
	}

	if err := h.orchestrator.Stream(c.Request.Context(), req.Recipes, emitter); err != nil {
		// Nothing was emitted yet, so a structured error response is
		// still possible.
		writeError(c, err)
		return
	}
}

// HandleCombine is the non-streaming fallback for callers that cannot
// consume incremental events.
func (h *Handler) HandleCombine(c *gin.Context) {
	reqID := requestID(c)

	var req CombineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("Invalid combine request",
			zap.Error(err),
			zap.String("request_id", reqID),
		)
		writeError(c, common.NewInvalidInput("invalid request format"))
		return
	}
	if verr := validateSources(req.Recipes); verr != nil {
		writeError(c, verr)
		return
	}

	common.LogInfo("Starting combine request",
		zap.String("request_id", reqID),
		zap.Int("recipes", len(req.Recipes)),
		zap.String("client_ip", c.ClientIP()),
	)

	result, err := h.orchestrator.Combine(c.Request.Context(), req.Recipes)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
