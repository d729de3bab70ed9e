package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"giveaway_payout_service/internal/app"
	"giveaway_payout_service/internal/domain/giveaway"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// secretHeader carries the shared secret guarding the administrative
// endpoints (execute, seed, lock).
const secretHeader = "X-Giveaway-Secret"

type GiveawayHandler struct {
	enrollment  *app.EnrollmentService
	status      *app.StatusService
	payout      *app.PayoutService
	admin       *app.AdminService
	adminSecret string
	logger      *logrus.Logger
}

func NewGiveawayHandler(
	enrollment *app.EnrollmentService,
	status *app.StatusService,
	payout *app.PayoutService,
	admin *app.AdminService,
	adminSecret string,
	logger *logrus.Logger,
) *GiveawayHandler {
	return &GiveawayHandler{
		enrollment:  enrollment,
		status:      status,
		payout:      payout,
		admin:       admin,
		adminSecret: adminSecret,
		logger:      logger,
	}
}

type joinRequest struct {
	Address         string `json:"address" binding:"required"`
	PreviousAddress string `json:"previousAddress"`
	PreviousCycleID int64  `json:"previousCycleId"`
}

// POST /api/giveaway/join
func (h *GiveawayHandler) Join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	snapshot, err := h.enrollment.Join(c.Request.Context(), req.Address, req.PreviousAddress, req.PreviousCycleID)
	if err != nil {
		switch {
		case errors.Is(err, giveaway.ErrInvalidAddress):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, app.ErrNoOpenCycle):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, app.ErrCycleFull), errors.Is(err, app.ErrAddressTaken):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Errorf("Join failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// GET /api/giveaway/status
func (h *GiveawayHandler) Status(c *gin.Context) {
	// The snapshot reflects live state and must not be cached.
	c.Header("Cache-Control", "no-store")

	snapshot, err := h.status.Status(c.Request.Context(), c.Query("address"))
	if err != nil {
		h.logger.Errorf("Status projection failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// POST /api/giveaway/execute
func (h *GiveawayHandler) Execute(c *gin.Context) {
	if !h.authorized(c) {
		return
	}

	// An absent dry_run means a real payout; an unparsable one is rejected
	// rather than defaulted, because defaulting a typo to false triggers
	// irreversible transfers.
	var dryRun bool
	if raw := c.Query("dry_run"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dry_run must be a boolean"})
			return
		}
		dryRun = parsed
	}

	summary, err := h.payout.Execute(c.Request.Context(), dryRun)
	if err != nil {
		h.logger.Errorf("Payout execution failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "payout execution failed"})
		return
	}

	resp := gin.H{"message": summary.Message}
	if len(summary.TransactionHashes) > 0 {
		resp["transactionHashes"] = summary.TransactionHashes
	}
	c.JSON(http.StatusOK, resp)
}

type seedCycleRequest struct {
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	ScheduledAt     *time.Time      `json:"scheduledAt"`
	MaxParticipants int             `json:"maxParticipants" binding:"required"`
	IsTestMode      bool            `json:"isTestMode"`
}

// POST /api/giveaway/cycles
func (h *GiveawayHandler) SeedCycle(c *gin.Context) {
	if !h.authorized(c) {
		return
	}

	var req seedCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	scheduledAt := time.Time{}
	if req.ScheduledAt != nil {
		scheduledAt = *req.ScheduledAt
	}

	cycle, err := h.admin.SeedCycle(c.Request.Context(), req.Amount, scheduledAt, req.MaxParticipants, req.IsTestMode)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidCondition):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, app.ErrOpenCycleExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Errorf("Cycle seeding failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"cycleId": cycle.ID, "status": cycle.Status})
}

// POST /api/giveaway/cycles/lock
func (h *GiveawayHandler) LockCycle(c *gin.Context) {
	if !h.authorized(c) {
		return
	}

	cycle, err := h.admin.LockCycle(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNoOpenCycle):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, app.ErrCycleNotLockable):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Errorf("Cycle lock failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"cycleId": cycle.ID, "status": cycle.Status})
}

// authorized performs the constant-time shared-secret comparison on the
// administrative endpoints and writes a 401 on mismatch.
func (h *GiveawayHandler) authorized(c *gin.Context) bool {
	supplied := c.GetHeader(secretHeader)
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(h.adminSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	return true
}
