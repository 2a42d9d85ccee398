package services

import (
	"context"
	"time"

	"github.com/pollwave/pollwave/internal/logger"
	"github.com/pollwave/pollwave/internal/models"
)

// auditRepository is the slice of the repository used for audit records
type auditRepository interface {
	InsertAdminLog(ctx context.Context, entry *models.AdminLog) error
}

// Audit log action names
const (
	ActionBlockDevice        = "BLOCK_DEVICE"
	ActionUnblockDevice      = "UNBLOCK_DEVICE"
	ActionClosePoll          = "CLOSE_POLL"
	ActionArchivePoll        = "ARCHIVE_POLL"
	ActionDeletePoll         = "DELETE_POLL"
	ActionDeleteVote         = "DELETE_VOTE"
	ActionUpdateDeviceConfig = "UPDATE_DEVICE_CONFIG"
)

// recordAdminAction appends an audit record of an admin action. Calls with no
// acting admin are not recorded, and a failed write never fails the action
// that triggered it.
func recordAdminAction(ctx context.Context, log logger.Logger, repo auditRepository, adminID, action, targetType, targetID, description string) {
	if adminID == "" {
		return
	}
	entry := &models.AdminLog{
		AdminID:     adminID,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		Description: description,
		CreatedAt:   time.Now(),
	}
	if err := repo.InsertAdminLog(ctx, entry); err != nil {
		log.Warn("failed to record admin action", "action", action, "target_id", targetID, "error", err)
	}
}
