package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateEntry      = "CREATE_ENTRY"
	ActionPayEntry         = "PAY_ENTRY"
	ActionCollectEntry     = "COLLECT_ENTRY"
	ActionVoidEntry        = "VOID_ENTRY"
	ActionSaveInvoice      = "SAVE_INVOICE_FIELDS"
	ActionUploadAttachment = "UPLOAD_ATTACHMENT"
)

// AuditLog tracks Who, What, and When for every ledger mutation
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for unauthenticated dev flows
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
