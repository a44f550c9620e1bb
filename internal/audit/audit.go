package audit

import (
	"time"

	auditDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/audit"
)

type Action string

const (
	ActionUpload         Action = "UPLOAD"
	ActionApproved       Action = "APROVADO"
	ActionRejected       Action = "REJEITADO"
	ActionPayment        Action = "PAGAMENTO"
	ActionConciliated    Action = "CONCILIADO"
	ActionDelete         Action = "DELETE"
	ActionAttachment     Action = "ATTACHMENT"
	ActionLogin          Action = "LOGIN"
	ActionCreateUser     Action = "CREATE_USER"
	ActionDeleteUser     Action = "DELETE_USER"
	ActionUpdateSettings Action = "UPDATE_SETTINGS"
	ActionUpdateProfile  Action = "UPDATE_PROFILE"
)

// DefaultListLimit bounds the audit trail returned to administrators.
const DefaultListLimit = 200

type Entry struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"userId"`
	UserName  string    `json:"userName"`
	Action    Action    `json:"action"`
	Details   string    `json:"details"`
	IPAddress string    `json:"ipAddress"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewEntry(userID int64, userName string, action Action, details string) Entry {
	e := Entry{
		UserName: userName,
		Action:   action,
		Details:  details,
	}
	if userID > 0 {
		e.UserID = &userID
	}
	return e
}

func ToDataModel(e *Entry) *auditDatamodel.AuditLog {
	return &auditDatamodel.AuditLog{
		ID:        e.ID,
		UserID:    e.UserID,
		UserName:  e.UserName,
		Action:    string(e.Action),
		Details:   e.Details,
		IPAddress: e.IPAddress,
		CreatedAt: e.CreatedAt,
	}
}

func FromDataModel(l *auditDatamodel.AuditLog) *Entry {
	return &Entry{
		ID:        l.ID,
		UserID:    l.UserID,
		UserName:  l.UserName,
		Action:    Action(l.Action),
		Details:   l.Details,
		IPAddress: l.IPAddress,
		CreatedAt: l.CreatedAt,
	}
}
