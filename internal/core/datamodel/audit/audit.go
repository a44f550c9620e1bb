package audit

import "time"

type AuditLog struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    *int64    `gorm:"column:user_id;index"`
	UserName  string    `gorm:"column:user_name;not null"`
	Action    string    `gorm:"column:action;not null;index"`
	Details   string    `gorm:"column:details"`
	IPAddress string    `gorm:"column:ip_address"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
