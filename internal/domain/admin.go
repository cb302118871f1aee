package domain

import "time"

type AdminUser struct {
	ID           uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"size:100;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Models returns every persisted entity in dependency order for migrations.
func Models() []any {
	return []any{&MenuItem{}, &Order{}, &OrderLine{}, &AdminUser{}}
}
