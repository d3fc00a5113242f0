package models

import (
	"time"
)

// Link короткая ссылка вместе со счётчиками переходов
type Link struct {
	Code        string     `json:"code"`
	TargetURL   string     `json:"targetUrl"`
	TotalClicks int64      `json:"totalClicks"`
	LastClicked *time.Time `json:"lastClicked"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// CreateLinkInput входные данные для создания ссылки. Пустой Code означает генерацию кода.
type CreateLinkInput struct {
	TargetURL string
	Code      *string
}

// HasCustomCode сообщает, передал ли клиент собственный код
func (in *CreateLinkInput) HasCustomCode() bool {
	return in.Code != nil && *in.Code != ""
}
