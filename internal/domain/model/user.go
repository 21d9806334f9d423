package model

import "time"

// UserStatus — статус учётной записи пользователя.
type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
)

// User — пользователь арендатора (ответ GET /api/users/{id}).
type User struct {
	// ID — идентификатор пользователя в backend
	ID string `json:"id"`
	// Email — адрес электронной почты, он же подтверждение удаления
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	// Role — роль (user, manager, admin)
	Role       string     `json:"role"`
	Department string     `json:"department,omitempty"`
	Status     UserStatus `json:"status"`
	// SuspendedUntil — окончание временной блокировки (nil — бессрочно или не заблокирован)
	SuspendedUntil *time.Time `json:"suspended_until,omitempty"`
	// SuspendReason — причина блокировки
	SuspendReason string     `json:"suspend_reason,omitempty"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// DisplayName возвращает имя для отображения, при его отсутствии — email.
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}

// IsSuspended сообщает, заблокирован ли пользователь.
func (u *User) IsSuspended() bool {
	return u.Status == UserSuspended
}

// SuspensionType — вид блокировки.
type SuspensionType string

const (
	SuspensionTimed      SuspensionType = "timed"
	SuspensionIndefinite SuspensionType = "indefinite"
)

// SuspendRequest — тело POST /api/users/{id}/suspend.
type SuspendRequest struct {
	SuspensionType SuspensionType `json:"suspension_type"`
	// UntilDate — обязательна для timed
	UntilDate *time.Time `json:"until_date,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// EmailChangeRequest — тело PUT /api/users/{id}/email.
type EmailChangeRequest struct {
	Email string `json:"email"`
}

// PasswordResetRequest — тело PUT /api/users/{id}/password.
type PasswordResetRequest struct {
	Password string `json:"password"`
}

// RoleChangeRequest — тело PUT /api/users/{id}/role.
type RoleChangeRequest struct {
	Role string `json:"role"`
}
