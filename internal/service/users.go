// users.go — управление пользователями (блокировка, email, пароль, роль, удаление).
// Все проверки выполняются до обращения к backend: при ошибке валидации
// запрос не отправляется.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
	"github.com/bigkaa/docvault/admin-module/internal/domain/rbac"
)

// MinPasswordLength — минимальная длина пароля.
const MinPasswordLength = 8

// UserBackend — операции backend для пользователей.
type UserBackend interface {
	ListUsers(ctx context.Context, search string) ([]model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	SuspendUser(ctx context.Context, id string, req model.SuspendRequest) error
	UnsuspendUser(ctx context.Context, id string) error
	ChangeUserEmail(ctx context.Context, id, email string) error
	ResetUserPassword(ctx context.Context, id, password string) error
	ChangeUserRole(ctx context.Context, id, role string) error
	DeleteUser(ctx context.Context, id string) error
}

// SuspendInput — параметры блокировки из формы.
type SuspendInput struct {
	Type      model.SuspensionType
	UntilDate *time.Time
	Reason    string
}

// UserService — операции окна управления пользователем.
type UserService struct {
	backend UserBackend
	audit   *AuditService
	logger  *slog.Logger
	now     func() time.Time
}

// NewUserService создаёт сервис управления пользователями.
func NewUserService(b UserBackend, audit *AuditService, logger *slog.Logger) *UserService {
	return &UserService{
		backend: b,
		audit:   audit,
		logger:  logger.With(slog.String("service", "users")),
		now:     time.Now,
	}
}

// List возвращает пользователей, опционально с поиском.
func (s *UserService) List(ctx context.Context, search string) ([]model.User, error) {
	users, err := s.backend.ListUsers(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, mapBackendError("список пользователей", err)
	}
	return users, nil
}

// Get возвращает пользователя.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.backend.GetUser(ctx, id)
	if err != nil {
		return nil, mapBackendError("получение пользователя", err)
	}
	return u, nil
}

// ValidateSuspend проверяет параметры блокировки и формирует запрос.
func (s *UserService) ValidateSuspend(in SuspendInput) (model.SuspendRequest, error) {
	req := model.SuspendRequest{
		SuspensionType: in.Type,
		Reason:         strings.TrimSpace(in.Reason),
	}
	switch in.Type {
	case model.SuspensionTimed:
		if in.UntilDate == nil || in.UntilDate.IsZero() {
			return req, validationf("для временной блокировки укажите дату окончания")
		}
		if !in.UntilDate.After(s.now()) {
			return req, validationf("дата окончания блокировки должна быть в будущем")
		}
		until := in.UntilDate.UTC()
		req.UntilDate = &until
	case model.SuspensionIndefinite:
		// дата не передаётся
	default:
		return req, validationf("недопустимый вид блокировки %q", in.Type)
	}
	if len(req.Reason) > 500 {
		return req, validationf("причина длиннее 500 символов")
	}
	return req, nil
}

// Suspend блокирует пользователя.
func (s *UserService) Suspend(ctx context.Context, id string, in SuspendInput) error {
	if err := s.notSelf(ctx, id, "заблокировать"); err != nil {
		return err
	}
	req, err := s.ValidateSuspend(in)
	if err != nil {
		return err
	}

	err = s.backend.SuspendUser(ctx, id, req)
	s.audit.Record(ctx, AuditUserSuspend, TargetUser, id, string(in.Type), err)
	if err != nil {
		return mapBackendError("блокировка пользователя", err)
	}
	return nil
}

// Unsuspend снимает блокировку.
func (s *UserService) Unsuspend(ctx context.Context, id string) error {
	err := s.backend.UnsuspendUser(ctx, id)
	s.audit.Record(ctx, AuditUserUnsuspend, TargetUser, id, "", err)
	if err != nil {
		return mapBackendError("разблокировка пользователя", err)
	}
	return nil
}

// ChangeEmail меняет адрес; адрес и подтверждение должны совпадать.
func (s *UserService) ChangeEmail(ctx context.Context, id, email, confirm string) error {
	email = strings.TrimSpace(email)
	if err := validateVar("email", email, "required,email,max=254"); err != nil {
		return err
	}
	if email != strings.TrimSpace(confirm) {
		return validationf("адреса не совпадают")
	}

	err := s.backend.ChangeUserEmail(ctx, id, email)
	s.audit.Record(ctx, AuditUserEmail, TargetUser, id, "", err)
	if err != nil {
		return mapBackendError("смена email", err)
	}
	return nil
}

// ValidatePassword проверяет политику паролей и совпадение с подтверждением.
func ValidatePassword(password, confirm string) error {
	if len([]rune(password)) < MinPasswordLength {
		return validationf("пароль короче %d символов", MinPasswordLength)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}

	var missing []string
	if !upper {
		missing = append(missing, "заглавную букву")
	}
	if !lower {
		missing = append(missing, "строчную букву")
	}
	if !digit {
		missing = append(missing, "цифру")
	}
	if !special {
		missing = append(missing, "спецсимвол")
	}
	if len(missing) > 0 {
		return validationf("пароль должен содержать %s", strings.Join(missing, ", "))
	}
	if password != confirm {
		return validationf("пароли не совпадают")
	}
	return nil
}

// ResetPassword устанавливает новый пароль.
func (s *UserService) ResetPassword(ctx context.Context, id, password, confirm string) error {
	if err := ValidatePassword(password, confirm); err != nil {
		return err
	}

	err := s.backend.ResetUserPassword(ctx, id, password)
	s.audit.Record(ctx, AuditUserPassword, TargetUser, id, "", err)
	if err != nil {
		return mapBackendError("смена пароля", err)
	}
	return nil
}

// ChangeRole меняет роль пользователя.
func (s *UserService) ChangeRole(ctx context.Context, id, role string) error {
	if !rbac.IsValidRole(role) {
		return validationf("некорректная роль %q: допустимые значения — %s", role, strings.Join(rbac.Roles(), ", "))
	}
	if err := s.notSelf(ctx, id, "изменить роль"); err != nil {
		return err
	}

	err := s.backend.ChangeUserRole(ctx, id, role)
	s.audit.Record(ctx, AuditUserRole, TargetUser, id, role, err)
	if err != nil {
		return mapBackendError("смена роли", err)
	}
	return nil
}

// CanDeletePermanently — кнопка удаления активна только при точном
// совпадении введённого текста с email пользователя.
func CanDeletePermanently(u *model.User, typed string) bool {
	return u != nil && u.Email != "" && typed == u.Email
}

// DeletePermanently удаляет пользователя после повторной проверки подтверждения.
func (s *UserService) DeletePermanently(ctx context.Context, u *model.User, typed string) error {
	if !CanDeletePermanently(u, typed) {
		return validationf("введённый текст не совпадает с email пользователя")
	}
	if err := s.notSelf(ctx, u.ID, "удалить"); err != nil {
		return err
	}

	err := s.backend.DeleteUser(ctx, u.ID)
	s.audit.Record(ctx, AuditUserDelete, TargetUser, u.ID, u.Email, err)
	if err != nil {
		return mapBackendError("удаление пользователя", err)
	}
	s.logger.Warn("Пользователь удалён окончательно",
		slog.String("user_id", u.ID),
		slog.String("actor", ActorFromContext(ctx).Name),
	)
	return nil
}

// notSelf запрещает действие над собственной учётной записью.
func (s *UserService) notSelf(ctx context.Context, id, action string) error {
	if actor := ActorFromContext(ctx); actor.ID != "" && actor.ID == id {
		return validationf("нельзя %s собственную учётную запись", action)
	}
	return nil
}
