// Пакет rbac — роли пользователей Admin UI и права доступа к экранам.
// Роль определяется по группам IdP; при нескольких совпадениях
// берётся максимальная.
package rbac

// Роли в порядке возрастания привилегий.
const (
	RoleUser    = "user"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// roleWeight — вес роли для сравнения.
// Чем выше вес, тем больше привилегий.
var roleWeight = map[string]int{
	RoleUser:    1,
	RoleManager: 2,
	RoleAdmin:   3,
}

// Roles возвращает допустимые роли по возрастанию привилегий.
func Roles() []string {
	return []string{RoleUser, RoleManager, RoleAdmin}
}

// maxRole возвращает роль с максимальными привилегиями из двух.
func maxRole(a, b string) string {
	if roleWeight[a] >= roleWeight[b] {
		return a
	}
	return b
}

// HighestRole возвращает максимальную роль из набора.
// Если набор пуст — возвращает пустую строку.
func HighestRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	highest := roles[0]
	for _, r := range roles[1:] {
		highest = maxRole(highest, r)
	}
	return highest
}

// MapGroupsToRole определяет роль пользователя на основе его групп IdP.
// Пользователь без совпадений получает RoleUser.
func MapGroupsToRole(groups []string, adminGroups, managerGroups []string) string {
	adminSet := toSet(adminGroups)
	managerSet := toSet(managerGroups)

	roles := []string{RoleUser}
	for _, g := range groups {
		if adminSet[g] {
			roles = append(roles, RoleAdmin)
		}
		if managerSet[g] {
			roles = append(roles, RoleManager)
		}
	}

	return HighestRole(roles)
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// AtLeast сообщает, что роль не ниже минимальной.
// Неизвестная роль не проходит ни одну проверку.
func AtLeast(role, minRole string) bool {
	w, ok := roleWeight[role]
	if !ok {
		return false
	}
	return w >= roleWeight[minRole]
}

// CanManageFileRequests — создание, отзыв и удаление запросов файлов.
func CanManageFileRequests(role string) bool { return AtLeast(role, RoleManager) }

// CanViewActivity — просмотр и экспорт журнала активности файлов.
func CanViewActivity(role string) bool { return AtLeast(role, RoleManager) }

// CanManageTenantTemplates — переопределение шаблонов писем арендатора.
func CanManageTenantTemplates(role string) bool { return AtLeast(role, RoleManager) }

// CanManageSystemTemplates — изменение системных шаблонов.
func CanManageSystemTemplates(role string) bool { return AtLeast(role, RoleAdmin) }

// CanManageUsers — блокировка, смена email, пароля, роли и удаление.
func CanManageUsers(role string) bool { return AtLeast(role, RoleAdmin) }

// CanManageSettings — брендинг, общие настройки, страницы, антивирус.
func CanManageSettings(role string) bool { return AtLeast(role, RoleAdmin) }

// toSet конвертирует срез строк в map для быстрого поиска.
func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
