package service

import "context"

// Actor — пользователь Admin UI, выполняющий действие.
type Actor struct {
	// ID — subject из токена
	ID string
	// Name — имя для журнала
	Name string
	// Email — адрес пользователя
	Email string
	// Role — эффективная роль (user, manager, admin)
	Role string
}

type actorKey struct{}

// WithActor сохраняет текущего пользователя в контексте.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext возвращает текущего пользователя.
// Вне авторизованного запроса возвращает Actor{Name: "system"}.
func ActorFromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return Actor{Name: "system"}
}
