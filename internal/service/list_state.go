// list_state.go — состояние постраничного списка с догрузкой.
// Ответ применяется, только если билет совпадает с текущим состоянием:
// то же поколение (не было сброса при переключении вкладки) и то же
// смещение (не было другой догрузки или удаления). Иначе ErrStale.
package service

import (
	"sync"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

// Identifiable — запись списка с идентификатором для дедупликации.
type Identifiable interface {
	GetID() string
}

// ListTicket — параметры запроса следующей страницы.
type ListTicket struct {
	// Generation — поколение списка на момент запроса
	Generation uint64
	// Offset — смещение, равное числу уже загруженных записей
	Offset int
}

// ListSnapshot — копия состояния для отображения.
type ListSnapshot[T Identifiable] struct {
	Items   []T
	Total   int
	Loaded  bool
	HasMore bool
}

// ListState — накопленные записи, общее число на сервере и поколение.
type ListState[T Identifiable] struct {
	mu         sync.Mutex
	items      []T
	ids        map[string]struct{}
	total      int
	generation uint64
	loaded     bool
	exhausted  bool
}

// NewListState создаёт пустой список.
func NewListState[T Identifiable]() *ListState[T] {
	return &ListState[T]{ids: make(map[string]struct{})}
}

// Reset очищает список и начинает новое поколение.
// Возвращает билет на загрузку первой страницы.
func (l *ListState[T]) Reset() ListTicket {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.generation++
	l.items = nil
	l.ids = make(map[string]struct{})
	l.total = 0
	l.loaded = false
	l.exhausted = false
	return ListTicket{Generation: l.generation, Offset: 0}
}

// Next возвращает билет на догрузку: offset = число загруженных записей.
func (l *ListState[T]) Next() ListTicket {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ListTicket{Generation: l.generation, Offset: len(l.items)}
}

// Apply добавляет страницу к списку, пропуская уже известные записи.
// Два одновременных запроса догрузки получают одинаковый билет: второй
// ответ приходит к уже выросшему списку и отбрасывается.
func (l *ListState[T]) Apply(t ListTicket, page model.Page[T]) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t.Generation != l.generation || t.Offset != len(l.items) {
		return ErrStale
	}

	added := 0
	for _, item := range page.Items {
		id := item.GetID()
		if _, dup := l.ids[id]; dup {
			continue
		}
		l.ids[id] = struct{}{}
		l.items = append(l.items, item)
		added++
	}
	l.total = page.Total
	l.loaded = true
	// Со своего смещения сервер не вернул новых записей
	l.exhausted = t.Offset > 0 && (len(page.Items) == 0 || added == 0)
	return nil
}

// Remove удаляет запись из списка и уменьшает общее число.
func (l *ListState[T]) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.ids[id]; !ok {
		return false
	}
	delete(l.ids, id)
	for i, item := range l.items {
		if item.GetID() == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			break
		}
	}
	if l.total > 0 {
		l.total--
	}
	return true
}

// HasMore сообщает, есть ли на сервере незагруженные записи.
func (l *ListState[T]) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasMore()
}

func (l *ListState[T]) hasMore() bool {
	return l.loaded && !l.exhausted && len(l.items) < l.total
}

// Snapshot возвращает копию состояния.
func (l *ListState[T]) Snapshot() ListSnapshot[T] {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := make([]T, len(l.items))
	copy(items, l.items)
	return ListSnapshot[T]{
		Items:   items,
		Total:   l.total,
		Loaded:  l.loaded,
		HasMore: l.hasMore(),
	}
}

