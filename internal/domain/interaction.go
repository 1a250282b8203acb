package domain

import "time"

// InteractionKind — тип взаимодействия пользователя с товаром.
type InteractionKind string

const (
	KindView     InteractionKind = "view"
	KindClick    InteractionKind = "click"
	KindAlert    InteractionKind = "alert"
	KindPurchase InteractionKind = "purchase"
)

// Weight возвращает релевантность взаимодействия для коллаборативной фильтрации.
func (k InteractionKind) Weight() float64 {
	switch k {
	case KindView:
		return 0.5
	case KindClick:
		return 1.0
	case KindAlert:
		return 1.5
	case KindPurchase:
		return 3.0
	default:
		return 0
	}
}

func (k InteractionKind) Valid() bool {
	switch k {
	case KindView, KindClick, KindAlert, KindPurchase:
		return true
	}
	return false
}

// Interaction — событие взаимодействия. Запись append-only: после создания не изменяется.
type Interaction struct {
	SessionID string
	UserEmail string // пустая строка для анонимных сессий
	ProductID string
	Category  string
	Brand     string
	Kind      InteractionKind
	Weight    float64
	CreatedAt time.Time
}

// NewInteraction создаёт событие, вес выводится из типа взаимодействия.
func NewInteraction(sessionID, productID, category, brand string, kind InteractionKind) *Interaction {
	return &Interaction{
		SessionID: sessionID,
		ProductID: productID,
		Category:  category,
		Brand:     brand,
		Kind:      kind,
		Weight:    kind.Weight(),
		CreatedAt: time.Now().UTC(),
	}
}
