package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/outletiq/reco-backend/internal/domain"
	"github.com/outletiq/reco-backend/pkg/e"
)

func TestRecordValidation(t *testing.T) {
	uc := NewInteractionUsecase(&fakeInteractionRepo{}, &fakeCatalogRepo{}, &fakeProducer{}, nopLogger{})

	err := uc.Record(context.Background(), &RecordInteractionReq{SessionID: " ", ProductID: "p1", Kind: "view"})
	if !errors.Is(err, e.ErrSessionIDRequired) {
		t.Fatalf("expected ErrSessionIDRequired, got %v", err)
	}

	err = uc.Record(context.Background(), &RecordInteractionReq{SessionID: "s1", ProductID: "", Kind: "view"})
	if !errors.Is(err, e.ErrProductIDRequired) {
		t.Fatalf("expected ErrProductIDRequired, got %v", err)
	}

	err = uc.Record(context.Background(), &RecordInteractionReq{SessionID: "s1", ProductID: "p1", Kind: "hover"})
	if !errors.Is(err, e.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestRecordSnapshotsCatalogAttributes(t *testing.T) {
	interactions := &fakeInteractionRepo{}
	catalog := &fakeCatalogRepo{products: map[string]ProductInfo{
		"p1": inStock("p1", "sneakers", "acme"),
	}}
	producer := &fakeProducer{}
	uc := NewInteractionUsecase(interactions, catalog, producer, nopLogger{})

	err := uc.Record(context.Background(), &RecordInteractionReq{
		SessionID: "s1",
		ProductID: "p1",
		Kind:      "purchase",
		UserEmail: " user@example.com ",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	if len(interactions.appended) != 1 {
		t.Fatalf("expected one appended event, got %d", len(interactions.appended))
	}
	inter := interactions.appended[0]
	if inter.Category != "sneakers" || inter.Brand != "acme" {
		t.Fatalf("catalog attributes not snapshotted: %+v", inter)
	}
	if inter.Kind != domain.KindPurchase || inter.Weight != domain.KindPurchase.Weight() {
		t.Fatalf("wrong kind/weight: %s %f", inter.Kind, inter.Weight)
	}
	if inter.UserEmail != "user@example.com" {
		t.Fatalf("email must be trimmed, got %q", inter.UserEmail)
	}

	// Публикация в шину асинхронная
	deadline := time.Now().Add(time.Second)
	for producer.publishedCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if producer.publishedCount() != 1 {
		t.Fatal("event was not published to the bus")
	}
}

func TestRecordLogWriteFailureDoesNotFailCaller(t *testing.T) {
	interactions := &fakeInteractionRepo{err: errors.New("pg down")}
	catalog := &fakeCatalogRepo{products: map[string]ProductInfo{
		"p1": inStock("p1", "sneakers", "acme"),
	}}
	uc := NewInteractionUsecase(interactions, catalog, &fakeProducer{}, nopLogger{})

	err := uc.Record(context.Background(), &RecordInteractionReq{SessionID: "s1", ProductID: "p1", Kind: "view"})
	if err != nil {
		t.Fatalf("failed log write must not surface to the caller, got %v", err)
	}
}

func TestRecordCatalogFailureDoesNotFailCaller(t *testing.T) {
	interactions := &fakeInteractionRepo{}
	catalog := &fakeCatalogRepo{err: errors.New("pg down")}
	uc := NewInteractionUsecase(interactions, catalog, &fakeProducer{}, nopLogger{})

	err := uc.Record(context.Background(), &RecordInteractionReq{SessionID: "s1", ProductID: "p1", Kind: "view"})
	if err != nil {
		t.Fatalf("failed attribute lookup must not surface to the caller, got %v", err)
	}
	if len(interactions.appended) != 1 {
		t.Fatal("event must still be appended without catalog attributes")
	}
	if interactions.appended[0].Category != "" {
		t.Fatalf("expected empty category, got %q", interactions.appended[0].Category)
	}
}

func TestRecordUnknownProductStillLogged(t *testing.T) {
	interactions := &fakeInteractionRepo{}
	catalog := &fakeCatalogRepo{products: map[string]ProductInfo{}}
	uc := NewInteractionUsecase(interactions, catalog, &fakeProducer{}, nopLogger{})

	err := uc.Record(context.Background(), &RecordInteractionReq{SessionID: "s1", ProductID: "ghost", Kind: "view"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(interactions.appended) != 1 {
		t.Fatal("event for unknown product must still be appended")
	}
	if interactions.appended[0].Category != "" {
		t.Fatalf("unknown product must get empty category, got %q", interactions.appended[0].Category)
	}
}
