package providers

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestRegistry_ResolveKnownProvider(t *testing.T) {
	registry := NewRegistry(
		NewTelegramWidget(testBotToken, 24*time.Hour),
		NewTelegramBot(testBotToken, 24*time.Hour),
	)

	profile, err := registry.Resolve("telegram", widgetPayload(time.Now()))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if profile.Provider != "telegram" {
		t.Fatalf("unexpected provider %q", profile.Provider)
	}
}

func TestRegistry_UnknownProviderRejected(t *testing.T) {
	registry := NewRegistry(NewTelegramWidget(testBotToken, 24*time.Hour))

	_, err := registry.Resolve("myspace", Payload{})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestRegistry_NamesSorted(t *testing.T) {
	registry := NewRegistry(
		NewTelegramWidget(testBotToken, 24*time.Hour),
		NewGitHub(testStateSecret, time.Hour),
		NewTelegramBot(testBotToken, 24*time.Hour),
	)

	want := []string{"github", "telegram", "telegram-bot"}
	if got := registry.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRegistry_VerifyFailureStopsResolve(t *testing.T) {
	registry := NewRegistry(NewTelegramWidget(testBotToken, 24*time.Hour))

	payload := widgetPayload(time.Now())
	payload["id"] = "tampered"
	if _, err := registry.Resolve("telegram", payload); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}
