package main

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"qms/hospital-service/internal/config"
	"qms/hospital-service/internal/events"
	"qms/hospital-service/internal/hub"
)

func TestOpenMemoryStoreSeedsSystemUser(t *testing.T) {
	cfg := config.Config{StoreDriver: config.DriverMemory, SystemUserID: config.DefaultSystemUserID}
	st, closeStore, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer closeStore()

	user, err := st.GetUser(context.Background(), config.DefaultSystemUserID)
	if err != nil {
		t.Fatalf("expected system user, got %v", err)
	}
	if user.RoleName != "administrator" {
		t.Fatalf("expected administrator role, got %q", user.RoleName)
	}
}

func TestNewPublisherWithoutBrokers(t *testing.T) {
	displays := hub.New(zerolog.Nop())
	publisher, closePublisher := newPublisher(config.Config{}, displays, zerolog.Nop())
	defer closePublisher()
	if publisher != events.Publisher(displays) {
		t.Fatalf("expected hub publisher, got %T", publisher)
	}

	multi, closeMulti := newPublisher(config.Config{KafkaBrokers: "localhost:9092", KafkaTopic: "calls"}, displays, zerolog.Nop())
	defer closeMulti()
	if m, ok := multi.(events.Multi); !ok || len(m) != 2 {
		t.Fatalf("expected hub and kafka publishers, got %T", multi)
	}
}

func TestMigrateCommandTree(t *testing.T) {
	cmd := migrateCmd()
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
		if sub.Flags().Lookup("dir") == nil {
			t.Fatalf("%s: missing --dir flag", sub.Name())
		}
	}
	if strings.Join(names, ",") != "status,up" {
		t.Fatalf("unexpected subcommands %v", names)
	}

	if serve := serveCmd(); serve.Use != "serve" {
		t.Fatalf("unexpected serve command %q", serve.Use)
	}
}
