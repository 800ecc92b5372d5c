package main

import (
	"context"
	"testing"

	"github.com/inconshreveable/log15"

	"partyhub/config"
)

func quietLogger() log15.Logger {
	l := log15.New()
	l.SetHandler(log15.DiscardHandler())
	return l
}

func TestNewRegistry(t *testing.T) {
	games := newRegistry()

	if _, err := games.Get("wordduel"); err != nil {
		t.Errorf("Expected wordduel to be registered: %v", err)
	}
	if _, err := games.Get("unknown"); err == nil {
		t.Error("Expected unknown game type to be rejected")
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		st, err := openStore(ctx, config.Config{StoreBackend: config.BackendMemory}, quietLogger())
		if err != nil {
			t.Fatalf("openStore failed: %v", err)
		}
		defer st.Close()
		if _, err := st.ListRooms(ctx); err != nil {
			t.Errorf("Expected a working store: %v", err)
		}
	})

	t.Run("badger", func(t *testing.T) {
		st, err := openStore(ctx, config.Config{StoreBackend: config.BackendBadger, BadgerDir: t.TempDir()}, quietLogger())
		if err != nil {
			t.Fatalf("openStore failed: %v", err)
		}
		defer st.Close()
	})

	t.Run("unknown backend", func(t *testing.T) {
		if _, err := openStore(ctx, config.Config{StoreBackend: "redis"}, quietLogger()); err == nil {
			t.Error("Expected error for unknown backend")
		}
	})
}
