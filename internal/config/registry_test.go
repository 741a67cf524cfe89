package config_test

import (
	"errors"
	"testing"

	"github.com/govorun-bot/govorun/internal/config"
	"github.com/govorun-bot/govorun/pkg/provider/stt"
	sttmock "github.com/govorun-bot/govorun/pkg/provider/stt/mock"
	"github.com/govorun-bot/govorun/pkg/provider/translate"
	trmock "github.com/govorun-bot/govorun/pkg/provider/translate/mock"
)

func TestRegistryCreateSTT(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	reg.RegisterSTT("mock", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		if entry.Model != "tiny" {
			t.Errorf("factory got entry %+v", entry)
		}
		return &sttmock.Transcriber{}, nil
	})

	p, err := reg.CreateSTT("mock", config.ProviderEntry{Model: "tiny"})
	if err != nil {
		t.Fatalf("CreateSTT: %v", err)
	}
	if p == nil {
		t.Fatal("CreateSTT returned nil provider")
	}
}

func TestRegistryCreateSTTUnregistered(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	_, err := reg.CreateSTT("nope", config.ProviderEntry{})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistryCreateTranslator(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	reg.RegisterTranslator("mock", func(cfg config.TranslateConfig) (translate.Translator, error) {
		return &trmock.Translator{}, nil
	})

	if _, err := reg.CreateTranslator(config.TranslateConfig{Name: "mock"}); err != nil {
		t.Fatalf("CreateTranslator: %v", err)
	}
	if _, err := reg.CreateTranslator(config.TranslateConfig{Name: "other"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
}
