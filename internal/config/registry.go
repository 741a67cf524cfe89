package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/govorun-bot/govorun/pkg/provider/stt"
	"github.com/govorun-bot/govorun/pkg/provider/translate"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider kind. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	stt       map[string]func(ProviderEntry) (stt.Transcriber, error)
	translate map[string]func(TranslateConfig) (translate.Translator, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		stt:       make(map[string]func(ProviderEntry) (stt.Transcriber, error)),
		translate: make(map[string]func(TranslateConfig) (translate.Translator, error)),
	}
}

// RegisterSTT registers a recognition provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Transcriber, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterTranslator registers a translation provider factory under name.
func (r *Registry) RegisterTranslator(name string, factory func(TranslateConfig) (translate.Translator, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translate[name] = factory
}

// CreateSTT instantiates a recognition provider using the factory registered
// under name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateSTT(name string, entry ProviderEntry) (stt.Transcriber, error) {
	r.mu.RLock()
	factory, ok := r.stt[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, name)
	}
	return factory(entry)
}

// CreateTranslator instantiates a translation provider using the factory
// registered under cfg.Name.
func (r *Registry) CreateTranslator(cfg TranslateConfig) (translate.Translator, error) {
	r.mu.RLock()
	factory, ok := r.translate[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: translate/%q", ErrProviderNotRegistered, cfg.Name)
	}
	return factory(cfg)
}
