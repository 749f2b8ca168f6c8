package providers

import (
	"slices"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockClient()
		r.RegisterLLM("test", mock)

		got, err := r.GetLLM("test")
		if err != nil {
			t.Fatalf("GetLLM() error = %v", err)
		}
		if got != mock {
			t.Error("GetLLM returned a different client")
		}
		if !r.HasLLM("test") {
			t.Error("HasLLM should be true")
		}
	})

	t.Run("missing provider", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.GetLLM("nope"); err == nil {
			t.Error("expected error")
		}
		if _, err := r.GetOCR("nope"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("unregister", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterLLM("a", NewMockClient())
		r.RegisterOCR("o", NewMockOCRProvider())
		r.UnregisterLLM("a")
		r.UnregisterOCR("o")
		if r.HasLLM("a") || r.HasOCR("o") {
			t.Error("providers should be removed")
		}
	})

	t.Run("lists are sorted", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterLLM("zeta", NewMockClient())
		r.RegisterLLM("alpha", NewMockClient())
		if got := r.ListLLM(); !slices.Equal(got, []string{"alpha", "zeta"}) {
			t.Errorf("ListLLM() = %v", got)
		}
		if len(r.LLMClients()) != 2 {
			t.Error("LLMClients should return both")
		}
	})
}

func TestNewRegistryFromConfig(t *testing.T) {
	r := NewRegistryFromConfig(RegistryConfig{
		LLMProviders: map[string]LLMProviderConfig{
			"openrouter": {Type: OpenRouterName, APIKey: "k", Enabled: true},
			"openai":     {Type: OpenAIName, APIKey: "k", Model: "gpt-4o", Enabled: true},
			"disabled":   {Type: OpenRouterName, APIKey: "k", Enabled: false},
			"no-key":     {Type: OpenAIName, Enabled: true},
			"mock":       {Type: MockClientName, Enabled: true},
			"unknown":    {Type: "carrier-pigeon", APIKey: "k", Enabled: true},
		},
		OCRProviders: map[string]OCRProviderConfig{
			"mistral": {Type: MistralOCRName, APIKey: "k", Enabled: true},
		},
	})

	if got := r.ListLLM(); !slices.Equal(got, []string{"mock", "openai", "openrouter"}) {
		t.Errorf("ListLLM() = %v", got)
	}
	if !r.HasOCR("mistral") {
		t.Error("expected mistral OCR")
	}

	client, _ := r.GetLLM("openai")
	if _, ok := client.(*OpenAIClient); !ok {
		t.Errorf("openai client type = %T", client)
	}
	client, _ = r.GetLLM("mock")
	if _, ok := client.(*MockClient); !ok {
		t.Errorf("mock client type = %T", client)
	}
}

func TestRegistry_Reload(t *testing.T) {
	orCfg := func(key, model string) RegistryConfig {
		return RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"openrouter": {Type: OpenRouterName, APIKey: key, Model: model, Enabled: true},
			},
		}
	}

	t.Run("adds new providers", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{})
		r.Reload(orCfg("k", ""))
		if !r.HasLLM("openrouter") {
			t.Error("expected openrouter after reload")
		}
	})

	t.Run("removes providers", func(t *testing.T) {
		r := NewRegistryFromConfig(orCfg("k", ""))
		r.Reload(RegistryConfig{})
		if r.HasLLM("openrouter") {
			t.Error("openrouter should be removed")
		}
	})

	t.Run("keeps unchanged clients", func(t *testing.T) {
		r := NewRegistryFromConfig(orCfg("k", "m"))
		before, _ := r.GetLLM("openrouter")
		r.Reload(orCfg("k", "m"))
		after, _ := r.GetLLM("openrouter")
		if before != after {
			t.Error("unchanged config should keep the same client")
		}
	})

	t.Run("recreates changed clients", func(t *testing.T) {
		r := NewRegistryFromConfig(orCfg("old-key", "m"))
		r.Reload(orCfg("new-key", "m"))
		client, _ := r.GetLLM("openrouter")
		if got := client.(*OpenRouterClient).apiKey; got != "new-key" {
			t.Errorf("apiKey = %q, want new-key", got)
		}
	})
}
