package llmfactory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/effective-security/mcpchat/pkg/llmfactory"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llms/anthropic"
	"github.com/effective-security/mcpchat/pkg/llms/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setFakeLLM(t *testing.T) {
	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
		return &fakeLLM{provider: cfg.Name, model: cfg.FindModel(preferredModels...)}, nil
	}
	t.Cleanup(func() {
		llmfactory.NewLLM = llmfactory.CreateLLM
	})
}

func Test_Factory(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "fakekey")
	t.Setenv("ANTHROPIC_API_KEY", "fakekey")
	t.Setenv("PERPLEXITY_TOKEN", "fakekey")
	t.Setenv("GEMINI_API_KEY", "fakekey")

	cfg, err := llmfactory.LoadConfig("testdata/llm.yaml")
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 6)
	assert.Equal(t, "fakekey", cfg.Providers[0].Token)
	assert.Equal(t, "us-west-2", cfg.Providers[4].AWS.Region)
	assert.Equal(t, 8192, cfg.Providers[2].Limits.MaxTokens)
	require.NotNil(t, cfg.Providers[2].Limits.MaxRetries)
	assert.Equal(t, 0, *cfg.Providers[2].Limits.MaxRetries)
	assert.Nil(t, cfg.Providers[0].Limits.MaxRetries)

	setFakeLLM(t)

	f := llmfactory.New(cfg)
	model, err := f.DefaultModel()
	require.NoError(t, err)
	fm := model.(*fakeLLM)
	assert.Equal(t, "gpt-4o", fm.model)
	assert.Equal(t, "OPEN_AI", fm.provider)

	tcases := []struct {
		names    []string
		model    string
		provider string
	}{
		{[]string{"gpt-4-mini"}, "gpt-4-mini", "OPEN_AI"},
		{[]string{"gpt-4-unknown", "gpt-41-mini"}, "gpt-41-mini", "AZURE"},
		{[]string{"non-existent-model"}, "gpt-4o", "OPEN_AI"},
		{[]string{"gemini-2.5-pro"}, "gemini-2.5-pro", "GOOGLEAI"},
	}
	for _, tc := range tcases {
		model, err = f.ModelByName(tc.names...)
		require.NoError(t, err)
		fm = model.(*fakeLLM)
		assert.Equal(t, tc.model, fm.model, tc.names)
		assert.Equal(t, tc.provider, fm.provider, tc.names)
	}

	types := map[string]string{
		"OPEN_AI":    "gpt-4o",
		"ANTHROPIC":  "claude-sonnet-4-20250514",
		"BEDROCK":    "anthropic.claude-3-5-sonnet-20241022-v2:0",
		"PERPLEXITY": "sonar",
		"AZURE":      "gpt-41",
		"googleai":   "gemini-2.5-flash",
	}
	for typ, expModel := range types {
		model, err = f.ModelByType(typ)
		require.NoError(t, err)
		assert.Equal(t, expModel, model.(*fakeLLM).model, typ)
	}

	_, err = f.ModelByType("UNSUPPORTED")
	assert.EqualError(t, err, "provider not found for type: UNSUPPORTED")

	_, err = llmfactory.New(&llmfactory.Config{}).DefaultModel()
	assert.EqualError(t, err, "no providers configured")

	// unknown default provider falls back to the first one
	model, err = llmfactory.New(&llmfactory.Config{
		DefaultProvider: "non-existent",
		Providers:       cfg.Providers,
	}).DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, "OPEN_AI", model.(*fakeLLM).provider)

	model, err = llmfactory.New(&llmfactory.Config{
		DefaultProvider: "GOOGLEAI",
		Providers:       cfg.Providers,
	}).DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", model.(*fakeLLM).model)
}

func Test_Load(t *testing.T) {
	f, err := llmfactory.Load("testdata/llm.yaml")
	require.NoError(t, err)
	require.NotNil(t, f)

	_, err = llmfactory.Load("testdata/non-existent.yaml")
	require.Error(t, err)

	_, err = llmfactory.LoadConfig("testdata/invalid.yaml")
	require.Error(t, err)

	cfg, err := llmfactory.LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Providers)
}

func Test_CreateLLM(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	tcases := []struct {
		apiType  string
		extra    func(cfg *llmfactory.ProviderConfig)
		provider llms.ProviderType
		expErr   string
	}{
		{apiType: "OPEN_AI", provider: llms.ProviderOpenAI},
		{apiType: "PERPLEXITY", provider: llms.ProviderOpenAI},
		{
			apiType:  "AZURE",
			provider: llms.ProviderOpenAI,
			extra: func(cfg *llmfactory.ProviderConfig) {
				cfg.OpenAI.BaseURL = "https://example.openai.azure.com"
			},
		},
		{apiType: "AZURE", expErr: "openai: base URL is required for Azure"},
		{apiType: "ANTHROPIC", provider: llms.ProviderAnthropic},
		{apiType: "GOOGLEAI", provider: llms.ProviderGoogleAI},
		{
			apiType:  "BEDROCK",
			provider: llms.ProviderBedrock,
			extra: func(cfg *llmfactory.ProviderConfig) {
				cfg.AWS = llmfactory.AWSConfig{Region: "us-west-2", AccessKeyID: "AKID", SecretAccessKey: "secret"}
			},
		},
		{apiType: "UNSUPPORTED", expErr: "unsupported provider type: UNSUPPORTED"},
	}

	for _, tc := range tcases {
		t.Run(tc.apiType, func(t *testing.T) {
			cfg := &llmfactory.ProviderConfig{
				Name:            "test-provider",
				Token:           "fakekey",
				OpenAI:          llmfactory.OpenAIConfig{APIType: tc.apiType},
				AvailableModels: []string{"model-1", "model-2"},
				DefaultModel:    "model-1",
			}
			if tc.extra != nil {
				tc.extra(cfg)
			}
			model, err := llmfactory.CreateLLM(cfg, "model-2")
			if tc.expErr != "" {
				assert.EqualError(t, err, tc.expErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.provider, model.GetProviderType())
			assert.Equal(t, "model-2", model.GetName())
		})
	}
}

func Test_CreateLLM_Limits(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	retries := 5
	cfg := &llmfactory.ProviderConfig{
		Name:         "claude",
		Token:        "fakekey",
		DefaultModel: "claude-sonnet-4-5",
		OpenAI:       llmfactory.OpenAIConfig{APIType: "anthropic"},
		Limits:       llmfactory.LimitsConfig{MaxTokens: 1000, MaxRetries: &retries, Timeout: "90s"},
	}
	model, err := llmfactory.CreateLLM(cfg)
	require.NoError(t, err)
	claude := model.(*anthropic.LLM)
	assert.Equal(t, 1000, claude.Options.MaxTokens)
	assert.Equal(t, 5, claude.Options.MaxRetries)
	assert.Equal(t, 90*time.Second, claude.Options.RequestTimeout)

	cfg.OpenAI.APIType = "open_ai"
	model, err = llmfactory.CreateLLM(cfg)
	require.NoError(t, err)
	gpt := model.(*openai.LLM)
	assert.Equal(t, 1000, gpt.Options.MaxTokens)
	assert.Equal(t, 5, gpt.Options.MaxRetries)
	assert.Equal(t, 90*time.Second, gpt.Options.RequestTimeout)

	cfg.Limits.Timeout = "soon"
	_, err = llmfactory.CreateLLM(cfg)
	assert.EqualError(t, err, `provider "claude": invalid timeout "soon"`)
}

func Test_ProviderConfigType(t *testing.T) {
	t.Parallel()

	tcases := map[string]string{
		"open_ai":  llmfactory.TypeOpenAI,
		"OPENAI":   llmfactory.TypeOpenAI,
		"azure_ad": llmfactory.TypeAzure,
		"Gemini":   llmfactory.TypeGoogleAI,
		" bedrock": llmfactory.TypeBedrock,
		"other":    "OTHER",
	}
	for apiType, exp := range tcases {
		cfg := &llmfactory.ProviderConfig{OpenAI: llmfactory.OpenAIConfig{APIType: apiType}}
		assert.Equal(t, exp, cfg.Type(), apiType)
	}
}

func Test_ProviderConfigFindModel(t *testing.T) {
	t.Parallel()

	cfg := &llmfactory.ProviderConfig{
		AvailableModels: []string{"a", "b"},
		DefaultModel:    "a",
	}
	assert.Equal(t, "b", cfg.FindModel("x", "b"))
	assert.Equal(t, "a", cfg.FindModel("x"))
	assert.Equal(t, "a", cfg.FindModel())
}

func Test_ModelCaching(t *testing.T) {
	setFakeLLM(t)

	f := llmfactory.New(&llmfactory.Config{
		Providers: []*llmfactory.ProviderConfig{
			{
				Name:            "OPEN_AI",
				OpenAI:          llmfactory.OpenAIConfig{APIType: "OPEN_AI"},
				AvailableModels: []string{"gpt-4o", "gpt-4-mini"},
				DefaultModel:    "gpt-4o",
			},
		},
	})

	model1, err := f.ModelByType("OPEN_AI")
	require.NoError(t, err)
	model2, err := f.ModelByType("OPEN_AI")
	require.NoError(t, err)
	assert.Same(t, model1, model2)

	model3, err := f.ModelByName("gpt-4-mini")
	require.NoError(t, err)
	model4, err := f.ModelByName("gpt-4-mini")
	require.NoError(t, err)
	assert.Same(t, model3, model4)
}

func Test_ConcurrentAccess(t *testing.T) {
	setFakeLLM(t)

	f := llmfactory.New(&llmfactory.Config{
		Providers: []*llmfactory.ProviderConfig{
			{
				Name:            "OPEN_AI",
				OpenAI:          llmfactory.OpenAIConfig{APIType: "OPEN_AI"},
				AvailableModels: []string{"gpt-4o", "gpt-4-mini"},
				DefaultModel:    "gpt-4o",
			},
		},
	})

	var wg sync.WaitGroup
	models := make([]llms.Model, 10)
	for i := range models {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := f.ModelByName("gpt-4-mini")
			assert.NoError(t, err)
			models[i] = m
		}(i)
	}
	wg.Wait()
	for _, m := range models[1:] {
		assert.Same(t, models[0], m)
	}
}

type fakeLLM struct {
	provider string
	model    string
}

func (f *fakeLLM) GetName() string {
	return f.model
}

func (f *fakeLLM) GetProviderType() llms.ProviderType {
	return llms.ProviderType(f.provider)
}

func (f *fakeLLM) GenerateContent(_ context.Context, _ []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	return llms.NewTextResponse("fake"), nil
}
