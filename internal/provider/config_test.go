package provider

import "testing"

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "ollama needs no credentials",
			cfg:  Config{Backend: BackendOllama, Model: "llama3"},
		},
		{
			name:    "openai without api key",
			cfg:     Config{Backend: BackendOpenAI, Model: "gpt-4o"},
			wantErr: true,
		},
		{
			name: "openai with api key",
			cfg:  Config{Backend: BackendOpenAI, Model: "gpt-4o", APIKey: "sk-test"},
		},
		{
			name:    "azure missing deployment",
			cfg:     Config{Backend: BackendAzure, APIKey: "k", BaseURL: "https://res.openai.azure.com"},
			wantErr: true,
		},
		{
			name: "azure complete",
			cfg: Config{
				Backend:         BackendAzure,
				APIKey:          "k",
				BaseURL:         "https://res.openai.azure.com",
				AzureDeployment: "gpt-4.1",
			},
		},
		{
			name:    "gemini without api key",
			cfg:     Config{Backend: BackendGemini, Model: "gemini-1.5-pro"},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			cfg:     Config{Backend: Backend("bedrock")},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
