package azureopenai

import "testing"

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		wantErr  bool
	}{
		{name: "empty disables backend", endpoint: ""},
		{name: "https resource", endpoint: "https://my-res.openai.azure.com"},
		{name: "trailing slash", endpoint: "https://my-res.openai.azure.com/"},
		{name: "reject http", endpoint: "http://my-res.openai.azure.com", wantErr: true},
		{name: "reject relative", endpoint: "my-res.openai.azure.com", wantErr: true},
		{name: "reject query", endpoint: "https://my-res.openai.azure.com?api-version=1", wantErr: true},
		{name: "reject userinfo", endpoint: "https://u:p@my-res.openai.azure.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEndpoint(tt.endpoint)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
