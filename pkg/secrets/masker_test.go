package secrets

import (
	"sync"
	"testing"
)

func TestMasker_Mask(t *testing.T) {
	tests := []struct {
		name    string
		secrets []string
		input   string
		want    string
	}{
		{
			name:    "single secret",
			secrets: []string{"gsk_live_123"},
			input:   "calling groq with gsk_live_123",
			want:    "calling groq with ***",
		},
		{
			name:    "multiple occurrences",
			secrets: []string{"n8n-key"},
			input:   "n8n-key appears twice: n8n-key",
			want:    "*** appears twice: ***",
		},
		{
			name:    "overlapping secrets prefer the longer",
			secrets: []string{"abc", "abcdef"},
			input:   "value=abcdef",
			want:    "value=***",
		},
		{
			name:    "empty secret ignored",
			secrets: []string{""},
			input:   "nothing to hide",
			want:    "nothing to hide",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMasker()
			for _, s := range tt.secrets {
				m.AddSecret(s)
			}
			if got := m.Mask(tt.input); got != tt.want {
				t.Errorf("Mask() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMasker_AddSecretsFromEnv(t *testing.T) {
	m := NewMasker()
	m.AddSecretsFromEnv(map[string]string{
		"GROQ_API_KEY":         "gsk_abc",
		"N8N_API_KEY":          "n8n_def",
		"FLOWSMITH_JWT_SECRET": "jwt_ghi",
		"admin_pass":           "pw",
		"HOME":                 "/home/user",
		"API_TOKEN":            "",
	})

	if m.Len() != 4 {
		t.Errorf("Len() = %d, want 4", m.Len())
	}
	got := m.Mask("gsk_abc n8n_def jwt_ghi pw /home/user")
	if got != "*** *** *** *** /home/user" {
		t.Errorf("Mask() = %q", got)
	}
}

func TestMasker_MaskJSON(t *testing.T) {
	m := NewMasker()
	m.AddSecret("topsecret")

	got := m.MaskJSON(`{"key":"topsecret","n":1,"list":["a topsecret"]}`)
	want := `{"key":"***","list":["a ***"],"n":1}`
	if got != want {
		t.Errorf("MaskJSON() = %q, want %q", got, want)
	}

	if got := m.MaskJSON("not json topsecret"); got != "not json ***" {
		t.Errorf("MaskJSON() fallback = %q", got)
	}
}

func TestMasker_Concurrent(t *testing.T) {
	m := NewMasker()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.AddSecret("value")
		}()
		go func() {
			defer wg.Done()
			_ = m.Mask("some value here")
		}()
	}
	wg.Wait()

	if got := m.Mask("value"); got != "***" {
		t.Errorf("Mask() = %q", got)
	}
}
