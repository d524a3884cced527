package privacy

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMaskPIIString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "email redacted",
			input: "DM business@example.com for collabs",
			want:  "DM [email_redacted] for collabs",
		},
		{
			name:  "phone redacted",
			input: "WhatsApp +55 11 98765-4321",
			want:  "WhatsApp [phone_redacted]",
		},
		{
			name:  "cpf masked",
			input: "cpf 123.456.789-09",
			want:  "cpf ***.***.***-**",
		},
		{
			name:  "plain bio untouched",
			input: "travel & coffee lover based in SP",
			want:  "travel & coffee lover based in SP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaskPIIString(tt.input)
			if got != tt.want {
				t.Errorf("MaskPIIString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMaskPIIJSON(t *testing.T) {
	raw := json.RawMessage(`{"bio":"reach me at me@example.com","followers":100}`)
	masked := MaskPIIJSON(raw)

	if strings.Contains(string(masked), "me@example.com") {
		t.Fatalf("masked JSON still contains email: %s", masked)
	}

	var decoded map[string]any
	if err := json.Unmarshal(masked, &decoded); err != nil {
		t.Fatalf("masked JSON is not valid: %v", err)
	}
	if decoded["followers"].(float64) != 100 {
		t.Errorf("non-string field was altered: %v", decoded["followers"])
	}
}

func TestMaskPIIJSONEmptyPayload(t *testing.T) {
	got := MaskPIIJSON(json.RawMessage(""))
	if len(got) != 0 {
		t.Errorf("expected empty output for empty input, got %q", got)
	}
}

func TestMaskCardNumber(t *testing.T) {
	masked := MaskPIIString("card 4111 1111 1111 1111")
	if !strings.HasSuffix(masked, "1111") {
		t.Errorf("expected last 4 digits preserved, got %q", masked)
	}
	if strings.Contains(masked, "4111 1111 1111") {
		t.Errorf("expected leading digits masked, got %q", masked)
	}
}
