package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type walletView struct {
	State       string    `json:"state"`
	Identity    string    `json:"identity,omitempty"`
	IsConnected bool      `json:"is_connected"`
	Version     uint64    `json:"version" table:"wide"`
	Secret      string    `json:"-"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON, false).(*JSONFormatter); !ok {
		t.Error("json: expected JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML, false).(*YAMLFormatter); !ok {
		t.Error("yaml: expected YAMLFormatter")
	}
	tf, ok := NewFormatter(FormatTable, true).(*TableFormatter)
	if !ok || !tf.Wide {
		t.Error("table: expected wide TableFormatter")
	}
	if _, ok := NewFormatter("unknown", false).(*TableFormatter); !ok {
		t.Error("unknown: expected TableFormatter fallback")
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	err := (&JSONFormatter{}).Format(&buf, walletView{State: "connected", Identity: "9xQe", IsConnected: true})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"state": "connected"`, `"identity": "9xQe"`, `"is_connected": true`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Secret") {
		t.Error("json:\"-\" field should be omitted")
	}
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	err := (&YAMLFormatter{}).Format(&buf, map[string]any{
		"state":    "authenticated",
		"accounts": []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"state: authenticated", "accounts:", "  - a"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestYAMLFormatter_UsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLFormatter{}).Format(&buf, walletView{State: "connecting"}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "is_connected: false") {
		t.Errorf("expected json key names, got:\n%s", out)
	}
	if strings.Contains(out, "identity") {
		t.Errorf("omitempty field should be omitted, got:\n%s", out)
	}
}
