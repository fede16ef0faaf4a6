package config

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseFlag(t *testing.T) {
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{"0", false, false},
		{"1", true, false},
		{"", false, true},
		{"true", false, true},
		{"yes", false, true},
		{"2", false, true},
		{" 1", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFlag(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFlag(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFlag(%q) = %v, expected %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFlag_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    Flag
		wantErr bool
	}{
		{"quoted one", "v: '1'", true, false},
		{"quoted zero", "v: '0'", false, false},
		{"bare one", "v: 1", true, false},
		{"bare zero", "v: 0", false, false},
		{"bool true", "v: true", true, false},
		{"bool false", "v: false", false, false},
		{"word", "v: on", false, true},
		{"sequence", "v: [1]", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				V Flag `yaml:"v"`
			}
			err := yaml.Unmarshal([]byte(tt.doc), &out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%q) error = %v, wantErr %v", tt.doc, err, tt.wantErr)
			}
			if !tt.wantErr && out.V != tt.want {
				t.Errorf("Unmarshal(%q) = %v, expected %v", tt.doc, out.V, tt.want)
			}
		})
	}
}

func TestFlag_MarshalYAML(t *testing.T) {
	data, err := yaml.Marshal(struct {
		On  Flag `yaml:"on_flag"`
		Off Flag `yaml:"off_flag"`
	}{On: true})
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.Contains(got, "on_flag: true") || !strings.Contains(got, "off_flag: false") {
		t.Errorf("Marshal() = %q, expected plain booleans", got)
	}
}

func TestFlag_String(t *testing.T) {
	if Flag(true).String() != "1" || Flag(false).String() != "0" {
		t.Errorf("String() = %q/%q, expected 1/0", Flag(true).String(), Flag(false).String())
	}
}
