package permission

import "testing"

func TestAllows(t *testing.T) {
	tests := []struct {
		name     string
		granted  []string
		required string
		want     bool
	}{
		{"exact match", []string{"files.read"}, "files.read", true},
		{"no match", []string{"files.read"}, "files.upload", false},
		{"global wildcard", []string{"*"}, "anything.anything", true},
		{"category wildcard", []string{"files.*"}, "files.upload", true},
		{"category wildcard other category", []string{"files.*"}, "buckets.read", false},
		{"wildcard needs dot boundary", []string{"files.*"}, "filesystem.read", false},
		{"empty set", nil, "files.read", false},
		{"empty required", []string{"files.read"}, "", false},
		{"mixed set", []string{"buckets.read", "files.*", "api-keys.create"}, "files.delete", true},
		{"wildcard among others", []string{"buckets.read", "*"}, "settings.update", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allows(tt.granted, tt.required); got != tt.want {
				t.Errorf("Allows(%v, %q) = %v, want %v", tt.granted, tt.required, got, tt.want)
			}
		})
	}
}
