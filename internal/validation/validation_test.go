package validation

import (
	"strings"
	"testing"
)

func TestValidateBountyID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid simple", "wildlife-photos", false},
		{"valid short", "ab", false},
		{"valid with digits", "bounty-2026", false},
		{"too short", "a", true},
		{"too long", strings.Repeat("a", 65), true},
		{"uppercase", "Wildlife", true},
		{"starts with digit", "1bounty", true},
		{"starts with hyphen", "-bounty", true},
		{"ends with hyphen", "bounty-", true},
		{"consecutive hyphens", "bounty--x", true},
		{"underscore", "bounty_x", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBountyID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBountyID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"valid lowercase", "0x1234567890abcdef1234567890abcdef12345678", false},
		{"valid mixed case", "0x1234567890ABCDEF1234567890abcdef12345678", false},
		{"missing prefix", "1234567890abcdef1234567890abcdef1234567800", true},
		{"too short", "0x1234", true},
		{"too long", "0x1234567890abcdef1234567890abcdef123456789", true},
		{"non-hex", "0x1234567890abcdef1234567890abcdef1234567g", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}

func TestValidateContentHash(t *testing.T) {
	valid := "0x" + strings.Repeat("ab", 32)
	tests := []struct {
		name    string
		hash    string
		wantErr bool
	}{
		{"valid", valid, false},
		{"missing prefix", strings.Repeat("ab", 33), true},
		{"too short", "0xabcd", true},
		{"non-hex", "0x" + strings.Repeat("zz", 32), true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContentHash(tt.hash)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateContentHash(%q) error = %v, wantErr %v", tt.hash, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURI(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		wantErr bool
	}{
		{"https", "https://example.com/photo.png", false},
		{"http", "http://example.com/a", false},
		{"ipfs", "ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", false},
		{"arweave", "ar://abc123", false},
		{"ftp rejected", "ftp://example.com/a", true},
		{"relative rejected", "just/a/path", true},
		{"empty", "", true},
		{"too long", "https://example.com/" + strings.Repeat("a", 2048), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
		})
	}
}

func TestValidateMIMEType(t *testing.T) {
	tests := []struct {
		name    string
		mt      string
		wantErr bool
	}{
		{"image", "image/png", false},
		{"video", "video/mp4", false},
		{"with plus", "image/svg+xml", false},
		{"no slash", "imagepng", true},
		{"uppercase", "Image/PNG", true},
		{"empty", "", true},
		{"trailing slash", "image/", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMIMEType(tt.mt)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMIMEType(%q) error = %v, wantErr %v", tt.mt, err, tt.wantErr)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{"whole", "12", 12_000_000, false},
		{"two decimals", "12.50", 12_500_000, false},
		{"full precision", "0.000001", 1, false},
		{"leading dot", ".5", 500_000, false},
		{"large", "1000000", 1_000_000_000_000, false},
		{"zero rejected", "0", 0, true},
		{"zero decimal rejected", "0.000000", 0, true},
		{"negative rejected", "-1", 0, true},
		{"plus sign rejected", "+1", 0, true},
		{"too many decimals", "1.0000001", 0, true},
		{"not a number", "abc", 0, true},
		{"empty", "", 0, true},
		{"scientific rejected", "1e6", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAmount(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		units int64
		want  string
	}{
		{12_500_000, "12.500000"},
		{1, "0.000001"},
		{0, "0.000000"},
		{1_000_000, "1.000000"},
		{-2_500_000, "-2.500000"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.units); got != tt.want {
			t.Errorf("FormatAmount(%d) = %v, want %v", tt.units, got, tt.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, s := range []string{"1.000000", "12.500000", "0.000001", "999999.999999"} {
		units, err := ParseAmount(s)
		if err != nil {
			t.Fatalf("ParseAmount(%q) error = %v", s, err)
		}
		if got := FormatAmount(units); got != s {
			t.Errorf("round trip %q -> %d -> %q", s, units, got)
		}
	}
}
