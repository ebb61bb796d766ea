package validation

import "testing"

func TestValidEmail(t *testing.T) {
	valids := []string{
		"ana@example.com",
		"a.b+tag@sub.example.co",
		"x@a-b.io",
	}
	for _, v := range valids {
		if !ValidEmail(v) {
			t.Fatalf("expected valid: %q", v)
		}
	}
	invalids := []string{
		"",
		"ana",
		"ana@",
		"@example.com",
		"ana@localhost",
		"Ana <ana@example.com>",
		"ana@exa mple.com",
		"ana@-example.com",
	}
	for _, v := range invalids {
		if ValidEmail(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ana@Example.COM "); got != "ana@example.com" {
		t.Fatalf("got %q", got)
	}
}

func TestValidPhone(t *testing.T) {
	for _, v := range []string{"+15555550123", "555 555 0123", "(11) 4444-5555"} {
		if !ValidPhone(v) {
			t.Fatalf("expected valid: %q", v)
		}
	}
	for _, v := range []string{"", "12345", "call me", "+1-555-abc-0123"} {
		if ValidPhone(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}

func TestValidName(t *testing.T) {
	for _, v := range []string{"company_name", "is_admin", "theme.color", "a-b"} {
		if !ValidName(v) {
			t.Fatalf("expected valid: %q", v)
		}
	}
	for _, v := range []string{"", "bad name", "semi;colon", string(make([]byte, 65))} {
		if ValidName(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}
