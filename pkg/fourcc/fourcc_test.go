package fourcc

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"RIFF", false},
		{"fmt ", false},
		{"dev#", false},
		{"abc", true},
		{"abcde", true},
		{"ab\x00c", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := New(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && c.String() != tt.in {
				t.Errorf("String() = %q, want %q", c.String(), tt.in)
			}
		})
	}
}

func TestUint32IsBigEndian(t *testing.T) {
	if got := Must("dev#").Uint32(); got != 0x64657623 {
		t.Errorf("Uint32() = %#x, want 0x64657623", got)
	}
	if got := Must("glob").Uint32(); got != 0x676c6f62 {
		t.Errorf("Uint32() = %#x, want 0x676c6f62", got)
	}
	if FromUint32(0x6c6e616d) != Must("lnam") {
		t.Error("FromUint32 did not invert Uint32")
	}
}

func TestStringNonPrintable(t *testing.T) {
	c := FromUint32(0xfffffff6)
	if c.Printable() {
		t.Fatal("expected non-printable code")
	}
	if got := c.String(); got != "0xfffffff6" {
		t.Errorf("String() = %q", got)
	}
}

func TestMustPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Must("toolong")
}
