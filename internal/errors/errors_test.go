package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "component configuration",
			code:    "E100",
			wantMsg: "Invalid component configuration",
			wantCat: CategoryValidation,
		},
		{
			name:    "connection closed",
			code:    "E110",
			wantMsg: "Connection closed",
			wantCat: CategoryStorage,
		},
		{
			name:    "config not found",
			code:    "E141",
			wantMsg: "Configuration file not found",
			wantCat: CategoryConfig,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "store %q not found", "sessions")
	if err.Message != `store "sessions" not found` {
		t.Errorf("Message = %q, want %q", err.Message, `store "sessions" not found`)
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q, want %q", err.Category, CategoryCLI)
	}
}

func TestError_Error(t *testing.T) {
	err := New("E110")
	if got, want := err.Error(), "E110: Connection closed"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err2 := &Error{Message: "test error"}
	if err2.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", err2.Error(), "test error")
	}

	err3 := New("E100").WithDetail(`"style" must be a map`)
	if got, want := err3.Error(), `E100: Invalid component configuration: "style" must be a map`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorIsByCode(t *testing.T) {
	err := fmt.Errorf("add record: %w", New("E110"))

	if !stderrors.Is(err, New("E110")) {
		t.Error("errors.Is should match on code through wrapping")
	}
	if stderrors.Is(err, New("E111")) {
		t.Error("errors.Is should not match a different code")
	}
	if stderrors.Is(err, &Error{Message: "Connection closed"}) {
		t.Error("errors.Is should not match a target without a code")
	}
	if !HasCode(err, "E110") {
		t.Error("HasCode should find the wrapped code")
	}
	if HasCode(stderrors.New("plain"), "E110") {
		t.Error("HasCode should be false for plain errors")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := New("E113").Wrap(cause)

	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause should be reachable with errors.Is")
	}
	if !strings.HasSuffix(err.Error(), "disk full") {
		t.Errorf("Error() = %q, want cause suffix", err.Error())
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E120") != nil {
		t.Error("FromError(nil) should be nil")
	}

	original := New("E121")
	if FromError(original, "E120") != original {
		t.Error("FromError should return existing *Error unchanged")
	}

	wrapped := FromError(stderrors.New("boom"), "E120")
	if wrapped.Code != "E120" || wrapped.Wrapped == nil {
		t.Errorf("FromError = %+v, want code E120 with cause", wrapped)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E100").
		WithDetail("bad style").
		WithSuggestion("Pass el.Style(...)")
	out := err.Format()

	for _, want := range []string{
		"ERROR E100: Invalid component configuration",
		"Hint: Pass el.Style(...)",
		"Learn more: https://chatui.dev/docs/errors/E100",
		"bad style",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatCompactAndJSON(t *testing.T) {
	err := New("E112").WithDetail("store name is empty")

	if got, want := err.FormatCompact(), "E112: Invalid schema definition (store name is empty)"; got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}

	js := err.FormatJSON()
	for _, want := range []string{`"code":"E112"`, `"category":"storage"`, `"detail":"store name is empty"`} {
		if !strings.Contains(js, want) {
			t.Errorf("FormatJSON() missing %s in %s", want, js)
		}
	}
}

func TestPrintError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var b strings.Builder
	PrintError(&b, fmt.Errorf("wrapped: %w", New("E141")))
	if !strings.Contains(b.String(), "ERROR E141") {
		t.Errorf("PrintError output = %q", b.String())
	}

	b.Reset()
	PrintError(&b, stderrors.New("plain failure"))
	if !strings.Contains(b.String(), "plain failure") {
		t.Errorf("PrintError output = %q", b.String())
	}
}

func TestCodesSorted(t *testing.T) {
	codes := Codes()
	if len(codes) == 0 {
		t.Fatal("expected registered codes")
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Fatalf("codes not sorted: %v", codes)
		}
	}
	if _, ok := Lookup("E110"); !ok {
		t.Error("Lookup(E110) should succeed")
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 40), 20)
	for _, line := range lines {
		if len(line) > 20 {
			t.Errorf("line %q exceeds width", line)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") should be nil")
	}
}
