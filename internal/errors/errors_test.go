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
			name:    "config error",
			code:    "E101",
			wantMsg: "Config file not found",
			wantCat: CategoryConfig,
		},
		{
			name:    "mutation error",
			code:    "E302",
			wantMsg: "Change rolled back",
			wantCat: CategoryMutation,
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

func TestAppError_Error(t *testing.T) {
	err := New("E201")
	if got, want := err.Error(), "E201: Backend request failed"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := New("E201").Wrap(stderrors.New("connection refused"))
	if got, want := wrapped.Error(), "E201: Backend request failed: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	plain := &AppError{Message: "plain"}
	if plain.Error() != "plain" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "plain")
	}
}

func TestUnwrapAndCode(t *testing.T) {
	cause := stderrors.New("boom")
	err := fmt.Errorf("saving: %w", New("E401").Wrap(cause))

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	var ae *AppError
	if !stderrors.As(err, &ae) {
		t.Fatal("errors.As should find the AppError")
	}
	if Code(err) != "E401" {
		t.Errorf("Code() = %q, want E401", Code(err))
	}
	if Code(cause) != "" {
		t.Errorf("Code() of plain error = %q, want empty", Code(cause))
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E201") != nil {
		t.Error("FromError(nil) should be nil")
	}

	orig := New("E104")
	if FromError(orig, "E201") != orig {
		t.Error("FromError should return existing AppError unchanged")
	}

	got := FromError(stderrors.New("x"), "E201")
	if got.Code != "E201" || got.Wrapped == nil {
		t.Errorf("FromError = %+v", got)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	out := New("E101").
		WithDetail("No gigmarket.json found in /tmp").
		WithSuggestion("Run 'gigmarket config init'").
		Format()

	for _, want := range []string{"ERROR E101: Config file not found", "No gigmarket.json found", "Hint: Run 'gigmarket config init'"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
}

func TestRegistry(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("registry is empty")
	}
	for _, code := range codes {
		tmpl, ok := GetTemplate(code)
		if !ok || tmpl.Message == "" {
			t.Errorf("code %s has no message", code)
		}
	}

	Register("E999", ErrorTemplate{Category: CategoryCLI, Message: "custom"})
	if New("E999").Message != "custom" {
		t.Error("Register did not add template")
	}
	delete(registry, "E999")
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four", 10)
	if len(lines) != 2 || lines[0] != "one two" || lines[1] != "three four" {
		t.Errorf("wrapText = %q", lines)
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText of empty string should be nil")
	}
}
