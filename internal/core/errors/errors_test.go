package errors

import (
	"errors"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeUnsupportedSyntax, "async generator")
		if err.Error() != "[UNSUPPORTED_SYNTAX] async generator" {
			t.Errorf("expected [UNSUPPORTED_SYNTAX] async generator, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("unexpected token")
		err := Wrap(original, CodeParse, "parse failed")
		expected := "[PARSE_ERROR] parse failed: unexpected token"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeNameCollision, "no free name for _ref")
		if !IsCode(err, CodeNameCollision) {
			t.Error("expected IsCode to return true for CodeNameCollision")
		}
		if IsCode(err, CodeParse) {
			t.Error("expected IsCode to return false for CodeParse")
		}
	})

	t.Run("AddContextKeepsCode", func(t *testing.T) {
		err := AddContext(New(CodeParse, "syntax error"), CtxPath, "a.js")
		if !IsCode(err, CodeParse) {
			t.Error("expected context to keep the original code")
		}
		if err.Error() != "[PARSE_ERROR] syntax error map[path:a.js]" {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("AddContextForeign", func(t *testing.T) {
		err := AddContext(errors.New("disk full"), CtxOperation, "write")
		code, ok := CodeOf(err)
		if !ok || code != CodeInternal {
			t.Errorf("expected foreign error to be wrapped as internal, got %q", code)
		}
	})
}
