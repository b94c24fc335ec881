package diag

import (
	"fmt"
	"strings"
	"testing"
)

func TestKindFatal(t *testing.T) {
	tests := []struct {
		kind  Kind
		fatal bool
	}{
		{Unsupported, false},
		{ContextViolation, false},
		{InvariantViolation, true},
		{NameCollision, true},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.Fatal(); got != tt.fatal {
				t.Errorf("Fatal() = %v, want %v", got, tt.fatal)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := Unsupportedf("type %s", "_Complex double")
	if !strings.Contains(err.Error(), "unsupported: type _Complex double") {
		t.Errorf("unexpected message %q", err.Error())
	}

	err = At(err, &Loc{File: "a.c", Line: 3, Column: 7})
	if !strings.HasPrefix(err.Error(), "a.c:3:7: ") {
		t.Errorf("expected location prefix, got %q", err.Error())
	}

	// A second location does not overwrite the first
	err = At(err, &Loc{File: "b.c", Line: 1, Column: 1})
	if !strings.HasPrefix(err.Error(), "a.c:3:7: ") {
		t.Errorf("location was overwritten: %q", err.Error())
	}
}

func TestKindOfThroughWrapping(t *testing.T) {
	inner := ContextViolationf("wrapping add in const expression")
	outer := fmt.Errorf("translating x: %w", inner)

	kind, ok := KindOf(outer)
	if !ok || kind != ContextViolation {
		t.Errorf("KindOf = %v, %v; want ContextViolation, true", kind, ok)
	}
	if IsFatal(outer) {
		t.Error("context violations are recoverable")
	}
	if !Is(outer, ContextViolation) {
		t.Error("Is(ContextViolation) = false")
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(nil) {
		t.Error("nil error is not fatal")
	}
	if !IsFatal(Invariantf("undeclared decl %d", 4)) {
		t.Error("invariant violations are fatal")
	}
	if !IsFatal(fmt.Errorf("plain")) {
		t.Error("unclassified errors are fatal")
	}
	wrapped := Wrap(NameCollision, fmt.Errorf("key 3"), "name already assigned")
	if !IsFatal(wrapped) {
		t.Error("name collisions are fatal")
	}
	if !strings.Contains(wrapped.Error(), "key 3") {
		t.Errorf("cause missing from %q", wrapped.Error())
	}
}
