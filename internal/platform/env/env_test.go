package env

import (
	"testing"
	"time"
)

func TestLookups(t *testing.T) {
	t.Setenv("TFB_TEST_STRING", "value")
	t.Setenv("TFB_TEST_BLANK", "  ")
	t.Setenv("TFB_TEST_LIST", "a, b,,c ")
	t.Setenv("TFB_TEST_DURATION", "90s")
	t.Setenv("TFB_TEST_BOOL", "true")
	t.Setenv("TFB_TEST_INT", "7")

	if got := String("TFB_TEST_STRING", "def"); got != "value" {
		t.Fatalf("String() got %q", got)
	}
	if got := FirstString("def", "TFB_TEST_MISSING", "TFB_TEST_BLANK", "TFB_TEST_STRING"); got != "value" {
		t.Fatalf("FirstString() got %q", got)
	}
	if got := FirstString("def", "TFB_TEST_MISSING"); got != "def" {
		t.Fatalf("FirstString() default got %q", got)
	}
	if got := List("TFB_TEST_LIST", nil); len(got) != 3 || got[2] != "c" {
		t.Fatalf("List() got %v", got)
	}
	if got, err := Duration("TFB_TEST_DURATION", 0); err != nil || got != 90*time.Second {
		t.Fatalf("Duration() got %s err=%v", got, err)
	}
	if got, err := Bool("TFB_TEST_BOOL", false); err != nil || !got {
		t.Fatalf("Bool() got %v err=%v", got, err)
	}
	if got, err := Int("TFB_TEST_INT", 0); err != nil || got != 7 {
		t.Fatalf("Int() got %d err=%v", got, err)
	}
	if got, err := Int("TFB_TEST_BLANK", 3); err != nil || got != 3 {
		t.Fatalf("Int() blank got %d err=%v", got, err)
	}
}

func TestInvalidValues(t *testing.T) {
	t.Setenv("TFB_TEST_BAD", "nope")
	if _, err := Duration("TFB_TEST_BAD", 0); err == nil {
		t.Fatalf("Duration() expected error")
	}
	if _, err := Bool("TFB_TEST_BAD", false); err == nil {
		t.Fatalf("Bool() expected error")
	}
	if _, err := Int("TFB_TEST_BAD", 0); err == nil {
		t.Fatalf("Int() expected error")
	}
}
