package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeLayerNotFound, "no such layer: %s", "water")

	if err.Code != ErrCodeLayerNotFound {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeLayerNotFound)
	}

	expected := "LAYER_NOT_FOUND: no such layer: water"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeNetwork, cause, "failed to fetch")

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{"matching code", New(ErrCodeInvalidStyle, "bad"), ErrCodeInvalidStyle, true},
		{"non-matching code", New(ErrCodeInvalidStyle, "bad"), ErrCodeNetwork, false},
		{"outer code", Wrap(ErrCodeResourceLoad, New(ErrCodeNetwork, "inner"), "outer"), ErrCodeResourceLoad, true},
		{"inner code", Wrap(ErrCodeResourceLoad, New(ErrCodeNetwork, "inner"), "outer"), ErrCodeNetwork, true},
		{"plain error", errors.New("plain"), ErrCodeInvalidInput, false},
		{"nil", nil, ErrCodeInvalidInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(New(ErrCodeSourceNotFound, "x")) {
		t.Error("SOURCE_NOT_FOUND should be in the NotFound family")
	}
	if IsNotFound(New(ErrCodeInvalidStyle, "x")) {
		t.Error("INVALID_STYLE should not be in the NotFound family")
	}
}

func TestResourceLoad(t *testing.T) {
	cause := errors.New("timeout")
	err := ResourceLoad(KindTile, "http://x/0/0/0.pbf", 0, cause)

	if !Is(err, ErrCodeResourceLoad) {
		t.Fatal("expected RESOURCE_LOAD code")
	}
	re, ok := AsResourceError(err)
	if !ok {
		t.Fatal("AsResourceError() = false")
	}
	if re.URL != "http://x/0/0/0.pbf" || re.Kind != KindTile {
		t.Errorf("unexpected resource error: %+v", re)
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through the chain")
	}

	withStatus := ResourceLoad(KindSprite, "http://x/sprite.png", 404, nil)
	re, _ = AsResourceError(withStatus)
	if re.Status != 404 {
		t.Errorf("Status = %d, want 404", re.Status)
	}
	if re.Error() != "sprite http://x/sprite.png: status 404" {
		t.Errorf("Error() = %q", re.Error())
	}
}

func TestParse(t *testing.T) {
	err := Parse(12, "unexpected end of JSON input")
	if !Is(err, ErrCodeInvalidStyle) {
		t.Fatal("expected INVALID_STYLE code")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatal("expected *ParseError in chain")
	}
	if pe.Offset != 12 {
		t.Errorf("Offset = %d, want 12", pe.Offset)
	}
	if UserMessage(err) != "error parsing style JSON at 12: unexpected end of JSON input" {
		t.Errorf("UserMessage() = %q", UserMessage(err))
	}

	structural := Parse(-1, "missing layers")
	if UserMessage(structural) != "invalid style: missing layers" {
		t.Errorf("UserMessage() = %q", UserMessage(structural))
	}
}

func TestGetCode(t *testing.T) {
	if GetCode(New(ErrCodeDecode, "x")) != ErrCodeDecode {
		t.Error("GetCode() should return the code")
	}
	if GetCode(errors.New("plain")) != "" {
		t.Error("GetCode() should return empty for plain errors")
	}
}
