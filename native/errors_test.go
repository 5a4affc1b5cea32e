package native

import (
	"errors"
	"strings"
	"testing"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		code Code
		want error
	}{
		{"ok", CodeOK, nil},
		{"unsupported", CodeUnsupported, ErrUnsupported},
		{"invalid argument", CodeInvalidArgument, ErrInvalidArgument},
		{"not attached", CodeNotAttached, ErrNotAttached},
		{"timeout", CodeTimeout, ErrTimeout},
		{"permission", CodePermission, ErrPermissionDenied},
		{"no resources", CodeNoResources, ErrResourceExhausted},
		{"busy", CodeBusy, ErrAlreadyOpen},
		{"duplicate", CodeDuplicate, ErrAlreadyOpen},
		{"unexpected", CodeUnexpected, ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Translate(tt.code)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Translate(%d) = %v, want nil", tt.code, err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Translate(%d) = %v, want %v", tt.code, err, tt.want)
			}
		})
	}
}

func TestTranslateUnknownCodeCarriesValue(t *testing.T) {
	err := Translate(Code(217))
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("Translate(217) = %v, want ErrInternal", err)
	}
	if !strings.Contains(err.Error(), "217") {
		t.Errorf("Translate(217) message %q does not carry the raw code", err.Error())
	}
}

func TestTimeoutDistinctFromNotAttached(t *testing.T) {
	// Retry logic branches on this distinction; the two must never alias.
	if errors.Is(Translate(CodeTimeout), ErrNotAttached) {
		t.Error("CodeTimeout translates to ErrNotAttached")
	}
	if errors.Is(Translate(CodeNotAttached), ErrTimeout) {
		t.Error("CodeNotAttached translates to ErrTimeout")
	}
}
