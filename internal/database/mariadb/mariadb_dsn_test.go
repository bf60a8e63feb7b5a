package mariadb

import (
	"strings"
	"testing"
)

func TestNewPool_RejectsBadDSN(t *testing.T) {
	if _, err := NewPool(""); err == nil || !strings.Contains(err.Error(), "DSN is required") {
		t.Errorf("expected missing DSN error, got %v", err)
	}
	if _, err := NewPool("user:pass@tcp(localhost:3306"); err == nil || !strings.Contains(err.Error(), "invalid MariaDB DSN") {
		t.Errorf("expected invalid DSN error, got %v", err)
	}
}
