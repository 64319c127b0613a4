package checklogic

import (
	"context"
	"testing"
	"time"

	"github.com/exddc/domain-discovery-go/internal/models"
)

func TestCheckInvalidShortCircuits(t *testing.T) {
	c := NewChecker(50*time.Millisecond, nil)
	status := c.Check(context.Background(), "бад.com")
	if status != models.WorkerStatusInvalid {
		t.Errorf("status = %v, want %v", status, models.WorkerStatusInvalid)
	}
}
