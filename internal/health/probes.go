package health

import (
	"context"
	"fmt"
	"os"

	"github.com/SungwookYoon/searchdeposit6-web/internal/backend"
)

// StatisticsSource is the project API endpoint used as a liveness signal.
type StatisticsSource interface {
	Statistics(ctx context.Context) (*backend.Statistics, error)
}

// APIProbe checks the project API through its cheapest endpoint.
func APIProbe(src StatisticsSource) Probe {
	return func(ctx context.Context) error {
		if _, err := src.Statistics(ctx); err != nil {
			return fmt.Errorf("statistics endpoint: %w", err)
		}
		return nil
	}
}

// WritableDirProbe checks that exports can be saved into dir.
func WritableDirProbe(dir string) Probe {
	return func(context.Context) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		f, err := os.CreateTemp(dir, ".healthcheck-*")
		if err != nil {
			return fmt.Errorf("writing to %s: %w", dir, err)
		}
		name := f.Name()
		f.Close()
		return os.Remove(name)
	}
}
