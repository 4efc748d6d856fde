package distributor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/sysinfo/internal/models"
	"github.com/Guliveer/vitalis/sysinfo/internal/snapshot"
)

// Query performs exactly one on-demand sample and returns the built
// snapshot. It is independent of the sampler's cadence; the limiter only
// paces how often it may hit the OS.
func (d *Distributor) Query(ctx context.Context) (models.SystemSnapshot, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return models.SystemSnapshot{}, fmt.Errorf("waiting for query slot: %w", err)
	}

	raw, err := d.source.Sample(ctx)
	if err != nil {
		d.logger.Warn("Pull query failed", zap.Error(err))
		return models.SystemSnapshot{}, fmt.Errorf("query system info: %w", err)
	}
	return snapshot.Build(raw), nil
}
