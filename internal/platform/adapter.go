// Package platform fronts a native health store adapter: capability and
// permission gating, resilient calls and dashboard snapshots.
package platform

import (
	"context"

	"github.com/healthbridge/healthbridge/internal/healthdata"
	"github.com/healthbridge/healthbridge/internal/workout"
)

// Adapter talks to one native health store. ReadLatest returns nil and no
// error when there is no sample. Subscribe returns a nil channel when the
// store cannot stream dataType.
type Adapter interface {
	Platform() healthdata.Platform
	CheckPermissions(ctx context.Context, perms healthdata.PermissionSet) (healthdata.PermissionResult, error)
	RequestPermissions(ctx context.Context, perms healthdata.PermissionSet) (healthdata.PermissionResult, error)
	ReadLatest(ctx context.Context, dataType healthdata.DataType) (healthdata.HealthDataPoint, error)
	Write(ctx context.Context, p healthdata.HealthDataPoint) error
	Subscribe(ctx context.Context, dataType healthdata.DataType) (<-chan healthdata.HealthDataPoint, error)

	workout.Adapter
}
