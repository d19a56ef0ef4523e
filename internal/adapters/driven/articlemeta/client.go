package articlemeta

import (
	"fmt"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driven"
)

// New creates the source client selected by the connection setting.
func New(settings domain.Settings) (driven.SourceClient, error) {
	switch settings.Connection {
	case domain.ConnectionRestful, "":
		return NewRestfulClient(settings), nil
	case domain.ConnectionThrift:
		return NewThriftClient(settings)
	default:
		return nil, fmt.Errorf("%w: unknown connection kind %q", domain.ErrConfig, settings.Connection)
	}
}
