package session

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/pgadapt/internal/catalog"
)

// ErrNoServer is returned when an operation needs a live server but the
// Conn was built without one.
var ErrNoServer = errors.New("session: no server connection")

// AttachCatalog makes the decoder resolve unknown OIDs through cat. With
// refresh false a cached snapshot is used when one exists; otherwise the
// catalog is reloaded from the server. It returns how long a server
// refresh took, or zero when the cache was used.
func (c *Conn) AttachCatalog(ctx context.Context, cat *catalog.Catalog, refresh bool) (time.Duration, error) {
	c.dec.SetResolver(cat)

	if !refresh {
		err := cat.Warm(ctx)
		if err == nil {
			return 0, nil
		}
		if !errors.Is(err, catalog.ErrEmpty) && !errors.Is(err, catalog.ErrNoStore) {
			c.logger.Warn("cached type catalog unusable, refreshing", "error", err)
		}
	}

	if c.conn == nil {
		return 0, ErrNoServer
	}
	start := time.Now()
	if err := cat.Refresh(ctx, c.conn); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
