package links

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/termdock/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termdock/internal/providers/contentstore"
	"go.uber.org/zap"
)

// Opener hands targets to the operating system.
type Opener interface {
	OpenURL(ctx context.Context, url string) error
	OpenPath(ctx context.Context, path string) error
}

// Activator resolves matches and performs the resulting actions.
type Activator struct {
	resolver *Resolver
	store    contentstore.Store
	opener   Opener
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewActivator creates an activator. store may be nil.
func NewActivator(resolver *Resolver, store contentstore.Store, opener Opener, logger *zap.Logger, metrics *monitoring.Metrics) *Activator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Activator{
		resolver: resolver,
		store:    store,
		opener:   opener,
		logger:   logger,
		metrics:  metrics,
	}
}

// Resolve exposes the resolver.
func (a *Activator) Resolve(ctx context.Context, m Match, dir string) Action {
	return a.resolver.Resolve(ctx, m, dir)
}

// Activate resolves m and performs the action.
func (a *Activator) Activate(ctx context.Context, m Match, dir string) (Action, error) {
	action := a.resolver.Resolve(ctx, m, dir)
	a.metrics.RecordLinkActivated(string(action.Kind))

	if err := a.Perform(ctx, action); err != nil {
		a.logger.Warn("link activation failed",
			zap.String("action", string(action.Kind)),
			zap.String("target", action.Target),
			zap.Error(err))
		return action, err
	}
	return action, nil
}

// Perform executes a resolved action.
func (a *Activator) Perform(ctx context.Context, action Action) error {
	switch action.Kind {
	case ActionOpenExternal, ActionOpenInternalURI:
		if a.opener == nil {
			return nil
		}
		return a.opener.OpenURL(ctx, action.Target)
	case ActionOpenPath:
		if a.opener == nil {
			return nil
		}
		return a.opener.OpenPath(ctx, action.Target)
	case ActionOpenEntry:
		if a.store == nil || action.Entry == nil {
			return nil
		}
		return a.store.Open(ctx, *action.Entry, action.Cursor)
	case ActionOpenLinkText:
		if a.store == nil {
			return nil
		}
		return a.store.OpenLinkText(ctx, action.Target)
	}
	return fmt.Errorf("unknown link action: %s", action.Kind)
}
