package api

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/steemit/bookmarks/internal/auth"
	"github.com/steemit/bookmarks/internal/bookmark"
	"github.com/steemit/bookmarks/pkg/logging"
	"github.com/steemit/bookmarks/pkg/telemetry"
)

// NonceAction is the action every ajax nonce is bound to
const NonceAction = "bp_ajax_nonce"

// ActionHandler handles one ajax action. Returned errors are mapped to a
// response by the dispatcher.
type ActionHandler func(c *gin.Context) error

type action struct {
	handler      ActionHandler
	requireNonce bool
}

// ActionDispatcher routes POST requests to handlers by their "action" field
type ActionDispatcher struct {
	actions map[string]action
	nonces  *auth.NonceManager
	logger  *zap.Logger
}

// NewActionDispatcher creates a new dispatcher
func NewActionDispatcher(nonces *auth.NonceManager) *ActionDispatcher {
	return &ActionDispatcher{
		actions: make(map[string]action),
		nonces:  nonces,
		logger:  logging.WithComponent("ajax"),
	}
}

// Register adds a handler. When requireNonce is set the request must carry
// a valid "nonce" field, checked before the handler runs.
func (d *ActionDispatcher) Register(name string, handler ActionHandler, requireNonce bool) {
	d.actions[name] = action{handler: handler, requireNonce: requireNonce}
}

// Handle dispatches a request
func (d *ActionDispatcher) Handle(c *gin.Context) {
	name := c.PostForm("action")

	ctx, span := telemetry.StartSpan(c.Request.Context(), "ajax."+name)
	defer span.End()
	span.SetAttributes(attribute.String("action", name))
	c.Request = c.Request.WithContext(ctx)

	a, ok := d.actions[name]
	if !ok {
		respondError(c, errUnknownAction)
		return
	}

	if a.requireNonce {
		identity := currentIdentity(c)
		if !d.nonces.Verify(c.PostForm("nonce"), NonceAction, identity.NonceSession()) {
			respondError(c, bookmark.ErrInvalidNonce)
			return
		}
	}

	if err := a.handler(c); err != nil {
		span.RecordError(err)
		respondError(c, err)
	}
}
