// internal/registry/run.go
package registry

import (
	"context"

	"github.com/owpug/pugmate/internal/gateway"
)

// Run consumes gateway events until ctx ends or the stream closes. Events
// are handled strictly one at a time, in arrival order; ordering between a
// voice move and the DM it prompts is what keeps registration coherent.
func (s *Store) Run(ctx context.Context, events <-chan gateway.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case gateway.VoiceStateUpdate:
				s.HandleVoiceUpdate(ctx, e)
			case gateway.DirectMessage:
				s.HandleDirectMessage(ctx, e.Author, e.Content)
			default:
				s.logger.Warnf("unknown gateway event %T dropped", ev)
			}
		}
	}
}
