package breeding

import (
	"github.com/google/uuid"

	"breedcraft.ai/internal/sim/world"
)

// FindInstance returns the live entity of recordID inside the enclosure's
// roam volume grown by margin, or nil when it is not loaded there.
func FindInstance(w *world.World, enc *world.Enclosure, recordID uuid.UUID, margin float64) *world.Entity {
	if w == nil || enc == nil || recordID == uuid.Nil {
		return nil
	}
	found := w.EntitiesIn(enc.RoamBox().Expand(margin), func(e *world.Entity) bool {
		return e.RecordID == recordID
	})
	if len(found) == 0 {
		return nil
	}
	return found[0]
}
