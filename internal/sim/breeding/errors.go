package breeding

import (
	"errors"

	"breedcraft.ai/internal/sim/world"
)

var (
	ErrEnclosureFull     = world.ErrEnclosureFull
	ErrEnclosureNotFound = world.ErrEnclosureNotFound
	ErrStorageFull       = errors.New("storage is full")
	ErrUnknownSpecies    = errors.New("unknown species")
	ErrDonorEgg          = errors.New("universal donor cannot be an egg species")
	ErrNotOccupant       = errors.New("creature is not in this enclosure")
	ErrNotOwner          = errors.New("creature belongs to another player")
	ErrNotEgg            = errors.New("record is not an egg")
	ErrNotBreedable      = errors.New("creature cannot breed")
	ErrEggNotReady       = errors.New("egg has not finished hatching")
	ErrEggTaken          = errors.New("egg was already collected by another player")
	ErrPlayerUnavailable = errors.New("player is unavailable")
)
