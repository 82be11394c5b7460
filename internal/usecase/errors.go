package usecase

import (
	"errors"
	"fmt"

	"github.com/2xkl/PeerFlow/internal/domain"
)

var (
	ErrEngine     = errors.New("engine error")
	ErrRepository = errors.New("repository error")
)

// Domain sentinels pass through unwrapped so callers can map them to
// responses; everything else is folded into the layer sentinel.

func wrapEngine(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEngineTimeout) || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrEngine, err)
}

func wrapRepo(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyExists) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrRepository, err)
}
