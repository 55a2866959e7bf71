package stt

import (
	"fmt"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/model"
)

// NewLoader builds the model loader selected by cfg.STT.Mode.
func NewLoader(cfg config.Config) (model.Loader, error) {
	switch cfg.STT.Mode {
	case "exec":
		return NewExecLoader(cfg.STT, cfg.Model.Directory)
	case "mock", "":
		return NewMockLoader(), nil
	default:
		return nil, fmt.Errorf("unknown stt mode %q", cfg.STT.Mode)
	}
}
