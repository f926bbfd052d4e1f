package mcp

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func NewTestDependencies(fs afero.Fs, configPath string) *Dependencies {
	return &Dependencies{
		fs:         fs,
		configPath: configPath,
		logger:     zap.NewNop(),
	}
}
