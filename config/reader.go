package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"go.viam.com/posematch/logging"
)

// Read reads a config from the given file. ${VAR} references are replaced by the value of the
// environment variable before decoding.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from. The config is only decoded; callers
// apply their overrides and then call Validate.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	cfg := Config{ConfigFilePath: originalPath}
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	logger.Debugw("config read", "path", originalPath, "object", cfg.Object, "scene", cfg.Scene,
		"partial_view", cfg.Estimator.PartialView)
	return &cfg, nil
}
