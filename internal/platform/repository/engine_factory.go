package repository

import (
	"fmt"

	"BitcaskDB/internal/domain"
	"BitcaskDB/internal/platform/config"
	"BitcaskDB/internal/platform/repository/bitcask"
	"BitcaskDB/internal/platform/repository/bolt"
)

// NewKvEngine resolves the engine named in the configuration. The engines
// keep their data in different files (bitcask: <fid>.log segments, bolt:
// bolt.db), so opening a directory with the other engine sees none of the
// data the first one wrote.
func NewKvEngine(cfg config.Config) (domain.KvEngine, error) {
	switch cfg.Engine {
	case "", "bitcask":
		return bitcask.Open(cfg.DataDirectory)
	case "bolt":
		return bolt.Open(cfg.DataDirectory)
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Engine)
	}
}
