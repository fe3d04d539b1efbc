package service

import (
	"BitcaskDB/internal/domain"
)

type SaveEntryService struct {
	engine domain.KvEngine
}

func NewSaveEntryService(engine domain.KvEngine) *SaveEntryService {
	return &SaveEntryService{
		engine: engine,
	}
}

type SaveEntryCommand struct {
	Key   string
	Value string
}

type SaveEntryResult struct {
	Entry domain.DbEntry
	Err   error
}

func (s *SaveEntryService) Execute(command SaveEntryCommand) SaveEntryResult {
	if err := s.engine.Set(command.Key, command.Value); err != nil {
		return SaveEntryResult{Err: err}
	}
	return SaveEntryResult{Entry: domain.NewDbEntry(command.Key, command.Value, false)}
}
