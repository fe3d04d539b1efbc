package service

import (
	"BitcaskDB/internal/domain"
)

type DeleteEntryService struct {
	engine domain.KvEngine
}

func NewDeleteEntryService(engine domain.KvEngine) *DeleteEntryService {
	return &DeleteEntryService{
		engine: engine,
	}
}

type DeleteEntryCommand struct {
	Key string
}

type DeleteEntryResult struct {
	Entry domain.DbEntry
	Err   error
}

func (s *DeleteEntryService) Execute(command DeleteEntryCommand) DeleteEntryResult {
	if err := s.engine.Remove(command.Key); err != nil {
		return DeleteEntryResult{Err: err}
	}
	return DeleteEntryResult{Entry: domain.NewTombstone(command.Key)}
}
