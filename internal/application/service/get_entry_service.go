package service

import (
	"BitcaskDB/internal/domain"
)

type GetEntryService struct {
	engine domain.KvEngine
}

func NewGetEntryService(engine domain.KvEngine) *GetEntryService {
	return &GetEntryService{
		engine: engine,
	}
}

type GetEntryQuery struct {
	Key string
}

type GetEntryResult struct {
	Entry domain.DbEntry
	Found bool
	Err   error
}

func (s *GetEntryService) Execute(query GetEntryQuery) GetEntryResult {
	value, found, err := s.engine.Get(query.Key)
	if err != nil {
		return GetEntryResult{Err: err}
	}
	if !found {
		return GetEntryResult{Found: false}
	}
	return GetEntryResult{
		Entry: domain.NewDbEntry(query.Key, value, false),
		Found: true,
	}
}
