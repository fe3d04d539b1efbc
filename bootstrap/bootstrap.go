package bootstrap

import (
	"BitcaskDB/internal/application/service"
	"BitcaskDB/internal/platform/api/zmq"
	"BitcaskDB/internal/platform/config"
	"BitcaskDB/internal/platform/repository"
	"BitcaskDB/internal/platform/server"
	"BitcaskDB/internal/platform/server/handler/dbentry"
	"go.uber.org/dig"
)

func Run() (bool, error) {
	container := dig.New()
	serviceConstructors := []interface{}{
		config.LoadConfig,
		repository.NewKvEngine,
		service.NewSaveEntryService,
		service.NewGetEntryService,
		service.NewDeleteEntryService,
		dbentry.NewDbEntryHandler,
		server.NewServer,
		zmq.NewZmqApi,
	}
	for _, service := range serviceConstructors {
		if err := container.Provide(service); err != nil {
			return false, err
		}
	}
	err := container.Invoke(func(s server.Server, api *zmq.ZmqApi) error {
		go api.Listen()
		return s.Run()
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
