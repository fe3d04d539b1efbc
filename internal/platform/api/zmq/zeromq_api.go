package zmq

import (
	"context"
	"errors"
	"fmt"
	"log"

	"BitcaskDB/internal/application/service"
	"BitcaskDB/internal/domain"
	"BitcaskDB/internal/platform/config"

	"github.com/go-zeromq/zmq4"
	json "github.com/json-iterator/go"
)

// ZmqApi exposes the key-value operations over a REP socket for clients
// that want a lighter transport than HTTP. REP is lock-step, so requests
// on one socket are handled one at a time.
type ZmqApi struct {
	socket   zmq4.Socket
	config   config.Config
	services *Services
	ctx      context.Context
	cancel   context.CancelFunc
}

type Services struct {
	get    *service.GetEntryService
	set    *service.SaveEntryService
	delete *service.DeleteEntryService
}

const (
	SAVE   = "SAVE"
	GET    = "GET"
	DELETE = "DELETE"
)

func NewZmqApi(get *service.GetEntryService, set *service.SaveEntryService,
	delete *service.DeleteEntryService, conf config.Config) *ZmqApi {

	ctx, cancel := context.WithCancel(context.Background())
	return &ZmqApi{
		socket: zmq4.NewRep(ctx),
		config: conf,
		services: &Services{
			get:    get,
			set:    set,
			delete: delete,
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

func (z *ZmqApi) Listen() {
	address := fmt.Sprintf("tcp://*:%d", z.config.ZmqApiPort)
	if err := z.socket.Listen(address); err != nil {
		log.Printf("Error binding ZMQ API socket on %s: %v", address, err)
		return
	}
	log.Printf("ZMQ API listening on %s", address)

	for {
		select {
		case <-z.ctx.Done():
			return
		default:
		}

		msg, err := z.socket.Recv()
		if err != nil {
			if errors.Is(err, zmq4.ErrClosedConn) {
				return
			}
			log.Printf("ZMQ API recv error: %v", err)
			continue
		}

		var req ApiRequest
		if err := json.Unmarshal(msg.Bytes(), &req); err != nil {
			log.Printf("ZMQ API unmarshal error: %v", err)
			z.send(ApiResponse{Success: false, Error: "malformed request"})
			continue
		}
		z.send(z.processRequest(&req))
	}
}

func (z *ZmqApi) processRequest(req *ApiRequest) ApiResponse {
	switch req.Action {
	case SAVE:
		result := z.services.set.Execute(service.SaveEntryCommand{
			Key:   req.Key,
			Value: req.Value,
		})
		if result.Err != nil {
			return ApiResponse{Success: false, Error: result.Err.Error()}
		}
		return ApiResponse{Entry: mapEntry(result.Entry), Success: true}

	case GET:
		result := z.services.get.Execute(service.GetEntryQuery{Key: req.Key})
		if result.Err != nil {
			return ApiResponse{Success: false, Error: result.Err.Error()}
		}
		return ApiResponse{Entry: mapEntry(result.Entry), Success: result.Found}

	case DELETE:
		result := z.services.delete.Execute(service.DeleteEntryCommand{Key: req.Key})
		if result.Err != nil {
			if errors.Is(result.Err, domain.ErrKeyNotFound) {
				return ApiResponse{Success: false, Error: "key not found"}
			}
			return ApiResponse{Success: false, Error: result.Err.Error()}
		}
		return ApiResponse{Entry: mapEntry(result.Entry), Success: true}

	default:
		log.Printf("Unknown action: %s", req.Action)
		return ApiResponse{Success: false, Error: "unknown action"}
	}
}

func mapEntry(entry domain.DbEntry) EntryResponse {
	return EntryResponse{
		Key:       entry.Key(),
		Value:     entry.Value(),
		Tombstone: entry.Tombstone(),
	}
}

func (z *ZmqApi) send(response ApiResponse) {
	payload, err := json.Marshal(response)
	if err != nil {
		log.Printf("Error marshalling response: %v", err)
		payload = []byte(`{"success":false}`)
	}
	if err := z.socket.Send(zmq4.NewMsg(payload)); err != nil {
		log.Printf("ZMQ API send error: %v", err)
	}
}

func (z *ZmqApi) Close() error {
	z.cancel()
	return z.socket.Close()
}
