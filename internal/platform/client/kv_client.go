package client

import (
	"fmt"
	"net/http"

	"BitcaskDB/internal/domain"

	"github.com/go-resty/resty/v2"
)

const entry_endpoint = "/db/"

// KvClient talks to a BitcaskDB server over its HTTP API.
type KvClient struct {
	client    *resty.Client
	serverUrl string
}

func NewKvClient(serverUrl string) *KvClient {
	return &KvClient{
		client:    resty.New(),
		serverUrl: serverUrl,
	}
}

type SaveEntryRequest struct {
	Value string `json:"value"`
}

type EntryResponse struct {
	Key       string `json:"key,omitempty"`
	Value     string `json:"value,omitempty"`
	Tombstone bool   `json:"tombstone"`
}

func (c *KvClient) Set(key, value string) (*EntryResponse, error) {
	var resp EntryResponse
	uri := c.serverUrl + entry_endpoint + key
	body := SaveEntryRequest{Value: value}

	r, err := c.client.R().SetResult(&resp).SetBody(&body).Post(uri)
	if err != nil {
		return nil, err
	}
	if r.IsError() {
		return nil, fmt.Errorf("set %s: server returned %s", key, r.Status())
	}
	return &resp, nil
}

// Get returns the value for key; found is false when the server reports 404.
func (c *KvClient) Get(key string) (string, bool, error) {
	var resp EntryResponse
	uri := c.serverUrl + entry_endpoint + key

	r, err := c.client.R().SetResult(&resp).Get(uri)
	if err != nil {
		return "", false, err
	}
	if r.StatusCode() == http.StatusNotFound {
		return "", false, nil
	}
	if r.IsError() {
		return "", false, fmt.Errorf("get %s: server returned %s", key, r.Status())
	}
	return resp.Value, true, nil
}

func (c *KvClient) Remove(key string) error {
	uri := c.serverUrl + entry_endpoint + key

	r, err := c.client.R().Delete(uri)
	if err != nil {
		return err
	}
	if r.StatusCode() == http.StatusNotFound {
		return domain.ErrKeyNotFound
	}
	if r.IsError() {
		return fmt.Errorf("remove %s: server returned %s", key, r.Status())
	}
	return nil
}
