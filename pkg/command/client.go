/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package command

import (
	"errors"
	"fmt"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-rda/pkg/config"
	"jinr.ru/greenlab/go-rda/pkg/rda"
	"jinr.ru/greenlab/go-rda/pkg/srv/api"
	"jinr.ru/greenlab/go-rda/pkg/srv/session"
	"jinr.ru/greenlab/go-rda/pkg/srv/state"
)

// ApiClient talks to the API of a running stream command
type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s/api", cfg.Api.Endpoint()),
	}
}

func (c *ApiClient) getJSON(path string, v interface{}) error {
	r, err := req.Get(c.ApiPrefix + path)
	if err != nil {
		return err
	}
	if r.Response().StatusCode != 200 {
		return errors.New(r.Response().Status)
	}
	if v == nil {
		return nil
	}
	return r.ToJSON(v)
}

// Status sends request to get the session status
func (c *ApiClient) Status() (*session.Status, error) {
	status := &session.Status{}
	if err := c.getJSON("/status", status); err != nil {
		return nil, err
	}
	return status, nil
}

// Index sends request to get the current acquisition index
func (c *ApiClient) Index() (*rda.Index, error) {
	idx := &rda.Index{}
	if err := c.getJSON("/index", idx); err != nil {
		return nil, err
	}
	return idx, nil
}

// Channels sends request to get the channel table of the acquisition
func (c *ApiClient) Channels() (*rda.ChannelTable, error) {
	table := &rda.ChannelTable{}
	if err := c.getJSON("/channels", table); err != nil {
		return nil, err
	}
	return table, nil
}

// Gaps sends request to get the newest sequence gaps, all of them if limit is 0
func (c *ApiClient) Gaps(limit int) ([]*state.GapRecord, error) {
	var gaps []*state.GapRecord
	if err := c.getJSON(fmt.Sprintf("/gaps?limit=%d", limit), &gaps); err != nil {
		return nil, err
	}
	return gaps, nil
}

// Persist sends request to start writing save data to a new file
func (c *ApiClient) Persist(dirPath, filePrefix string) (string, error) {
	persist := &api.Persist{
		Dir:        dirPath,
		FilePrefix: filePrefix,
	}
	r, err := req.Post(c.ApiPrefix+"/persist", req.BodyJSON(persist))
	if err != nil {
		return "", err
	}
	if r.Response().StatusCode != 200 {
		return "", errors.New(r.Response().Status)
	}
	result := &api.PersistResult{}
	if err := r.ToJSON(result); err != nil {
		return "", err
	}
	return result.Filename, nil
}

// Flush sends request to close the save file
func (c *ApiClient) Flush() error {
	return c.getJSON("/flush", nil)
}
