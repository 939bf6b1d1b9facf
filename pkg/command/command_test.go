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
	"context"
	"errors"
	"io"
	"net"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"
	"time"

	"jinr.ru/greenlab/go-rda/pkg/config"
)

func TestClosersCloseAll(t *testing.T) {
	var order []int
	var c closers
	for i := 0; i < 3; i++ {
		i := i
		c.add(func() error {
			order = append(order, i)
			if i == 1 {
				return errors.New("close failed")
			}
			return nil
		})
	}
	if err := c.closeAll(); err == nil {
		t.Error("error of the second closer lost")
	}
	if !reflect.DeepEqual(order, []int{2, 1, 0}) {
		t.Errorf("close order %v", order)
	}
	var empty closers
	if err := empty.closeAll(); err != nil {
		t.Errorf("empty closeAll: %v", err)
	}
}

func TestStartStreamReleasesOnSessionError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := l.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	dir := t.TempDir()
	cfg := config.NewDefaultConfig()
	cfg.DBPath = filepath.Join(dir, "db", "state.db")
	cfg.Save.Dir = dir
	cfg.RDA.Address = "127.0.0.1"
	cfg.RDA.Port = l.Addr().(*net.TCPAddr).Port
	cfg.Decimation.Stride = 0

	if err := StartStream(context.Background(), cfg); err == nil {
		t.Fatal("stream started with stride " + strconv.Itoa(cfg.Decimation.Stride))
	}

	select {
	case conn := <-accepted:
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if _, err := conn.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
			t.Errorf("RDA connection left open: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not connect")
	}
}
