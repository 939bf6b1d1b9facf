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

package sink

import (
	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"

	"jinr.ru/greenlab/go-rda/pkg/log"
	"jinr.ru/greenlab/go-rda/pkg/rda"
)

type publisher interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSSink publishes live frames as msgpack encoded rda.Record values
type NATSSink struct {
	conn    publisher
	subject string
}

func NewNATSSink(url, subject string) (*NATSSink, error) {
	conn, err := nats.Connect(url,
		nats.Name("go-rda"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warning("NATS disconnected: %s", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected: %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, err
	}
	log.Info("Publishing live frames to NATS %s subject %s", url, subject)
	return &NATSSink{conn: conn, subject: subject}, nil
}

func (s *NATSSink) Live(frame *rda.DecimatedFrame) error {
	data, err := msgpack.Marshal(frame.Record())
	if err != nil {
		return err
	}
	return s.conn.Publish(s.subject, data)
}

// Close flushes pending messages and closes the connection
func (s *NATSSink) Close() error {
	return s.conn.Drain()
}

// DecodeRecord decodes a message published by NATSSink
func DecodeRecord(data []byte) (*rda.Record, error) {
	rec := &rda.Record{}
	if err := msgpack.Unmarshal(data, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// NATSListener receives the live frames published by a NATSSink
type NATSListener struct {
	conn *nats.Conn
	sub  *nats.Subscription
}

// ListenNATS calls handle for every record published on subject. Messages
// which do not decode are logged and skipped.
func ListenNATS(url, subject string, handle func(*rda.Record)) (*NATSListener, error) {
	conn, err := nats.Connect(url, nats.Name("go-rda-listen"))
	if err != nil {
		return nil, err
	}
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		handleRecord(msg.Data, handle)
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	log.Info("Listening to live frames on NATS %s subject %s", url, subject)
	return &NATSListener{conn: conn, sub: sub}, nil
}

func handleRecord(data []byte, handle func(*rda.Record)) bool {
	rec, err := DecodeRecord(data)
	if err != nil {
		log.Warning("Skipping live frame which does not decode: %s", err)
		return false
	}
	handle(rec)
	return true
}

func (l *NATSListener) Close() error {
	return l.conn.Drain()
}
