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
	"os"
	"path/filepath"

	"jinr.ru/greenlab/go-rda/pkg/config"
	"jinr.ru/greenlab/go-rda/pkg/dispatch"
	"jinr.ru/greenlab/go-rda/pkg/log"
	"jinr.ru/greenlab/go-rda/pkg/metrics"
	"jinr.ru/greenlab/go-rda/pkg/rda"
	"jinr.ru/greenlab/go-rda/pkg/sink"
	"jinr.ru/greenlab/go-rda/pkg/srv/api"
	"jinr.ru/greenlab/go-rda/pkg/srv/session"
	"jinr.ru/greenlab/go-rda/pkg/srv/state"
)

const journalQueueSize = 256

// closers collects what a stream owns until its session takes over
type closers []func() error

func (c *closers) add(f func() error) {
	*c = append(*c, f)
}

// closeAll closes in reverse order of add and keeps going on errors
func (c closers) closeAll() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StartStream connects to the RDA server and runs one acquisition session
// with the API server alongside. It returns when the acquisition stops
// or the context is canceled.
func StartStream(ctx context.Context, cfg *config.Config) error {
	opts, err := session.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	m := metrics.NewMetrics()
	opts.Metrics = m
	opts.Publisher = rda.DefaultPublisher

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return err
	}
	st, err := state.NewState(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.BeginRun(); err != nil {
		return err
	}

	// the session closes the journal, the sinks and the source once started
	var owned closers
	defer func() {
		if err := owned.closeAll(); err != nil {
			log.Warning("Error while releasing stream resources: %s", err)
		}
	}()

	opts.Journal = state.NewJournal(st, journalQueueSize)
	owned.add(func() error {
		opts.Journal.Close()
		return nil
	})

	csvSink := sink.NewCSVSink()
	owned.add(csvSink.Close)
	if cfg.Save.Dir != "" {
		if _, err := csvSink.Persist(cfg.Save.Dir, cfg.Save.FilePrefix); err != nil {
			return err
		}
	}
	opts.SaveSink = csvSink

	hub := api.NewHub()
	live := dispatch.LiveSinks{hub}
	owned.add(hub.Close)
	if cfg.NATS.URL != "" {
		natsSink, err := sink.NewNATSSink(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return err
		}
		owned.add(natsSink.Close)
		live = append(live, natsSink)
	}
	opts.LiveSink = live

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	src, err := rda.Dial(ctx, cfg.RDA.Endpoint(),
		rda.WithReadTimeout(cfg.RDA.ReadTimeout),
		rda.WithGUIDCheck(cfg.RDA.CheckGUID))
	if err != nil {
		return err
	}
	owned.add(src.Close)
	sess, err := session.New(src, opts)
	if err != nil {
		return err
	}

	apiServer := api.NewApiServer(ctx, cfg, sess, opts.Publisher,
		api.WithPersister(csvSink),
		api.WithGapStore(st),
		api.WithTableStore(st),
		api.WithHub(hub),
		api.WithGatherer(m.Registry))
	go func() {
		if err := apiServer.Run(); err != nil {
			log.Error("API server: %s", err)
		}
	}()

	h, err := sess.Start(ctx)
	if err != nil {
		return err
	}
	owned = nil
	err = h.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
