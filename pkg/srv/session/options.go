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

package session

import (
	"jinr.ru/greenlab/go-rda/pkg/config"
	"jinr.ru/greenlab/go-rda/pkg/dispatch"
	"jinr.ru/greenlab/go-rda/pkg/metrics"
	"jinr.ru/greenlab/go-rda/pkg/rda"
	"jinr.ru/greenlab/go-rda/pkg/srv/state"
)

type Options struct {
	Stride int
	// OutputHz, when positive, derives the stride from the sampling rate
	// of every start message and Stride is ignored.
	OutputHz      float64
	Save          rda.ChannelSelection
	Live          rda.ChannelSelection
	SaveQueueSize int
	LiveQueueSize int
	// SkipUnknown continues after messages of unknown type instead of ending the session
	SkipUnknown bool
	Subject     rda.SubjectInfo

	SaveSink dispatch.SaveSink
	LiveSink dispatch.LiveSink

	// Publisher defaults to rda.DefaultPublisher, Metrics to a new set
	Publisher *rda.Publisher
	Metrics   *metrics.Metrics
	// Journal is optional, the session closes it when it ends
	Journal *state.Journal
}

// OptionsFromConfig fills everything but the sinks, the metrics and the journal
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	save, err := rda.ParseSelection(cfg.Save.Channels)
	if err != nil {
		return Options{}, err
	}
	live, err := rda.ParseSelection(cfg.Live.Channels)
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		Stride:        cfg.Decimation.Stride,
		OutputHz:      cfg.Decimation.OutputHz,
		Save:          save,
		Live:          live,
		SaveQueueSize: cfg.Save.QueueSize,
		LiveQueueSize: cfg.Live.QueueSize,
		SkipUnknown:   cfg.RDA.SkipUnknown,
	}
	if cfg.Subject != nil {
		opts.Subject = rda.SubjectInfo{
			Name:             cfg.Subject.Name,
			TrackingNumber:   cfg.Subject.TrackingNumber,
			ExperimentNumber: cfg.Subject.ExperimentNumber,
		}
	}
	return opts, nil
}
