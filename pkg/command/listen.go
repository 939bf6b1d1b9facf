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
	"fmt"
	"io"
	"strings"

	"jinr.ru/greenlab/go-rda/pkg/config"
	"jinr.ru/greenlab/go-rda/pkg/rda"
	"jinr.ru/greenlab/go-rda/pkg/sink"
)

// StartListener prints the live frames a stream publishes to NATS until the
// context is canceled
func StartListener(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if cfg.NATS.URL == "" {
		return errors.New("NATS url is not configured")
	}
	l, err := sink.ListenNATS(cfg.NATS.URL, cfg.NATS.Subject, func(rec *rda.Record) {
		fmt.Fprint(out, FormatRecord(rec))
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	return l.Close()
}

// FormatRecord renders a live record as one line: index, block id, time,
// channel names and the first decimated row
func FormatRecord(rec *rda.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\t%d\t%.6f\t%s", rec.Index, rec.BlockID, rec.Time, strings.Join(rec.Channels, ","))
	if len(rec.Samples) > 0 {
		b.WriteString("\t")
		for i, v := range rec.Samples[0] {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "%g", v)
		}
		fmt.Fprintf(&b, "\t(%d rows)", len(rec.Samples))
	}
	b.WriteString("\n")
	return b.String()
}
