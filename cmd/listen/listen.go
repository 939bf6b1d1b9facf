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

package listen

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-rda/pkg/command"
	"jinr.ru/greenlab/go-rda/pkg/config"
)

const (
	NATSOptionName    = "nats"
	SubjectOptionName = "subject"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var natsURL, subject string
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print the live frames a stream publishes to NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed(NATSOptionName) {
				cfg.NATS.URL = natsURL
			}
			if flags.Changed(SubjectOptionName) {
				cfg.NATS.Subject = subject
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return command.StartListener(ctx, cfg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&natsURL, NATSOptionName, cfg.NATS.URL, "NATS server URL")
	cmd.Flags().StringVar(&subject, SubjectOptionName, cfg.NATS.Subject, "NATS subject of live frames")

	return cmd
}
