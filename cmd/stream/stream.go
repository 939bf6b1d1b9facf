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

package stream

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-rda/pkg/command"
	"jinr.ru/greenlab/go-rda/pkg/config"
	"jinr.ru/greenlab/go-rda/pkg/log"
)

const (
	AddressOptionName     = "address"
	PortOptionName        = "port"
	ReadTimeoutOptionName = "read-timeout"
	StrideOptionName      = "stride"
	OutputHzOptionName    = "output-hz"
	LiveOptionName        = "live"
	SaveOptionName        = "save"
	DirOptionName         = "dir"
	FilePrefixOptionName  = "file-prefix"
	NATSOptionName        = "nats"
	ApiPortOptionName     = "api-port"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var address, live, save, dir, filePrefix, natsURL string
	var port, stride, apiPort int
	var outputHz float64
	var readTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Stream data from an RDA server",
		Long: `Connect to an RDA server (BrainVision Recorder or compatible),
decimate the data and dispatch it to the save file and the live consumers
(websocket /api/live and NATS). Stops on the stop message or on interrupt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed(AddressOptionName) {
				cfg.RDA.Address = address
			}
			if flags.Changed(PortOptionName) {
				cfg.RDA.Port = port
			}
			if flags.Changed(ReadTimeoutOptionName) {
				cfg.RDA.ReadTimeout = readTimeout
			}
			if flags.Changed(StrideOptionName) {
				cfg.Decimation.Stride = stride
			}
			if flags.Changed(OutputHzOptionName) {
				cfg.Decimation.OutputHz = outputHz
			}
			if flags.Changed(LiveOptionName) {
				cfg.Live.Channels = live
			}
			if flags.Changed(SaveOptionName) {
				cfg.Save.Channels = save
			}
			if flags.Changed(DirOptionName) {
				cfg.Save.Dir = dir
			}
			if flags.Changed(FilePrefixOptionName) {
				cfg.Save.FilePrefix = filePrefix
			}
			if flags.Changed(NATSOptionName) {
				cfg.NATS.URL = natsURL
			}
			if flags.Changed(ApiPortOptionName) {
				cfg.Api.Port = apiPort
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log.Info("Streaming from %s, stride %d", cfg.RDA.Endpoint(), cfg.Decimation.Stride)
			return command.StartStream(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&address, AddressOptionName, cfg.RDA.Address, "RDA server address")
	cmd.Flags().IntVar(&port, PortOptionName, cfg.RDA.Port, "RDA server port")
	cmd.Flags().DurationVar(&readTimeout, ReadTimeoutOptionName, cfg.RDA.ReadTimeout, "Read timeout, 0 waits forever")
	cmd.Flags().IntVar(&stride, StrideOptionName, cfg.Decimation.Stride, "Decimation stride")
	cmd.Flags().Float64Var(&outputHz, OutputHzOptionName, cfg.Decimation.OutputHz, "Target output rate in Hz, overrides the stride when positive")
	cmd.Flags().StringVar(&live, LiveOptionName, cfg.Live.Channels, "Live channels: all, none or comma separated names/indexes, #n selects by position only")
	cmd.Flags().StringVar(&save, SaveOptionName, cfg.Save.Channels, "Save channels: all, none or comma separated names/indexes, #n selects by position only")
	cmd.Flags().StringVar(&dir, DirOptionName, cfg.Save.Dir, "Directory to save data to, empty waits for a persist request")
	cmd.Flags().StringVar(&filePrefix, FilePrefixOptionName, cfg.Save.FilePrefix, "Save file name prefix")
	cmd.Flags().StringVar(&natsURL, NATSOptionName, cfg.NATS.URL, "NATS server URL for live frames, empty disables")
	cmd.Flags().IntVar(&apiPort, ApiPortOptionName, cfg.Api.Port, "API port")

	return cmd
}
