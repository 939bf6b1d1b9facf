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

package simulate

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-rda/pkg/command"
	"jinr.ru/greenlab/go-rda/pkg/config"
	"jinr.ru/greenlab/go-rda/pkg/sim"
)

const (
	ListenOptionName   = "listen"
	ChannelsOptionName = "channels"
	BlocksOptionName   = "blocks"
	GapEveryOptionName = "gap-every"
	MarkerOptionName   = "marker-every"
	PointsOptionName   = "points"
	SineOptionName     = "sine-hz"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	opts := sim.DefaultOptions()
	opts.PointsPerBlock = cfg.Decimation.PointsPerBlock
	var listen string
	var channels int
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a synthetic RDA server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if channels < 1 || channels > len(sim.DefaultChannelNames) {
				return fmt.Errorf("channels must be in 1..%d", len(sim.DefaultChannelNames))
			}
			opts.ChannelNames = sim.DefaultChannelNames[:channels]
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return command.StartSimulator(ctx, listen, opts)
		},
	}
	cmd.Flags().StringVar(&listen, ListenOptionName, fmt.Sprintf(":%d", config.DefaultRDAPort), "Address to listen on")
	cmd.Flags().IntVar(&channels, ChannelsOptionName, len(sim.DefaultChannelNames), "Number of channels")
	cmd.Flags().IntVar(&opts.Blocks, BlocksOptionName, 0, "Blocks per acquisition, 0 streams until interrupted")
	cmd.Flags().IntVar(&opts.GapEvery, GapEveryOptionName, 0, "Skip a block id every n blocks")
	cmd.Flags().IntVar(&opts.MarkerEvery, MarkerOptionName, 0, "Add a stimulus marker every n blocks")
	cmd.Flags().IntVar(&opts.PointsPerBlock, PointsOptionName, opts.PointsPerBlock, "Points per channel in a block")
	cmd.Flags().Float64Var(&opts.SineHz, SineOptionName, opts.SineHz, "Frequency of the generated sine")

	return cmd
}
