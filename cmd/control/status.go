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

package control

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-rda/pkg/command"
	"jinr.ru/greenlab/go-rda/pkg/config"
)

func printYAML(cmd *cobra.Command, v interface{}) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

func NewStatusCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := command.NewApiClient(cfg).Status()
			if err != nil {
				return err
			}
			return printYAML(cmd, status)
		},
	}
}

func NewIndexCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Show the current acquisition index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := command.NewApiClient(cfg).Index()
			if err != nil {
				return err
			}
			if !idx.Valid {
				fmt.Fprintln(cmd.OutOrStdout(), "no data yet")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %d\n", idx.Acquisition, idx.LastBlockID)
			return nil
		},
	}
}

func NewChannelsCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "Show the channel table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := command.NewApiClient(cfg).Channels()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d channels, %g Hz\n", table.ChannelCount, table.SamplingRateHz())
			for i, name := range table.ChannelNames {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d %-8s %g\n", i, strings.TrimSpace(name), table.Resolutions[i])
			}
			return nil
		},
	}
}

func NewGapsCommand(cfg *config.Config) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "gaps",
		Short: "Show the sequence gap journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gaps, err := command.NewApiClient(cfg).Gaps(limit)
			if err != nil {
				return err
			}
			return printYAML(cmd, gaps)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of newest gaps to show, 0 for all")
	return cmd
}
