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

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-rda/cmd/completion"
	"jinr.ru/greenlab/go-rda/cmd/config"
	"jinr.ru/greenlab/go-rda/cmd/control"
	"jinr.ru/greenlab/go-rda/cmd/listen"
	"jinr.ru/greenlab/go-rda/cmd/simulate"
	"jinr.ru/greenlab/go-rda/cmd/stream"
	pkgconfig "jinr.ru/greenlab/go-rda/pkg/config"
	"jinr.ru/greenlab/go-rda/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel string
	cfg := pkgconfig.NewDefaultConfig()
	if err := cfg.Load(); err != nil {
		fmt.Fprintf(out, "Config %s is ignored: %s\n", cfg.Path(), err)
		cfg = pkgconfig.NewDefaultConfig()
	}
	cmd := &cobra.Command{
		Use:   "go-rda",
		Short: "Tool to stream data from amplifiers over the RDA protocol",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			return log.Init(cmd.ErrOrStderr(), cfg.LogLevel)
		},
		SilenceUsage: true,
	}
	cmd.SetOut(out)
	cmd.AddCommand(config.NewCommand(cfg))
	cmd.AddCommand(control.NewCommand(cfg))
	cmd.AddCommand(stream.NewCommand(cfg))
	cmd.AddCommand(simulate.NewCommand(cfg))
	cmd.AddCommand(listen.NewCommand(cfg))
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	return cmd
}
