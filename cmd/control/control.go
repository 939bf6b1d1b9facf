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
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-rda/pkg/config"
)

// NewCommand groups the commands talking to a running stream
func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "control",
		Short: "Control a running stream over its API",
	}
	cmd.PersistentFlags().IntVar(&cfg.Api.Port, "api-port", cfg.Api.Port, "API port of the stream")
	cmd.AddCommand(NewStatusCommand(cfg))
	cmd.AddCommand(NewIndexCommand(cfg))
	cmd.AddCommand(NewChannelsCommand(cfg))
	cmd.AddCommand(NewGapsCommand(cfg))
	cmd.AddCommand(NewPersistCommand(cfg))
	cmd.AddCommand(NewFlushCommand(cfg))
	return cmd
}
